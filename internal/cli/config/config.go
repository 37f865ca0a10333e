package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"

	"github.com/terrascale/minimalendpoints/internal/compiler/codegen"
	"github.com/terrascale/minimalendpoints/internal/compiler/metadata"
	"github.com/terrascale/minimalendpoints/internal/compiler/source"
)

// FileName is the configuration file name without extension.
const FileName = "endpointgen"

// EnvPrefix prefixes environment overrides, e.g. ENDPOINTGEN_OUTPUT_FILE.
const EnvPrefix = "ENDPOINTGEN"

// Config represents the endpointgen configuration
type Config struct {
	// Identity names the compilation. Defaults to the module path.
	Identity    string         `mapstructure:"identity"`
	Packages    []string       `mapstructure:"packages"`
	Include     []string       `mapstructure:"include"`
	Exclude     []string       `mapstructure:"exclude"`
	Output      OutputConfig   `mapstructure:"output"`
	Manifest    ManifestConfig `mapstructure:"manifest"`
	Parallelism int            `mapstructure:"parallelism"`

	// Dir is the directory the configuration was loaded for.
	Dir string `mapstructure:"-"`
}

// OutputConfig represents the registration source output
type OutputConfig struct {
	File    string `mapstructure:"file"`
	Package string `mapstructure:"package"`
}

// ManifestConfig represents the route manifest output
type ManifestConfig struct {
	File   string `mapstructure:"file"`
	Format string `mapstructure:"format"`
}

// Load loads the configuration for the current directory
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom loads endpointgen.yml or endpointgen.yaml from dir, applying
// defaults and ENDPOINTGEN_* environment overrides.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("packages", []string{source.DefaultPattern})
	v.SetDefault("include", []string{})
	v.SetDefault("exclude", []string{"**/*_test.go", "**/testdata/**"})
	v.SetDefault("output.file", codegen.DefaultOutputFile)
	v.SetDefault("output.package", "")
	v.SetDefault("manifest.file", "")
	v.SetDefault("manifest.format", "")
	v.SetDefault("parallelism", 0)
	v.SetDefault("identity", "")

	// Set config name and paths
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	config.Dir = abs

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// ManifestFormat returns the configured manifest format, falling back to
// the manifest file's extension.
func (c *Config) ManifestFormat() metadata.Format {
	if c.Manifest.Format != "" {
		f, _ := metadata.ParseFormat(c.Manifest.Format)
		return f
	}
	return metadata.FormatForPath(c.Manifest.File)
}

// Path resolves a configured path against the configuration directory.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// FindProjectRoot walks up from the working directory to the nearest
// directory holding endpointgen.yml, endpointgen.yaml or go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, name := range []string{FileName + ".yml", FileName + ".yaml", "go.mod"} {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return dir, nil
			}
		}

		// Move up one directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return "", fmt.Errorf("not in a Go module (no %s.yaml or go.mod found)", FileName)
		}
		dir = parent
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Parallelism < 0 {
		return fmt.Errorf("parallelism must not be negative, got: %d", cfg.Parallelism)
	}

	if len(cfg.Packages) == 0 {
		return fmt.Errorf("packages must list at least one pattern")
	}

	for _, pattern := range append(append([]string{}, cfg.Include...), cfg.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid glob pattern: %s", pattern)
		}
	}

	if cfg.Output.File == "" {
		return fmt.Errorf("output.file must not be empty")
	}
	if !strings.HasSuffix(cfg.Output.File, ".go") {
		return fmt.Errorf("output.file must be a .go file, got: %s", cfg.Output.File)
	}

	if cfg.Manifest.Format != "" {
		if _, err := metadata.ParseFormat(cfg.Manifest.Format); err != nil {
			return fmt.Errorf("manifest.format: %w", err)
		}
	}
	return nil
}
