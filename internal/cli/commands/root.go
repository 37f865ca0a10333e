// Package commands implements the endpointgen command line.
package commands

import (
	stderrors "errors"
	"fmt"
	"io"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// errReported marks a failure whose details were already printed, so
// Execute stays quiet about it.
var errReported = stderrors.New("errors were reported")

// errDiagnostics is returned when the analysis or generation reported errors.
var errDiagnostics = fmt.Errorf("endpoint diagnostics: %w", errReported)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	dir     string
	verbose bool
	json    bool
	noColor bool

	log *zap.Logger
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "endpointgen",
		Short: "Compile-time route registration for Go endpoint types",
		Long: color.CyanString(`endpointgen - compile-time endpoint registration

endpointgen scans Go packages for endpoint types, resolves each handler's
verb, route, parameters, authorization and documentation, and writes the
AddEndpoints/MapEndpoints registration source for a chi router.

Endpoint types are ordinary structs:
  • embed endpoint.Base or endpoint.Grouped[G]
  • declare one fallible handler method
  • annotate it with //endpoint: directives`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.noColor {
				color.NoColor = true
			}
			log, err := newLogger(opts.verbose)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			opts.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.dir, "dir", "C", ".", "Project directory holding endpointgen.yaml")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log pipeline progress to stderr")
	flags.BoolVar(&opts.json, "json", false, "Print machine-readable JSON")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newGenerateCommand(opts))
	rootCmd.AddCommand(newCheckCommand(opts))
	rootCmd.AddCommand(newRoutesCommand(opts))

	return rootCmd
}

// newLogger builds a development logger under --verbose and a no-op logger
// otherwise.
func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// logger never returns nil, so commands run outside Execute still work.
func (o *globalOptions) logger() *zap.Logger {
	if o.log == nil {
		return zap.NewNop()
	}
	return o.log
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the endpointgen version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			writeVersion(cmd.OutOrStdout())
		},
	}
}

func writeVersion(w io.Writer) {
	goVer := GoVersion
	if goVer == "unknown" {
		goVer = runtime.Version()
	}

	titleColor := color.New(color.FgCyan, color.Bold)

	for _, row := range [][2]string{
		{"endpointgen version: ", Version},
		{"Git commit: ", GitCommit},
		{"Build date: ", BuildDate},
		{"Go version: ", goVer},
	} {
		titleColor.Fprint(w, row[0])
		fmt.Fprintln(w, row[1])
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		if !stderrors.Is(err, errReported) {
			errorColor := color.New(color.FgRed, color.Bold)
			errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return err
	}
	return nil
}
