package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/terrascale/minimalendpoints/internal/cli/ui"
	"github.com/terrascale/minimalendpoints/internal/compiler/codegen"
	"github.com/terrascale/minimalendpoints/internal/compiler/errors"
	"github.com/terrascale/minimalendpoints/internal/compiler/metadata"
)

type generateOptions struct {
	output   string
	pkg      string
	manifest string
	dryRun   bool
}

// generateReport is the --json output of generate.
type generateReport struct {
	Success     bool             `json:"success"`
	Endpoints   int              `json:"endpoints"`
	Files       []string         `json:"files,omitempty"`
	Diagnostics errors.ErrorList `json:"diagnostics"`
}

func newGenerateCommand(g *globalOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen"},
		Short:   "Write the endpoint registration source",
		Long: `Analyze the configured packages and write the registration source.

The generated file declares:
  AddEndpoints(s *endpoint.Services)            registers every endpoint type
  MapEndpoints(r chi.Router, s *endpoint.Services) maps every route

Nothing is written when the analysis reports errors.`,
		Example: `  # Generate with endpointgen.yaml settings
  endpointgen generate

  # Write into a specific package and also emit a YAML route manifest
  endpointgen generate -o internal/routes/endpoints_gen.go -p routes -m routes.yaml

  # Print the source instead of writing it
  endpointgen generate --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, g, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Registration source file (overrides output.file)")
	cmd.Flags().StringVarP(&opts.pkg, "package", "p", "", "Generated package name (overrides output.package)")
	cmd.Flags().StringVarP(&opts.manifest, "manifest", "m", "", "Route manifest file (overrides manifest.file)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the registration source to stdout")

	return cmd
}

func runGenerate(cmd *cobra.Command, g *globalOptions, opts *generateOptions) error {
	log := g.logger()
	out := cmd.OutOrStdout()

	a, err := runAnalysis(cmd.Context(), g.dir, log)
	if err != nil {
		return err
	}
	cfg, res := a.cfg, a.result

	report := generateReport{Endpoints: res.Set.Len(), Diagnostics: res.Diagnostics}
	if res.Diagnostics.HasErrors() {
		return reportGenerate(cmd, g, report, "analysis reported errors")
	}

	output := cfg.Output.File
	if opts.output != "" {
		output = opts.output
	}
	pkg := cfg.Output.Package
	if opts.pkg != "" {
		pkg = opts.pkg
	}
	manifest := cfg.Manifest.File
	if opts.manifest != "" {
		manifest = opts.manifest
	}
	if !strings.HasSuffix(output, ".go") {
		return fmt.Errorf("output must be a .go file, got: %s", output)
	}

	emitOpts := codegen.Options{
		PackageName: pkg,
		OutputFile:  cfg.Path(output),
		Version:     Version,
		BaseDir:     cfg.Dir,
	}
	if manifest != "" && !opts.dryRun {
		emitOpts.ManifestFile = cfg.Path(manifest)
		emitOpts.ManifestFormat = metadata.FormatForPath(manifest)
		if cfg.Manifest.Format != "" {
			emitOpts.ManifestFormat = cfg.ManifestFormat()
		}
	}

	files, err := codegen.Emit(res.Set, emitOpts)
	if err != nil {
		var diags errors.ErrorList
		if asDiagnostics(err, &diags) {
			report.Diagnostics = append(report.Diagnostics, diags...)
			return reportGenerate(cmd, g, report, "code generation failed")
		}
		return fmt.Errorf("code generation failed: %w", err)
	}

	if opts.dryRun {
		_, err := out.Write(files[0].Content)
		return err
	}

	for _, f := range files {
		if err := writeFile(f, emitOpts.ManifestFile); err != nil {
			return err
		}
		log.Debug("wrote file", zap.String("path", f.Path), zap.Int("bytes", len(f.Content)))
		report.Files = append(report.Files, relTo(cfg.Dir, f.Path))
	}
	report.Success = true

	if g.json {
		return writeJSON(out, report)
	}

	ui.WriteDiagnostics(cmd.ErrOrStderr(), res.Diagnostics, g.noColor)
	if res.Set.Len() == 0 {
		fmt.Fprint(cmd.ErrOrStderr(), ui.Warning("no endpoint types found", nil, g.noColor))
	}
	ui.WriteSuccess(out, "Generated endpoint registration", g.noColor)
	kv := ui.NewKeyValueTable(out, g.noColor)
	kv.AddRow("Endpoints", strconv.Itoa(res.Set.Len()))
	kv.AddRow("Groups", strconv.Itoa(len(res.Set.Groups())))
	for _, f := range report.Files {
		kv.AddRow("Wrote", f)
	}
	kv.Render()
	return nil
}

// reportGenerate prints diagnostics for a failed run and returns errDiagnostics.
func reportGenerate(cmd *cobra.Command, g *globalOptions, report generateReport, reason string) error {
	if g.json {
		if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
		return errDiagnostics
	}
	ui.WriteDiagnostics(cmd.ErrOrStderr(), report.Diagnostics, g.noColor)
	fmt.Fprint(cmd.ErrOrStderr(), ui.GenerateError(reason, g.noColor))
	return errDiagnostics
}

// asDiagnostics unwraps a generator error into its diagnostics.
func asDiagnostics(err error, out *errors.ErrorList) bool {
	switch e := err.(type) {
	case errors.ErrorList:
		*out = e
		return true
	case *errors.CompilerError:
		*out = errors.ErrorList{e}
		return true
	}
	return false
}

// writeFile writes one generated file, creating its directory. A manifest
// path ending in .gz is compressed.
func writeFile(f codegen.File, manifestPath string) error {
	data := f.Content
	if f.Path == manifestPath && strings.HasSuffix(f.Path, ".gz") {
		var err error
		if data, err = metadata.Compress(data); err != nil {
			return fmt.Errorf("failed to compress manifest: %w", err)
		}
	}

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(f.Path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.Path, err)
	}
	return nil
}

func relTo(base, path string) string {
	if rel, err := filepath.Rel(base, path); err == nil {
		return rel
	}
	return path
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
