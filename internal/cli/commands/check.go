package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terrascale/minimalendpoints/internal/cli/ui"
	"github.com/terrascale/minimalendpoints/internal/compiler/errors"
)

// checkReport is the --json output of check.
type checkReport struct {
	Success     bool             `json:"success"`
	Endpoints   int              `json:"endpoints"`
	Errors      int              `json:"errors"`
	Warnings    int              `json:"warnings"`
	Diagnostics errors.ErrorList `json:"diagnostics"`
}

func newCheckCommand(g *globalOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report endpoint diagnostics without writing files",
		Long: `Run the endpoint analysis and print every diagnostic.

Exits with status 1 when any error is reported, or any warning under --strict.`,
		Example: `  endpointgen check
  endpointgen check --strict --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := runAnalysis(cmd.Context(), g.dir, g.logger())
			if err != nil {
				return err
			}
			res := a.result
			nErr, nWarn, _ := res.Diagnostics.ErrorCount()
			failed := nErr > 0 || (strict && nWarn > 0)

			if g.json {
				diags := res.Diagnostics.Sorted()
				if err := writeJSON(cmd.OutOrStdout(), checkReport{
					Success:     !failed,
					Endpoints:   res.Set.Len(),
					Errors:      nErr,
					Warnings:    nWarn,
					Diagnostics: diags,
				}); err != nil {
					return err
				}
			} else {
				ui.WriteDiagnostics(cmd.ErrOrStderr(), res.Diagnostics, g.noColor)
				if !failed {
					ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("%d endpoints checked", res.Set.Len()), g.noColor)
				}
			}

			if failed {
				return errDiagnostics
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")
	return cmd
}
