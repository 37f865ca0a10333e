package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/terrascale/minimalendpoints/internal/cli/ui"
	"github.com/terrascale/minimalendpoints/internal/compiler/metadata"
	"github.com/terrascale/minimalendpoints/internal/docs"
)

type routesOptions struct {
	manifest string
	group    string
	method   string
	markdown bool
}

func newRoutesCommand(g *globalOptions) *cobra.Command {
	opts := &routesOptions{}

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the routes endpointgen registers",
		Long: `List every route as METHOD, PATH, ENDPOINT, GROUP, AUTH and PAYLOAD.

Routes come from a fresh analysis, or from a manifest written by
'endpointgen generate --manifest' when --manifest is given.`,
		Example: `  endpointgen routes
  endpointgen routes --group Admin --method GET
  endpointgen routes --manifest build/routes.json.gz --json
  endpointgen routes --markdown > ROUTES.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManifest(cmd, g, opts.manifest)
			if err != nil {
				return err
			}

			routes, err := filterRoutes(m, opts)
			if err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.GroupNotFoundError(opts.group, ui.SuggestNames(opts.group, groupNames(m)), g.noColor))
				return fmt.Errorf("%w: %v", errReported, err)
			}

			if g.json {
				return writeJSON(cmd.OutOrStdout(), routes)
			}
			if opts.markdown {
				filtered := *m
				filtered.Routes = routes
				_, err := fmt.Fprint(cmd.OutOrStdout(), docs.NewMarkdownGenerator("").Generate(&filtered))
				return err
			}
			if len(routes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No routes.")
				return nil
			}
			ui.RenderRoutes(cmd.OutOrStdout(), routes, g.noColor)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.manifest, "manifest", "m", "", "Read routes from a manifest file")
	cmd.Flags().StringVarP(&opts.group, "group", "g", "", "Only list routes of this group")
	cmd.Flags().StringVar(&opts.method, "method", "", "Only list routes with this HTTP method")
	cmd.Flags().BoolVar(&opts.markdown, "markdown", false, "Print a Markdown route reference")

	return cmd
}

// loadManifest reads path when given, otherwise analyzes the project and
// extracts the manifest in memory.
func loadManifest(cmd *cobra.Command, g *globalOptions, path string) (*metadata.Manifest, error) {
	if path != "" {
		return metadata.ReadFromFile(path)
	}

	a, err := runAnalysis(cmd.Context(), g.dir, g.logger())
	if err != nil {
		return nil, err
	}
	if a.result.Diagnostics.HasErrors() {
		ui.WriteDiagnostics(cmd.ErrOrStderr(), a.result.Diagnostics, g.noColor)
		return nil, errDiagnostics
	}

	extractor := metadata.NewExtractor(Version)
	extractor.SetBaseDir(a.cfg.Dir)
	return extractor.Extract(a.result.Set)
}

// filterRoutes applies the group and method filters. An unknown group is an
// error; an unmatched method simply yields no routes.
func filterRoutes(m *metadata.Manifest, opts *routesOptions) ([]metadata.RouteMetadata, error) {
	if opts.group != "" {
		known := false
		for _, name := range groupNames(m) {
			if name == opts.group {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown group %q", opts.group)
		}
	}

	routes := make([]metadata.RouteMetadata, 0, len(m.Routes))
	for _, r := range m.Routes {
		if opts.group != "" && r.Group != opts.group {
			continue
		}
		if opts.method != "" && !strings.EqualFold(r.Method, opts.method) {
			continue
		}
		routes = append(routes, r)
	}
	return routes, nil
}

// groupNames lists the distinct group names in manifest order.
func groupNames(m *metadata.Manifest) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, gm := range m.Groups {
		add(gm.Name)
	}
	for _, r := range m.Routes {
		add(r.Group)
	}
	return names
}
