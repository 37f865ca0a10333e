package codegen

import (
	"fmt"

	"github.com/terrascale/minimalendpoints/internal/compiler/metadata"
	"github.com/terrascale/minimalendpoints/internal/compiler/model"
)

// GenerateManifest serializes the route manifest for set in the configured
// format.
func (g *Generator) GenerateManifest(set *model.Set) ([]byte, error) {
	extractor := metadata.NewExtractor(g.opts.Version)
	extractor.SetBaseDir(g.opts.BaseDir)

	manifest, err := extractor.Extract(set)
	if err != nil {
		return nil, fmt.Errorf("manifest extraction failed: %w", err)
	}

	format := g.opts.ManifestFormat
	if format == "" {
		format = metadata.FormatForPath(g.opts.ManifestFile)
	}

	data, err := metadata.Serialize(manifest, format)
	if err != nil {
		return nil, fmt.Errorf("manifest generation failed: %w", err)
	}
	return data, nil
}
