package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/terrascale/minimalendpoints/internal/cli/config"
	"github.com/terrascale/minimalendpoints/internal/compiler/analyzer"
	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
	"github.com/terrascale/minimalendpoints/internal/compiler/source"
)

// loadSnapshot turns the configured packages into a declaration snapshot.
// Tests replace it with an in-memory parse.
var loadSnapshot = func(ctx context.Context, cfg *config.Config, log *zap.Logger) (*decl.Snapshot, error) {
	loader, err := source.NewLoader(source.Options{
		Dir:         cfg.Dir,
		Patterns:    cfg.Packages,
		Include:     cfg.Include,
		Exclude:     cfg.Exclude,
		Identity:    cfg.Identity,
		Parallelism: cfg.Parallelism,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx)
}

// analysis is the outcome of loading and analyzing the project.
type analysis struct {
	cfg    *config.Config
	result *analyzer.Result
}

// runAnalysis loads the configuration for dir and runs the endpoint analysis
// over it. Diagnostics are part of the result, never an error.
func runAnalysis(ctx context.Context, dir string, log *zap.Logger) (*analysis, error) {
	cfg, err := config.LoadFrom(dir)
	if err != nil {
		return nil, err
	}
	log.Debug("loaded configuration",
		zap.String("dir", cfg.Dir),
		zap.Strings("packages", cfg.Packages))

	start := time.Now()
	snapshot, err := loadSnapshot(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	res, err := analyzer.New(analyzer.Options{
		Parallelism: cfg.Parallelism,
		Logger:      log,
	}).Analyze(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}
	res.Diagnostics.AttachSource(func(name string) ([]byte, error) {
		if !filepath.IsAbs(name) {
			name = filepath.Join(cfg.Dir, name)
		}
		return os.ReadFile(name)
	})

	log.Info("analysis complete",
		zap.String("identity", snapshot.Identity),
		zap.Int("endpoints", res.Set.Len()),
		zap.Int("diagnostics", len(res.Diagnostics)),
		zap.Duration("elapsed", time.Since(start)))

	return &analysis{cfg: cfg, result: res}, nil
}
