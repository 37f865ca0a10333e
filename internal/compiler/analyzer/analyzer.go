// Package analyzer runs the endpoint analysis pass over a declaration
// snapshot: discovery, class validation, per-handler resolution and the
// cross-endpoint route checks.
//
// Classes are resolved concurrently. Each class writes into its own slot and
// the slots are merged in snapshot order, so the output does not depend on
// scheduling.
package analyzer

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
	"github.com/terrascale/minimalendpoints/internal/compiler/discovery"
	"github.com/terrascale/minimalendpoints/internal/compiler/errors"
	"github.com/terrascale/minimalendpoints/internal/compiler/model"
	"github.com/terrascale/minimalendpoints/internal/compiler/resolver"
)

// Options configures an Analyzer.
type Options struct {
	// Parallelism bounds the number of classes resolved at once. Zero means
	// one per CPU.
	Parallelism int
	Logger      *zap.Logger
}

// Analyzer is safe for concurrent use; every call works on its own state.
type Analyzer struct {
	parallelism int
	log         *zap.Logger
}

// Result is the outcome of one analysis pass.
type Result struct {
	// Set is nil when the pass was cancelled.
	Set         *model.Set
	Diagnostics errors.ErrorList
}

// New creates an Analyzer.
func New(opts Options) *Analyzer {
	p := opts.Parallelism
	if p <= 0 {
		p = runtime.NumCPU()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{parallelism: p, log: log}
}

type classResult struct {
	diags     errors.ErrorList
	endpoints []*model.EndpointDescriptor
}

// Analyze runs the pass. Diagnostics never make it fail; the error is only
// ever ctx.Err(), returned together with whatever had been collected.
func (a *Analyzer) Analyze(ctx context.Context, s *decl.Snapshot) (*Result, error) {
	res := &Result{}
	problemsToDiagnostics(s, &res.Diagnostics)

	candidates := discovery.Discover(ctx, s)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	a.log.Debug("discovered candidates",
		zap.Int("classes", len(s.Classes)),
		zap.Int("candidates", len(candidates)))

	r := resolver.New(s)
	slots := make([]*classResult, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism)
	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = analyzeClass(gctx, s, r, c)
			return nil
		})
	}
	err := g.Wait()

	var endpoints []*model.EndpointDescriptor
	for _, slot := range slots {
		if slot == nil {
			continue
		}
		res.Diagnostics = append(res.Diagnostics, slot.diags...)
		endpoints = append(endpoints, slot.endpoints...)
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		a.log.Debug("analysis cancelled", zap.Error(err))
		return res, err
	}

	res.Set = model.NewSet(s.Identity, endpoints)
	checkDuplicateRoutes(s, res.Set, &res.Diagnostics)

	a.log.Debug("analysis complete",
		zap.Int("endpoints", res.Set.Len()),
		zap.Int("diagnostics", len(res.Diagnostics)))
	return res, nil
}

// analyzeClass validates c and resolves each of its handlers. A class that
// fails validation still has its handlers checked, but contributes nothing.
func analyzeClass(ctx context.Context, s *decl.Snapshot, r *resolver.Resolver, c *decl.Class) *classResult {
	out := &classResult{}
	valid := validateClass(s, c, &out.diags)

	for _, m := range resolver.Handlers(c) {
		d, ok := r.Resolve(ctx, c, m, &out.diags)
		if ok && valid {
			out.endpoints = append(out.endpoints, d)
		}
	}
	return out
}

func checkDuplicateRoutes(s *decl.Snapshot, set *model.Set, sink *errors.ErrorList) {
	seen := make(map[string]*model.EndpointDescriptor, set.Len())
	for _, d := range set.Endpoints {
		key := routeKey(s, d)
		first, dup := seen[key]
		if !dup {
			seen[key] = d
			continue
		}
		sink.Add(errors.NewDuplicateRoute(d.Location, d.Verb, d.Route, first.Handler(), d.Handler()))
	}
}

// Analyze runs a pass with default options.
func Analyze(ctx context.Context, s *decl.Snapshot) (*Result, error) {
	return New(Options{}).Analyze(ctx, s)
}
