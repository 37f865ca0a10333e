// Package source builds declaration snapshots from Go source.
//
// Packages are enumerated with golang.org/x/tools/go/packages and only their
// syntax is used; the endpoint analysis never needs type information. Struct
// types become decl.Class values carrying their //endpoint: directives, doc
// text, embedded bases, struct tag initializers and methods.
package source

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"

	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
)

// DefaultPattern loads every package below the working directory.
const DefaultPattern = "./..."

// Options configures a Loader.
type Options struct {
	// Dir is the directory packages are resolved from. Empty means the
	// current directory.
	Dir string
	// Patterns are go list package patterns.
	Patterns []string
	// Include and Exclude are doublestar globs matched against file paths
	// relative to Dir. An empty Include keeps every file.
	Include []string
	Exclude []string
	// Identity names the snapshot. Empty means the module path.
	Identity string
	// Parallelism bounds concurrent package conversion. Zero means no limit.
	Parallelism int
	Logger      *zap.Logger
}

// Loader loads Go packages into a snapshot.
type Loader struct {
	opts Options
	log  *zap.Logger
}

// NewLoader validates the glob patterns and creates a loader.
func NewLoader(opts Options) (*Loader, error) {
	for _, g := range append(append([]string{}, opts.Include...), opts.Exclude...) {
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid glob pattern %q", g)
		}
	}
	if len(opts.Patterns) == 0 {
		opts.Patterns = []string{DefaultPattern}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{opts: opts, log: log}, nil
}

// Load enumerates the packages, converts them concurrently and returns the
// snapshot.
func (l *Loader) Load(ctx context.Context) (*decl.Snapshot, error) {
	start := time.Now()

	cfg := &packages.Config{
		Mode:    packages.NeedName | packages.NeedFiles | packages.NeedSyntax | packages.NeedModule,
		Context: ctx,
		Dir:     l.opts.Dir,
	}
	pkgs, err := packages.Load(cfg, l.opts.Patterns...)
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}

	var loadErrs []string
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		for _, e := range pkg.Errors {
			loadErrs = append(loadErrs, e.Error())
		}
	})
	if len(loadErrs) > 0 {
		return nil, fmt.Errorf("package errors:\n  %s", strings.Join(loadErrs, "\n  "))
	}

	units := make([]unit, 0, len(pkgs))
	for _, pkg := range pkgs {
		if u, ok := l.unitFor(pkg); ok {
			units = append(units, u)
		}
	}
	l.log.Debug("loaded packages",
		zap.Int("packages", len(pkgs)),
		zap.Int("selected", len(units)),
		zap.Duration("elapsed", time.Since(start)))

	identity, err := l.identity(pkgs)
	if err != nil {
		return nil, err
	}
	return l.build(ctx, identity, units)
}

// unitFor keeps the files of pkg that pass the include/exclude filters.
func (l *Loader) unitFor(pkg *packages.Package) (unit, bool) {
	u := unit{fset: pkg.Fset, pkgPath: pkg.PkgPath, pkgName: pkg.Name}
	for _, f := range pkg.Syntax {
		filename := pkg.Fset.Position(f.Package).Filename
		if l.selected(filename) {
			u.files = append(u.files, f)
		}
	}
	return u, len(u.files) > 0
}

func (l *Loader) selected(filename string) bool {
	base := l.opts.Dir
	if base == "" {
		base, _ = os.Getwd()
	}
	rel := filename
	if r, err := filepath.Rel(base, filename); err == nil {
		rel = r
	}
	return Selected(filepath.ToSlash(rel), l.opts.Include, l.opts.Exclude)
}

// Selected applies include and exclude globs to a slash-separated path.
// Exclusion wins.
func Selected(rel string, include, exclude []string) bool {
	for _, g := range exclude {
		if ok, _ := doublestar.Match(g, rel); ok {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, g := range include {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

func (l *Loader) identity(pkgs []*packages.Package) (string, error) {
	if l.opts.Identity != "" {
		return l.opts.Identity, nil
	}
	for _, pkg := range pkgs {
		if pkg.Module != nil && pkg.Module.Path != "" {
			return pkg.Module.Path, nil
		}
	}
	return ModulePath(l.opts.Dir)
}

// build converts every unit concurrently. Results are collected per unit and
// handed to NewSnapshot, which fixes the order.
func (l *Loader) build(ctx context.Context, identity string, units []unit) (*decl.Snapshot, error) {
	results := make([]converted, len(units))

	g, gctx := errgroup.WithContext(ctx)
	if l.opts.Parallelism > 0 {
		g.SetLimit(l.opts.Parallelism)
	}
	for i, u := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = convertPackage(u)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var classes []*decl.Class
	var problems []decl.Problem
	for _, r := range results {
		classes = append(classes, r.classes...)
		problems = append(problems, r.problems...)
	}
	l.log.Debug("built snapshot",
		zap.String("identity", identity),
		zap.Int("classes", len(classes)),
		zap.Int("problems", len(problems)))
	return decl.NewSnapshot(identity, classes, problems), nil
}

// File is an in-memory source file.
type File struct {
	Name string
	Src  string
}

// ParseFiles builds a snapshot from source held in memory. All files belong
// to the package at pkgPath.
func ParseFiles(identity, pkgPath string, files ...File) (*decl.Snapshot, error) {
	fset := token.NewFileSet()
	u := unit{fset: fset, pkgPath: pkgPath}
	for _, f := range files {
		af, err := parser.ParseFile(fset, f.Name, f.Src, parser.ParseComments|parser.SkipObjectResolution)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.Name, err)
		}
		if u.pkgName == "" {
			u.pkgName = af.Name.Name
		}
		u.files = append(u.files, af)
	}
	r := convertPackage(u)
	return decl.NewSnapshot(identity, r.classes, r.problems), nil
}
