package codegen

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"go/types"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
	"github.com/terrascale/minimalendpoints/internal/compiler/model"
	"github.com/terrascale/minimalendpoints/internal/compiler/source"
)

// reservedNames are identifiers the generated functions declare themselves.
var reservedNames = map[string]bool{
	"r": true, "s": true, "g": true, "b": true, "rc": true,
	"ep": true, "err": true, "any": true,
	"AddEndpoints": true, "MapEndpoints": true,
}

// importSet allocates one alias per import path across the whole set.
type importSet struct {
	byPath  map[string]string
	byAlias map[string]string
	// seeds holds the preferred alias per path before allocation.
	seeds map[string]string
	fixed map[string]bool
}

func newImportSet() *importSet {
	s := &importSet{
		byPath:  make(map[string]string),
		byAlias: make(map[string]string),
		seeds:   make(map[string]string),
		fixed:   make(map[string]bool),
	}
	s.assign(decl.ContractPackage, "endpoint")
	s.assign(ChiPackage, "chi")
	s.fixed[decl.ContractPackage] = true
	s.fixed[ChiPackage] = true
	return s
}

// want records a path and the alias it would like. The first seed wins.
func (s *importSet) want(path, seed string) {
	if path == "" {
		return
	}
	if _, ok := s.byPath[path]; ok {
		return
	}
	if _, ok := s.seeds[path]; ok {
		return
	}
	if seed == "" || seed == "." || seed == "_" {
		seed = source.ImportName(path)
	}
	s.seeds[path] = seed
}

// allocate assigns aliases in path order so output does not depend on
// discovery order.
func (s *importSet) allocate() {
	paths := make([]string, 0, len(s.seeds))
	for p := range s.seeds {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		s.assign(p, s.pick(p, s.seeds[p]))
	}
	s.seeds = make(map[string]string)
}

func (s *importSet) assign(path, alias string) {
	s.byPath[path] = alias
	s.byAlias[alias] = path
}

// pick resolves a collision by prefixing parent directories, then by a
// numeric suffix.
func (s *importSet) pick(path, seed string) string {
	seed = sanitizeIdent(seed)
	if s.free(seed) {
		return seed
	}

	parts := strings.Split(path, "/")
	if n := len(parts); n >= 2 && isMajorVersion(parts[n-1]) {
		parts = parts[:n-1]
	}
	candidate := seed
	for i := len(parts) - 2; i >= 0 && i >= len(parts)-3; i-- {
		candidate = sanitizeIdent(parts[i]) + candidate
		if s.free(candidate) {
			return candidate
		}
	}
	for n := 2; ; n++ {
		candidate = seed + strconv.Itoa(n)
		if s.free(candidate) {
			return candidate
		}
	}
}

func (s *importSet) free(alias string) bool {
	if alias == "" || token.IsKeyword(alias) || reservedNames[alias] || types.Universe.Lookup(alias) != nil {
		return false
	}
	if strings.HasPrefix(alias, "arg") {
		if _, err := strconv.Atoi(alias[3:]); err == nil {
			return false
		}
	}
	_, taken := s.byAlias[alias]
	return !taken
}

func (s *importSet) alias(path string) string {
	return s.byPath[path]
}

func (s *importSet) paths() []string {
	out := make([]string, 0, len(s.byPath))
	for p := range s.byPath {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// needsName reports whether the import must be written with an explicit
// name. The package clause of a user package is not known for certain, so
// only the standard library and the fixed imports rely on the default.
func (s *importSet) needsName(path string) bool {
	if !s.fixed[path] && !isStdlib(path) {
		return true
	}
	return s.byPath[path] != source.ImportName(path)
}

func isMajorVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	_, err := strconv.Atoi(s[1:])
	return err == nil
}

func sanitizeIdent(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" || (out[0] >= '0' && out[0] <= '9') {
		out = "pkg" + out
	}
	return out
}

// packagePath returns the import path of the endpoint's declaring package.
func packagePath(d *model.EndpointDescriptor) string {
	return strings.TrimSuffix(d.QualifiedName, "."+d.ClassName)
}

// collectImports records every package the registration source refers to,
// then allocates aliases once for the whole set.
func (g *Generator) collectImports(set *model.Set) {
	for _, d := range set.Endpoints {
		g.imports.want(packagePath(d), d.Package)
		if d.Grouped() {
			g.imports.want(refPackage(d, d.GroupType), "")
		}
		for _, f := range d.FilterRefs {
			g.imports.want(refPackage(d, f), "")
		}
		for _, p := range d.Parameters {
			for _, q := range qualifiers(p.Type) {
				if path, ok := d.Imports[q]; ok {
					g.imports.want(path, q)
				}
			}
		}
	}
	g.imports.allocate()
}

func refPackage(d *model.EndpointDescriptor, ref decl.TypeRef) string {
	if ref.Package == "" {
		return packagePath(d)
	}
	return ref.Package
}

// typeName renders a reference with its allocated alias.
func (g *Generator) typeName(d *model.EndpointDescriptor, ref decl.TypeRef) string {
	return g.imports.alias(refPackage(d, ref)) + "." + ref.Name
}

// qualifiers lists the package qualifiers used in a type expression.
func qualifiers(typ string) []string {
	expr, err := parser.ParseExpr(typ)
	if err != nil {
		return nil
	}
	var out []string
	ast.Inspect(expr, func(n ast.Node) bool {
		if sel, ok := n.(*ast.SelectorExpr); ok {
			if id, ok := sel.X.(*ast.Ident); ok {
				out = append(out, id.Name)
			}
			return false
		}
		return true
	})
	return out
}

// rewriteType re-qualifies a type expression as written in the endpoint's
// file for use in the generated package: qualifiers map to allocated
// aliases and bare declared names gain the endpoint package's alias.
func (g *Generator) rewriteType(d *model.EndpointDescriptor, typ string) (string, error) {
	expr, err := parser.ParseExpr(typ)
	if err != nil {
		return "", fmt.Errorf("cannot parse type %q: %w", typ, err)
	}

	own := g.imports.alias(packagePath(d))
	var rerr error
	out := astutil.Apply(expr, func(c *astutil.Cursor) bool {
		switch n := c.Node().(type) {
		case *ast.SelectorExpr:
			id, ok := n.X.(*ast.Ident)
			if !ok {
				return true
			}
			path, ok := d.Imports[id.Name]
			if !ok {
				rerr = fmt.Errorf("unknown package %q in type %q", id.Name, typ)
				return false
			}
			c.Replace(&ast.SelectorExpr{X: ast.NewIdent(g.imports.alias(path)), Sel: n.Sel})
			return false
		case *ast.Ident:
			switch c.Name() {
			case "Names", "Label":
				return false
			}
			if types.Universe.Lookup(n.Name) != nil {
				return false
			}
			if !token.IsExported(n.Name) {
				rerr = fmt.Errorf("type %q refers to unexported %s", typ, n.Name)
				return false
			}
			c.Replace(&ast.SelectorExpr{X: ast.NewIdent(own), Sel: ast.NewIdent(n.Name)})
			return false
		}
		return true
	}, nil)
	if rerr != nil {
		return "", rerr
	}

	var buf bytes.Buffer
	if err := printer.Fprint(&buf, token.NewFileSet(), out); err != nil {
		return "", fmt.Errorf("cannot print type %q: %w", typ, err)
	}
	return buf.String(), nil
}
