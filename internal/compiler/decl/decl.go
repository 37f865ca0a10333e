// Package decl is the declaration snapshot consumed by discovery and the
// resolver. It is a language-neutral view of Go type declarations: structs,
// their methods, embedded bases, endpoint directives, doc text and the few
// method bodies the resolver is allowed to read.
//
// A Snapshot is built once by the source loader and never mutated afterwards,
// so every value reachable from it may be shared across goroutines.
package decl

import (
	"go/token"
	"sort"
	"strings"
)

// ContractPackage is the import path of the runtime contract that generated
// code links against. Marker bases and group types are recognised by it.
const ContractPackage = "github.com/terrascale/minimalendpoints/pkg/endpoint"

// SourceLocation points at a declaration in a source file.
type SourceLocation struct {
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
	Line   int    `json:"line" yaml:"line"`     // 1-indexed
	Column int    `json:"column" yaml:"column"` // 1-indexed
}

// TypeRef names a declared type.
type TypeRef struct {
	// Package is the import path of the declaring package.
	Package string `json:"package,omitempty"`
	// Name is the bare type name.
	Name string `json:"name"`
}

// Qualified returns the import-path-qualified name, e.g.
// "example.com/app/groups.Users".
func (t TypeRef) Qualified() string {
	if t.Package == "" {
		return t.Name
	}
	return t.Package + "." + t.Name
}

// IsZero reports whether the reference names nothing.
func (t TypeRef) IsZero() bool {
	return t.Name == ""
}

// Is reports whether the reference names pkg.name.
func (t TypeRef) Is(pkg, name string) bool {
	return t.Package == pkg && t.Name == name
}

// Base is an embedded field of a struct: the Go analogue of a base type.
type Base struct {
	Type TypeRef
	// TypeArgs holds the instantiation arguments of a generic base such as
	// endpoint.Grouped[groups.Users].
	TypeArgs []TypeRef
	// Tags holds the struct tag of the embedded field, keyed by tag name.
	Tags     map[string]string
	Location SourceLocation
}

// Param is a handler method parameter.
type Param struct {
	Name string
	// Type is the declared type expression as written in source, e.g.
	// "*multipart.FileHeader" or "[]string".
	Type string
}

// Method is a method declared on a class.
type Method struct {
	Name string
	// Receiver is the receiver name. An empty or blank receiver marks a
	// method that cannot touch instance state.
	Receiver        string
	PointerReceiver bool
	Params          []Param
	// Results holds the declared result type expressions in order.
	Results    []string
	Directives []Directive
	Doc        string
	// Body summarises the method body for property reading. It is nil for
	// methods that take arguments or return more than one value.
	Body     *Body
	Location SourceLocation
}

// Exported reports whether the method is visible outside its package.
func (m *Method) Exported() bool {
	return token.IsExported(m.Name)
}

// Static reports whether the receiver is unnamed or blank.
func (m *Method) Static() bool {
	return m.Receiver == "" || m.Receiver == "_"
}

// ResultList renders the results the way they appear in a signature.
func (m *Method) ResultList() string {
	switch len(m.Results) {
	case 0:
		return ""
	case 1:
		return m.Results[0]
	default:
		return "(" + strings.Join(m.Results, ", ") + ")"
	}
}

// Directive returns the first directive with the given name.
func (m *Method) Directive(name string) (Directive, bool) {
	return findDirective(m.Directives, name)
}

// DirectivesNamed returns every directive with the given name in source order.
func (m *Method) DirectivesNamed(name string) []Directive {
	return filterDirectives(m.Directives, name)
}

// Class is a named struct type together with its methods.
type Class struct {
	Name string
	// Package is the import path of the declaring package; PkgName is the
	// package clause name.
	Package string
	PkgName string
	// Imports maps the local qualifiers of the declaring file to import paths.
	Imports    map[string]string
	Directives []Directive
	Doc        string
	Bases      []Base
	Properties []Property
	Methods    []*Method
	Location   SourceLocation
}

// Ref returns a reference to the class itself.
func (c *Class) Ref() TypeRef {
	return TypeRef{Package: c.Package, Name: c.Name}
}

// QualifiedName is the import-path-qualified class name.
func (c *Class) QualifiedName() string {
	return c.Ref().Qualified()
}

// Directive returns the first class-level directive with the given name.
func (c *Class) Directive(name string) (Directive, bool) {
	return findDirective(c.Directives, name)
}

// DirectivesNamed returns every class-level directive with the given name.
func (c *Class) DirectivesNamed(name string) []Directive {
	return filterDirectives(c.Directives, name)
}

// Property returns the first property matching any of the names, in the order
// the names are given.
func (c *Class) Property(names ...string) (Property, bool) {
	for _, name := range names {
		for _, p := range c.Properties {
			if p.Name == name {
				return p, true
			}
		}
	}
	return Property{}, false
}

// HasProperty reports whether any of the named properties is declared.
func (c *Class) HasProperty(names ...string) bool {
	_, ok := c.Property(names...)
	return ok
}

// Method returns the method with the given name.
func (c *Class) Method(name string) (*Method, bool) {
	for _, m := range c.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Resolve turns a type expression written in the class's file, such as
// "groups.Users" or "Local", into a TypeRef.
func (c *Class) Resolve(expr string) TypeRef {
	expr = strings.TrimLeft(strings.TrimSpace(expr), "*&")
	if qual, name, ok := strings.Cut(expr, "."); ok {
		if path, found := c.Imports[qual]; found {
			return TypeRef{Package: path, Name: name}
		}
		return TypeRef{Package: qual, Name: name}
	}
	return TypeRef{Package: c.Package, Name: expr}
}

// Snapshot is the immutable set of declarations handed to one analysis pass.
type Snapshot struct {
	// Identity names the compilation; it keys the generated package.
	Identity string
	Classes  []*Class
	// Problems are directive syntax problems found while loading.
	Problems []Problem

	index map[string]*Class
}

// Problem is a malformed directive found while building the snapshot.
type Problem struct {
	Message  string
	Location SourceLocation
}

// NewSnapshot builds a snapshot with classes sorted by qualified name so that
// every pass over it is deterministic.
func NewSnapshot(identity string, classes []*Class, problems []Problem) *Snapshot {
	sorted := make([]*Class, len(classes))
	copy(sorted, classes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].QualifiedName() < sorted[j].QualifiedName()
	})

	index := make(map[string]*Class, len(sorted))
	for _, c := range sorted {
		if _, exists := index[c.QualifiedName()]; !exists {
			index[c.QualifiedName()] = c
		}
	}

	return &Snapshot{
		Identity: identity,
		Classes:  sorted,
		Problems: problems,
		index:    index,
	}
}

// Lookup finds a class by reference.
func (s *Snapshot) Lookup(ref TypeRef) (*Class, bool) {
	if s == nil {
		return nil, false
	}
	c, ok := s.index[ref.Qualified()]
	return c, ok
}

func findDirective(ds []Directive, name string) (Directive, bool) {
	for _, d := range ds {
		if d.Name == name {
			return d, true
		}
	}
	return Directive{}, false
}

func filterDirectives(ds []Directive, name string) []Directive {
	var out []Directive
	for _, d := range ds {
		if d.Name == name {
			out = append(out, d)
		}
	}
	return out
}

// WalkBases visits the embedded bases of c, then the bases of any base that
// is itself declared in the snapshot, depth first. It stops early when fn
// returns false. Cycles are visited once.
func (s *Snapshot) WalkBases(c *Class, fn func(owner *Class, b Base) bool) {
	seen := map[string]bool{c.QualifiedName(): true}
	var walk func(owner *Class) bool
	walk = func(owner *Class) bool {
		for _, b := range owner.Bases {
			if !fn(owner, b) {
				return false
			}
			next, ok := s.Lookup(b.Type)
			if !ok || seen[next.QualifiedName()] {
				continue
			}
			seen[next.QualifiedName()] = true
			if !walk(next) {
				return false
			}
		}
		return true
	}
	walk(c)
}

// FindBase returns the first base, direct or inherited, matching pred.
func (s *Snapshot) FindBase(c *Class, pred func(Base) bool) (Base, bool) {
	var found Base
	ok := false
	s.WalkBases(c, func(_ *Class, b Base) bool {
		if pred(b) {
			found, ok = b, true
			return false
		}
		return true
	})
	return found, ok
}
