package resolver

import (
	"strings"

	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
)

// LiteralKind tags a statically read property value.
type LiteralKind int

const (
	LitString LiteralKind = iota
	LitVerb
	LitType
)

// Literal is a property value the matcher could read without evaluation.
type Literal struct {
	Kind  LiteralKind
	Value string
	Type  decl.TypeRef
}

// verbConstants are the exported constant names that denote a verb when
// selected from net/http or the endpoint contract package.
var verbConstants = func() map[string]string {
	m := make(map[string]string)
	for _, v := range decl.Verbs {
		title := v[:1] + strings.ToLower(v[1:])
		m[title] = v
		m["Method"+title] = v
	}
	return m
}()

var verbPackages = map[string]bool{
	"net/http":           true,
	decl.ContractPackage: true,
}

// ReadProperty reads a property of c. Only three shapes are honoured: a body
// that is exactly one return statement, a longer body with exactly one
// return statement, and a struct tag initializer. Whatever the shape, the
// returned expression must itself be trivial.
func ReadProperty(c *decl.Class, p decl.Property) (Literal, bool) {
	var e decl.Expr
	switch p.Form {
	case decl.FormExpression, decl.FormGetter:
		if p.Body == nil || len(p.Body.Returns) != 1 {
			return Literal{}, false
		}
		e = p.Body.Returns[0]
	case decl.FormInitializer:
		e = p.Value
	default:
		return Literal{}, false
	}
	return MatchExpr(c, e)
}

// ReadNamed reads the first of the named properties that resolves.
func ReadNamed(c *decl.Class, names ...string) (Literal, bool) {
	for _, name := range names {
		for _, p := range c.Properties {
			if p.Name != name {
				continue
			}
			if lit, ok := ReadProperty(c, p); ok {
				return lit, true
			}
		}
	}
	return Literal{}, false
}

// MatchExpr is the bounded matcher. It never guesses: anything outside the
// vocabulary resolves to false.
func MatchExpr(c *decl.Class, e decl.Expr) (Literal, bool) {
	switch x := e.(type) {
	case decl.StringLit:
		return Literal{Kind: LitString, Value: x.Value}, true
	case decl.Selector:
		return matchVerbConstant(c.Imports[x.Qualifier], x.Name)
	case decl.Ident:
		// A bare constant only resolves when the file dot-imports a verb
		// package or lives in the contract package itself.
		pkg := c.Imports["."]
		if c.Package == decl.ContractPackage {
			pkg = decl.ContractPackage
		}
		return matchVerbConstant(pkg, x.Name)
	case decl.TypeExpr:
		ref := c.Resolve(x.Type)
		if ref.IsZero() {
			return Literal{}, false
		}
		return Literal{Kind: LitType, Type: ref}, true
	default:
		return Literal{}, false
	}
}

// StringProperty reads the first non-empty string literal among the named
// properties.
func StringProperty(c *decl.Class, names ...string) (string, bool) {
	for _, name := range names {
		for _, p := range c.Properties {
			if p.Name != name {
				continue
			}
			lit, ok := ReadProperty(c, p)
			if ok && lit.Kind == LitString && lit.Value != "" {
				return lit.Value, true
			}
		}
	}
	return "", false
}

func matchVerbConstant(pkg, name string) (Literal, bool) {
	verb, ok := verbConstants[name]
	if !ok || !verbPackages[pkg] {
		return Literal{}, false
	}
	// net/http only exports the Method* spellings; http.Get is a function.
	if pkg == "net/http" && !strings.HasPrefix(name, "Method") {
		return Literal{}, false
	}
	return Literal{Kind: LitVerb, Value: verb}, true
}
