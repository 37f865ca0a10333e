package resolver

import (
	"strings"

	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
)

// ConfigureMethod is the name of the per-endpoint configuration hook.
const ConfigureMethod = "Configure"

// MethodVerb returns the verb directive on m, if any.
func MethodVerb(m *decl.Method) (decl.Directive, string, bool) {
	for _, d := range m.Directives {
		if verb, ok := decl.VerbDirective(d.Name); ok {
			return d, verb, true
		}
	}
	return decl.Directive{}, "", false
}

// IsProperty reports whether m is read as a property rather than served.
func IsProperty(m *decl.Method) bool {
	return decl.IsPropertyName(m.Name) && len(m.Params) == 0 && len(m.Results) == 1
}

// ClassVerb returns the verb directive on the type declaration, if any.
func ClassVerb(c *decl.Class) (decl.Directive, string, bool) {
	for _, d := range c.Directives {
		if verb, ok := decl.VerbDirective(d.Name); ok {
			return d, verb, true
		}
	}
	return decl.Directive{}, "", false
}

// IsConfigureHook reports whether m is the configuration hook: exported,
// taking a single *endpoint.RouteBuilder, returning nothing, and declared
// with an unnamed or blank receiver so it cannot depend on instance state.
// A Configure method with a named receiver is an ordinary handler.
func IsConfigureHook(c *decl.Class, m *decl.Method) bool {
	if m.Name != ConfigureMethod || len(m.Params) != 1 || len(m.Results) != 0 || !m.Static() {
		return false
	}
	typ := m.Params[0].Type
	return strings.HasPrefix(typ, "*") && c.Resolve(typ).Is(decl.ContractPackage, "RouteBuilder")
}

// HasConfigureHook reports whether the class declares the hook.
func HasConfigureHook(c *decl.Class) bool {
	for _, m := range c.Methods {
		if IsConfigureHook(c, m) {
			return true
		}
	}
	return false
}

// Handlers returns the methods that count as handlers. When any method
// carries a verb directive only those are returned; otherwise every exported
// method that is neither a property nor the configuration hook.
func Handlers(c *decl.Class) []*decl.Method {
	var annotated, exported []*decl.Method
	for _, m := range c.Methods {
		if !m.Exported() || IsProperty(m) || IsConfigureHook(c, m) {
			continue
		}
		exported = append(exported, m)
		if _, _, ok := MethodVerb(m); ok {
			annotated = append(annotated, m)
		}
	}
	if len(annotated) > 0 {
		return annotated
	}
	return exported
}

// IsFallible reports whether the handler returns error or (T, error).
func IsFallible(m *decl.Method) bool {
	n := len(m.Results)
	return (n == 1 || n == 2) && m.Results[n-1] == "error"
}

// PayloadType extracts the payload of a (T, error) handler with the pointer
// marker stripped. A bare error handler has no payload.
func PayloadType(m *decl.Method) string {
	if len(m.Results) < 2 {
		return ""
	}
	return strings.TrimPrefix(m.Results[0], "*")
}
