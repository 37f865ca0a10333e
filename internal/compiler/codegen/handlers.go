package codegen

import (
	"fmt"
	"go/token"
	"strconv"
	"strings"

	"github.com/terrascale/minimalendpoints/internal/compiler/model"
)

// binders maps a binding source to the host contract helper that reads it.
var binders = map[model.BindingSource]string{
	model.SourceRoute:   "Route",
	model.SourceQuery:   "Query",
	model.SourceHeader:  "Header",
	model.SourceForm:    "Form",
	model.SourceBody:    "Body",
	model.SourceService: "Service",
	model.SourceUnbound: "Infer",
}

// assignFuncNames gives every endpoint a unique mapping function name.
func (g *Generator) assignFuncNames(set *model.Set) {
	taken := make(map[string]bool)
	for _, d := range set.Endpoints {
		base := "map" + exportName(g.imports.alias(packagePath(d))) + exportName(d.ClassName)
		if d.MethodName != "Handle" {
			base += exportName(d.MethodName)
		}
		name := base
		for n := 2; taken[name]; n++ {
			name = base + strconv.Itoa(n)
		}
		taken[name] = true
		g.funcs[d] = name
	}
}

// generateEndpoint writes the mapping function of one endpoint.
func (g *Generator) generateEndpoint(d *model.EndpointDescriptor) {
	if !token.IsExported(d.ClassName) || !token.IsExported(d.MethodName) {
		g.fail(d, fmt.Sprintf("%s is not exported and cannot be registered from another package", d.Handler()))
		return
	}

	endpointType := g.imports.alias(packagePath(d)) + "." + d.ClassName

	g.writeLine("// %s maps %s %s to %s.", g.funcs[d], d.Verb, routePattern(d.Route), d.Handler())
	g.writeLine("func %s(r chi.Router, s *endpoint.Services) {", g.funcs[d])
	g.indent++

	g.writeLine("b := endpoint.Map(r, s, endpoint.%s, %q, func(rc *endpoint.Request) (any, error) {", verbConstant(d.Verb), routePattern(d.Route))
	g.indent++
	g.writeLine("ep, err := endpoint.Resolve[*%s](rc.Services)", endpointType)
	g.writeErrCheck()

	args := make([]string, 0, len(d.Parameters))
	for i, p := range d.Parameters {
		arg := "arg" + strconv.Itoa(i)
		if !g.generateBinding(d, p, arg) {
			return
		}
		args = append(args, arg)
	}

	call := fmt.Sprintf("ep.%s(%s)", d.MethodName, strings.Join(args, ", "))
	if d.HasPayload() {
		g.writeLine("return %s", call)
	} else {
		g.writeLine("return nil, %s", call)
	}
	g.indent--
	g.writeLine("})")

	g.generateRouteOptions(d, endpointType)

	g.indent--
	g.writeLine("}")
}

// generateBinding writes the statement that binds one handler argument.
func (g *Generator) generateBinding(d *model.EndpointDescriptor, p model.ParameterDescriptor, arg string) bool {
	typ, err := g.rewriteType(d, p.Type)
	if err != nil {
		g.fail(d, fmt.Sprintf("parameter %s: %v", p.Name, err))
		return false
	}

	binder, ok := binders[p.Source]
	if !ok {
		binder = binders[model.SourceUnbound]
	}

	switch p.Source {
	case model.SourceBody, model.SourceService:
		g.writeLine("%s, err := endpoint.%s[%s](rc)", arg, binder, typ)
	default:
		g.writeLine("%s, err := endpoint.%s[%s](rc, %q)", arg, binder, typ, p.Key())
	}
	g.writeErrCheck()
	return true
}

func (g *Generator) writeErrCheck() {
	g.writeLine("if err != nil {")
	g.indent++
	g.writeLine("return nil, err")
	g.indent--
	g.writeLine("}")
}

// generateRouteOptions writes the builder calls that carry the endpoint's
// policy, filters and metadata.
func (g *Generator) generateRouteOptions(d *model.EndpointDescriptor, endpointType string) {
	g.writeLine("b.WithName(%q)", d.ClassName)

	if d.GroupName != "" {
		g.writeLine("b.WithGroupName(%q)", d.GroupName)
	}

	if d.RequireAuthorization {
		if d.Policy != "" {
			g.writeLine("b.RequireAuthorization(%q)", d.Policy)
		} else {
			g.writeLine("b.RequireAuthorization()")
		}
		if len(d.Roles) > 0 {
			g.writeLine("b.WithRoles(%s)", quoteList(d.Roles))
		}
		if len(d.Schemes) > 0 {
			g.writeLine("b.WithSchemes(%s)", quoteList(d.Schemes))
		}
	}
	if d.AllowAnonymous {
		g.writeLine("b.AllowAnonymous()")
	}

	for _, f := range d.FilterRefs {
		g.writeLine("endpoint.UseFilter[%s](b)", g.typeName(d, f))
	}

	for _, p := range d.Produces {
		if len(p.ContentTypes) > 0 {
			g.writeLine("b.Produces(%d, %q, %s)", p.Status, p.ResponseType, quoteList(p.ContentTypes))
		} else {
			g.writeLine("b.Produces(%d, %q)", p.Status, p.ResponseType)
		}
	}
	if len(d.Consumes) > 0 {
		g.writeLine("b.Accepts(%s)", quoteList(d.Consumes))
	}

	if d.Summary != "" {
		g.writeLine("b.WithSummary(%q)", d.Summary)
	}
	if d.Description != "" {
		g.writeLine("b.WithDescription(%q)", d.Description)
	}
	if len(d.Tags) > 0 {
		g.writeLine("b.WithTags(%s)", quoteList(d.Tags))
	}
	for _, r := range d.Responses {
		g.writeLine("b.WithResponse(%d, %q)", r.Status, r.Description)
	}
	if d.Deprecated {
		g.writeLine("b.Deprecated()")
	}

	if d.HasConfigure {
		g.writeLine("new(%s).Configure(b)", endpointType)
	}
}

// routePattern roots a resolved route for the router.
func routePattern(route string) string {
	return "/" + strings.TrimPrefix(route, "/")
}

// verbConstant names the host contract constant for an upper-case verb.
func verbConstant(verb string) string {
	return "Method" + exportName(strings.ToLower(verb))
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = strconv.Quote(s)
	}
	return strings.Join(quoted, ", ")
}

func exportName(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
