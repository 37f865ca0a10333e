package codegen

import (
	"github.com/terrascale/minimalendpoints/internal/compiler/model"
)

// generateAddEndpoints writes AddEndpoints, which registers every endpoint
// type with the host's services.
func (g *Generator) generateAddEndpoints(set *model.Set) {
	g.writeLine("// AddEndpoints registers every endpoint type with s. Types the host has")
	g.writeLine("// already registered keep their registration.")
	g.writeLine("func AddEndpoints(s *endpoint.Services) {")
	g.indent++
	for _, d := range set.Classes() {
		g.writeLine("endpoint.AddEndpoint[%s.%s](s)", g.imports.alias(packagePath(d)), d.ClassName)
	}
	g.indent--
	g.writeLine("}")
}

// generateMapEndpoints writes MapEndpoints: ungrouped endpoints first, then
// each group type with its endpoints inside one MapGroup call.
func (g *Generator) generateMapEndpoints(set *model.Set) {
	g.writeLine("// MapEndpoints maps every endpoint on r. Call it once, after AddEndpoints.")
	g.writeLine("func MapEndpoints(r chi.Router, s *endpoint.Services) {")
	g.indent++

	for _, d := range set.Ungrouped() {
		g.writeLine("%s(r, s)", g.funcs[d])
	}

	for _, ref := range set.Groups() {
		members := set.InGroup(ref)
		g.writeLine("endpoint.MapGroup[%s](r, s, func(g chi.Router) {", g.typeName(members[0], ref))
		g.indent++
		for _, d := range members {
			g.writeLine("%s(g, s)", g.funcs[d])
		}
		g.indent--
		g.writeLine("})")
	}

	g.indent--
	g.writeLine("}")
}
