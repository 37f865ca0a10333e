package analyzer

import (
	"strings"

	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
	"github.com/terrascale/minimalendpoints/internal/compiler/discovery"
	"github.com/terrascale/minimalendpoints/internal/compiler/errors"
	"github.com/terrascale/minimalendpoints/internal/compiler/model"
	"github.com/terrascale/minimalendpoints/internal/compiler/resolver"
)

// validateClass runs the shape checks on a candidate class, whether or not
// its handlers resolve to a verb. It reports false when c must not contribute
// descriptors. A non-fallible handler is reported here once; the resolver
// skips it without reporting again.
func validateClass(s *decl.Snapshot, c *decl.Class, sink *errors.ErrorList) bool {
	ok := true

	if !discovery.HasMarker(s, c) {
		sink.Add(errors.NewMissingEndpointMarker(c.Location, c.Name))
		ok = false
	}

	handlers := resolver.Handlers(c)
	if len(handlers) > 1 {
		names := make([]string, len(handlers))
		for i, m := range handlers {
			names[i] = m.Name
		}
		sink.Add(errors.NewMultipleHandlers(c.Location, c.Name, len(handlers), names))
		ok = false
	}

	for _, m := range handlers {
		if !resolver.IsFallible(m) {
			sink.Add(errors.NewHandlerNotFallible(m.Location, m.Name, m.ResultList()))
		}
	}

	return ok
}

// problemsToDiagnostics reports what the source stage could not parse.
func problemsToDiagnostics(s *decl.Snapshot, sink *errors.ErrorList) {
	for _, p := range s.Problems {
		sink.Add(errors.NewMalformedDirective(p.Location, p.Message))
	}
}

// routeKey is the verb and rooted path an endpoint is served at. Grouped
// routes are keyed under the group's Prefix when it can be read, else under
// the group type name.
func routeKey(s *decl.Snapshot, d *model.EndpointDescriptor) string {
	route := d.Route
	if d.Grouped() {
		prefix := "{" + d.GroupType.Qualified() + "}"
		if gc, ok := s.Lookup(d.GroupType); ok {
			if p, ok := resolver.StringProperty(gc, decl.PropPrefix); ok {
				prefix = p
			}
		}
		route = resolver.Combine(prefix, strings.TrimPrefix(route, "/"))
	}
	return d.Verb + " /" + strings.TrimPrefix(resolver.NormalizeRoute(route), "/")
}
