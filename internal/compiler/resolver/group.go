package resolver

import (
	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
)

// group is the outcome of one group strategy.
type group struct {
	name string
	ref  decl.TypeRef
}

// groupStrategy tries one source of a group name. It reports false to let
// the next strategy run.
type groupStrategy func(s *decl.Snapshot, c *decl.Class) (group, bool)

// groupStrategies are tried in order; the first non-empty name wins.
var groupStrategies = []groupStrategy{
	groupFromGroupedBase,
	groupFromGroupTypeProperty,
	groupFromDirective,
	groupFromClassName,
}

func resolveGroup(s *decl.Snapshot, c *decl.Class) group {
	for _, strategy := range groupStrategies {
		if g, ok := strategy(s, c); ok && g.name != "" {
			return g
		}
	}
	return group{name: c.Name}
}

// GroupedBase finds an endpoint.Grouped[G] base, direct or inherited, and
// returns G.
func GroupedBase(s *decl.Snapshot, c *decl.Class) (decl.TypeRef, bool) {
	b, ok := s.FindBase(c, func(b decl.Base) bool {
		return b.Type.Is(decl.ContractPackage, "Grouped") && len(b.TypeArgs) == 1
	})
	if !ok {
		return decl.TypeRef{}, false
	}
	return b.TypeArgs[0], true
}

func groupFromGroupedBase(s *decl.Snapshot, c *decl.Class) (group, bool) {
	ref, ok := GroupedBase(s, c)
	if !ok {
		return group{}, false
	}
	return group{name: groupDisplayName(s, ref), ref: ref}, true
}

// groupDisplayName reads the group type's Name property, falling back to
// the bare type name when it cannot be read statically.
func groupDisplayName(s *decl.Snapshot, ref decl.TypeRef) string {
	if gc, ok := s.Lookup(ref); ok {
		if name, ok := StringProperty(gc, decl.PropName); ok {
			return name
		}
	}
	return ref.Name
}

func groupFromGroupTypeProperty(s *decl.Snapshot, c *decl.Class) (group, bool) {
	lit, ok := ReadNamed(c, decl.PropGroupType)
	if !ok || lit.Kind != LitType {
		return group{}, false
	}
	return group{name: lit.Type.Name, ref: lit.Type}, true
}

func groupFromDirective(_ *decl.Snapshot, c *decl.Class) (group, bool) {
	d, ok := c.Directive(decl.DirGroup)
	if !ok {
		return group{}, false
	}
	return group{name: d.First()}, true
}

func groupFromClassName(_ *decl.Snapshot, c *decl.Class) (group, bool) {
	return group{name: c.Name}, true
}
