// Package discovery picks the candidate endpoint types out of a snapshot.
//
// Classification is permissive: a candidate only has to show one structural
// signal. False positives are weeded out later by the validator and the
// resolver, never here.
package discovery

import (
	"context"

	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
)

// Contract types that mark an endpoint.
const (
	BaseType    = "Base"
	GroupedType = "Grouped"
)

// IsMarkerBase reports whether b is endpoint.Base or endpoint.Grouped[G].
func IsMarkerBase(b decl.Base) bool {
	return b.Type.Is(decl.ContractPackage, BaseType) || b.Type.Is(decl.ContractPackage, GroupedType)
}

// IsCandidate looks only at the declaration itself: directives, properties
// and direct bases. It needs no other declarations.
func IsCandidate(c *decl.Class) bool {
	if c == nil {
		return false
	}
	if _, ok := c.Directive(decl.DirMinimal); ok {
		return true
	}
	if hasVerbDirective(c.Directives) {
		return true
	}
	for _, m := range c.Methods {
		if hasVerbDirective(m.Directives) {
			return true
		}
	}
	if c.HasProperty(decl.PropRoute, decl.PropBaseRoute) {
		return true
	}
	if c.HasProperty(decl.PropHTTPMethod, decl.PropMethod) {
		return true
	}
	for _, b := range c.Bases {
		if IsMarkerBase(b) {
			return true
		}
	}
	return false
}

// Classify returns c when it is a candidate, following embedded bases
// through the snapshot to find an inherited marker.
func Classify(ctx context.Context, s *decl.Snapshot, c *decl.Class) (*decl.Class, bool) {
	if ctx.Err() != nil || c == nil {
		return nil, false
	}
	if IsCandidate(c) || HasMarker(s, c) {
		return c, true
	}
	return nil, false
}

// HasMarker reports whether c embeds the marker, directly or through a base
// declared in the snapshot.
func HasMarker(s *decl.Snapshot, c *decl.Class) bool {
	_, ok := s.FindBase(c, IsMarkerBase)
	return ok
}

// Discover classifies every class of the snapshot in order. It stops early
// when ctx is done and returns what it found so far.
func Discover(ctx context.Context, s *decl.Snapshot) []*decl.Class {
	var out []*decl.Class
	for _, c := range s.Classes {
		if ctx.Err() != nil {
			return out
		}
		if cls, ok := Classify(ctx, s, c); ok {
			out = append(out, cls)
		}
	}
	return out
}

func hasVerbDirective(ds []decl.Directive) bool {
	for _, d := range ds {
		if _, ok := decl.VerbDirective(d.Name); ok {
			return true
		}
	}
	return false
}
