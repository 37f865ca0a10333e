package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
)

const pkg = "example.com/app/api"

func class(name string) *decl.Class {
	return &decl.Class{Name: name, Package: pkg, PkgName: "api"}
}

func contract(name string) decl.Base {
	return decl.Base{Type: decl.TypeRef{Package: decl.ContractPackage, Name: name}}
}

func TestIsCandidate(t *testing.T) {
	tests := []struct {
		name  string
		class func() *decl.Class
		want  bool
	}{
		{"plain struct", func() *decl.Class { return class("Plain") }, false},
		{"nil", func() *decl.Class { return nil }, false},
		{"legacy marker", func() *decl.Class {
			c := class("Legacy")
			c.Directives = []decl.Directive{{Name: decl.DirMinimal}}
			return c
		}, true},
		{"verb on method", func() *decl.Class {
			c := class("Verb")
			c.Methods = []*decl.Method{{Name: "Handle", Directives: []decl.Directive{{Name: "post"}}}}
			return c
		}, true},
		{"non-verb directive on method", func() *decl.Class {
			c := class("Filtered")
			c.Methods = []*decl.Method{{Name: "Handle", Directives: []decl.Directive{{Name: decl.DirFilter}}}}
			return c
		}, false},
		{"route property", func() *decl.Class {
			c := class("Routed")
			c.Properties = []decl.Property{{Name: decl.PropBaseRoute}}
			return c
		}, true},
		{"method property", func() *decl.Class {
			c := class("Method")
			c.Properties = []decl.Property{{Name: decl.PropMethod}}
			return c
		}, true},
		{"name property alone", func() *decl.Class {
			c := class("Group")
			c.Properties = []decl.Property{{Name: decl.PropName}}
			return c
		}, false},
		{"embeds Base", func() *decl.Class {
			c := class("Marked")
			c.Bases = []decl.Base{contract(BaseType)}
			return c
		}, true},
		{"embeds Grouped", func() *decl.Class {
			c := class("Grouped")
			c.Bases = []decl.Base{contract(GroupedType)}
			return c
		}, true},
		{"embeds unrelated Base", func() *decl.Class {
			c := class("Other")
			c.Bases = []decl.Base{{Type: decl.TypeRef{Package: "example.com/other", Name: "Base"}}}
			return c
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCandidate(tt.class()))
		})
	}
}

func TestClassify_InheritedMarker(t *testing.T) {
	base := class("AdminEndpoint")
	base.Bases = []decl.Base{contract(GroupedType)}

	derived := class("ListAudits")
	derived.Bases = []decl.Base{{Type: base.Ref()}}

	s := decl.NewSnapshot(pkg, []*decl.Class{derived, base}, nil)

	assert.False(t, IsCandidate(derived), "the direct check does not follow bases")

	got, ok := Classify(context.Background(), s, derived)
	require.True(t, ok)
	assert.Same(t, derived, got)
	assert.True(t, HasMarker(s, derived))
}

func TestHasMarker_Cycle(t *testing.T) {
	a := class("A")
	b := class("B")
	a.Bases = []decl.Base{{Type: b.Ref()}}
	b.Bases = []decl.Base{{Type: a.Ref()}}

	s := decl.NewSnapshot(pkg, []*decl.Class{a, b}, nil)
	assert.False(t, HasMarker(s, a))
}

func TestDiscover(t *testing.T) {
	marked := class("B")
	marked.Bases = []decl.Base{contract(BaseType)}
	routed := class("A")
	routed.Properties = []decl.Property{{Name: decl.PropRoute}}
	plain := class("C")

	s := decl.NewSnapshot(pkg, []*decl.Class{plain, marked, routed}, nil)

	got := Discover(context.Background(), s)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, "B", got[1].Name)
}

func TestDiscover_Cancelled(t *testing.T) {
	marked := class("A")
	marked.Bases = []decl.Base{contract(BaseType)}
	s := decl.NewSnapshot(pkg, []*decl.Class{marked}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, Discover(ctx, s))
	_, ok := Classify(ctx, s, marked)
	assert.False(t, ok)
}
