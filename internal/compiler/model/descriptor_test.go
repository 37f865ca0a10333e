package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
)

func TestResponses_SetKeepsOrder(t *testing.T) {
	var r Responses
	r = r.Set(200, "OK")
	r = r.Set(404, "Not found")
	r = r.Set(200, "The user")
	r = r.Set(500, "Boom")

	require.Len(t, r, 3)
	assert.Equal(t, []int{200, 404, 500}, []int{r[0].Status, r[1].Status, r[2].Status})

	text, ok := r.Get(200)
	assert.True(t, ok)
	assert.Equal(t, "The user", text)

	_, ok = r.Get(201)
	assert.False(t, ok)
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(100))
	assert.True(t, ValidStatus(599))
	assert.False(t, ValidStatus(99))
	assert.False(t, ValidStatus(600))
}

func TestParseBindingSource(t *testing.T) {
	src, ok := ParseBindingSource("header")
	assert.True(t, ok)
	assert.Equal(t, SourceHeader, src)

	_, ok = ParseBindingSource("unbound")
	assert.False(t, ok, "unbound is not a directive source")

	assert.Equal(t, "X-Tenant", ParameterDescriptor{Name: "tenant", WireName: "X-Tenant"}.Key())
	assert.Equal(t, "tenant", ParameterDescriptor{Name: "tenant"}.Key())
}

func endpoint(qualified, method string, group decl.TypeRef) *EndpointDescriptor {
	return &EndpointDescriptor{QualifiedName: qualified, MethodName: method, GroupType: group}
}

func TestNewSet_OrdersByClassThenMethod(t *testing.T) {
	in := []*EndpointDescriptor{
		endpoint("b.Users", "Handle", decl.TypeRef{}),
		endpoint("a.Orders", "Post", decl.TypeRef{}),
		endpoint("a.Orders", "Get", decl.TypeRef{}),
	}
	s := NewSet("app", in)

	var got []string
	for _, d := range s.Endpoints {
		got = append(got, d.QualifiedName+"."+d.MethodName)
	}
	assert.Equal(t, []string{"a.Orders.Get", "a.Orders.Post", "b.Users.Handle"}, got)
	assert.Equal(t, "b.Users", in[0].QualifiedName, "NewSet must not reorder its input")
	assert.Equal(t, 3, s.Len())
	assert.Len(t, s.Classes(), 2)

	var nilSet *Set
	assert.Zero(t, nilSet.Len())
}

func TestSet_Groups(t *testing.T) {
	admin := decl.TypeRef{Package: "example.com/app/groups", Name: "Admin"}
	public := decl.TypeRef{Package: "example.com/app/groups", Name: "Public"}

	s := NewSet("app", []*EndpointDescriptor{
		endpoint("a.A", "Handle", public),
		endpoint("a.B", "Handle", admin),
		endpoint("a.C", "Handle", decl.TypeRef{}),
		endpoint("a.D", "Handle", public),
	})

	assert.Equal(t, []decl.TypeRef{public, admin}, s.Groups())
	require.Len(t, s.InGroup(public), 2)
	assert.Equal(t, "a.D", s.InGroup(public)[1].QualifiedName)
	assert.Len(t, s.InGroup(admin), 1)
	require.Len(t, s.Ungrouped(), 1)
	assert.Equal(t, "a.C", s.Ungrouped()[0].QualifiedName)
}

func TestEndpointDescriptor_Helpers(t *testing.T) {
	d := &EndpointDescriptor{
		Package:     "users",
		ClassName:   "GetUser",
		MethodName:  "Handle",
		Verb:        "GET",
		Route:       "users/{id}",
		PayloadType: NoPayload,
	}
	assert.Equal(t, "GET users/{id}", d.Key())
	assert.Equal(t, "users.GetUser.Handle", d.Handler())
	assert.False(t, d.HasPayload())
	assert.False(t, d.Grouped())

	d.PayloadType = "User"
	assert.True(t, d.HasPayload())
}
