package analyzer

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
	"github.com/terrascale/minimalendpoints/internal/compiler/model"
	"github.com/terrascale/minimalendpoints/internal/compiler/source"
)

const catalogSrc = `package catalog

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/terrascale/minimalendpoints/pkg/endpoint"
)

type Catalog struct{}

func (Catalog) Name() string   { return "Catalog API" }
func (Catalog) Prefix() string { return "/catalog" }

// GetProduct returns one product.
//
// Looks the product up by id.
//
// Response 404: Product not found
//
//endpoint:authorize roles=Reader
type GetProduct struct {
	endpoint.Grouped[Catalog]
}

//endpoint:get products/{id}
//endpoint:param id route
//endpoint:param tenant header X-Tenant-ID
//endpoint:response 200 "The product"
func (e *GetProduct) Handle(ctx context.Context, id string, tenant string) (*Product, error) {
	return nil, nil
}

func (GetProduct) Configure(b *endpoint.RouteBuilder) {}

type UploadImage struct {
	endpoint.Base ` + "`route:\"images\" method:\"POST\"`" + `
}

//endpoint:anonymous
func (u *UploadImage) Handle(file *multipart.FileHeader) error { return nil }

type Legacy struct {
	endpoint.Base
}

func (Legacy) HttpMethod() string { return http.MethodDelete }

//endpoint:filter Audit
func (l *Legacy) Handle() error { return nil }

type Audit struct{}

type Product struct{}
`

func TestAnalyze_FromSource(t *testing.T) {
	s, err := source.ParseFiles("shop", "example.com/shop/catalog", source.File{Name: "catalog.go", Src: catalogSrc})
	require.NoError(t, err)
	require.Empty(t, s.Problems)

	res, err := Analyze(context.Background(), s)
	require.NoError(t, err)
	require.Empty(t, res.Diagnostics)
	require.Equal(t, 3, res.Set.Len())

	catalog := decl.TypeRef{Package: "example.com/shop/catalog", Name: "Catalog"}
	want := []*model.EndpointDescriptor{
		{
			ClassName:     "GetProduct",
			QualifiedName: "example.com/shop/catalog.GetProduct",
			MethodName:    "Handle",
			Namespace:     "example.com/shop/catalog",
			Package:       "catalog",
			Verb:          "GET",
			Route:         "products/{id}",
			ExplicitRoute: true,
			Parameters: []model.ParameterDescriptor{
				{Name: "ctx", Type: "context.Context", Source: model.SourceUnbound},
				{Name: "id", Type: "string", Source: model.SourceRoute},
				{Name: "tenant", Type: "string", Source: model.SourceHeader, WireName: "X-Tenant-ID"},
			},
			ResultType:           "(*Product, error)",
			PayloadType:          "Product",
			RequireAuthorization: true,
			Roles:                []string{"Reader"},
			GroupName:            "Catalog API",
			GroupType:            catalog,
			HasConfigure:         true,
		},
		{
			ClassName:     "Legacy",
			QualifiedName: "example.com/shop/catalog.Legacy",
			MethodName:    "Handle",
			Namespace:     "example.com/shop/catalog",
			Package:       "catalog",
			Verb:          "DELETE",
			ResultType:    "error",
			PayloadType:   model.NoPayload,
			GroupName:     "Legacy",
			Filters:       []string{"example.com/shop/catalog.Audit"},
			FilterRefs:    []decl.TypeRef{{Package: "example.com/shop/catalog", Name: "Audit"}},
		},
		{
			ClassName:     "UploadImage",
			QualifiedName: "example.com/shop/catalog.UploadImage",
			MethodName:    "Handle",
			Namespace:     "example.com/shop/catalog",
			Package:       "catalog",
			Verb:          "POST",
			Route:         "images",
			ExplicitRoute: true,
			Parameters: []model.ParameterDescriptor{
				{Name: "file", Type: "*multipart.FileHeader", Source: model.SourceUnbound},
			},
			ResultType:     "error",
			PayloadType:    model.NoPayload,
			AllowAnonymous: true,
			Consumes:       []string{"multipart/form-data"},
			GroupName:      "UploadImage",
		},
	}

	ignore := cmpopts.IgnoreFields(model.EndpointDescriptor{},
		"Imports", "Location", "Summary", "Description", "Responses", "ParameterDocs")
	if diff := cmp.Diff(want, res.Set.Endpoints, ignore, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("descriptors mismatch (-want +got):\n%s", diff)
	}

	get := res.Set.Endpoints[0]
	desc, ok := get.Responses.Get(200)
	require.True(t, ok)
	assert.Equal(t, "The product", desc)
	assert.Equal(t, "catalog.go", get.Location.File)
}

func TestAnalyze_TypeLevelVerbFromSource(t *testing.T) {
	const src = `package ping

import (
	"context"

	"github.com/terrascale/minimalendpoints/pkg/endpoint"
)

//endpoint:get api/ping
type Ping struct {
	endpoint.Base
}

func (p *Ping) Handle(ctx context.Context) (string, error) { return "pong", nil }
`
	s, err := source.ParseFiles("app", "example.com/app/ping", source.File{Name: "ping.go", Src: src})
	require.NoError(t, err)

	res, err := Analyze(context.Background(), s)
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)
	require.Equal(t, 1, res.Set.Len())
	assert.Equal(t, "GET", res.Set.Endpoints[0].Verb)
	assert.Equal(t, "api/ping", res.Set.Endpoints[0].Route)
}

func TestAnalyze_NotFallibleWithoutVerbFromSource(t *testing.T) {
	const src = `package ping

import "github.com/terrascale/minimalendpoints/pkg/endpoint"

type Ping struct {
	endpoint.Base
}

func (Ping) Route() string { return "ping" }

func (p *Ping) Handle() string { return "" }
`
	s, err := source.ParseFiles("app", "example.com/app/ping", source.File{Name: "ping.go", Src: src})
	require.NoError(t, err)

	res, err := Analyze(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "ME001", string(res.Diagnostics[0].Code))
	assert.Zero(t, res.Set.Len())
}
