package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
)

const usersSrc = `package users

import (
	"context"
	"mime/multipart"
	"net/http"

	"example.com/app/groups"
	"github.com/terrascale/minimalendpoints/pkg/endpoint"
)

// GetUser loads one user.
//
//endpoint:authorize admin roles=Admin,Owner
type GetUser struct {
	endpoint.Grouped[groups.Admin] ` + "`route:\"users\"`" + `
}

// Handle returns the user.
//
// Tags: users
//
//endpoint:get {id}
//endpoint:param id route
func (e *GetUser) Handle(ctx context.Context, id string) (*User, error) {
	return nil, nil
}

func (GetUser) Configure(b *endpoint.RouteBuilder) {}

type Upload struct {
	endpoint.Base
}

func (u *Upload) HttpMethod() string { return http.MethodPost }

func (u *Upload) Route() string {
	if u == nil {
		return "uploads"
	}
	return "files"
}

func (u *Upload) GroupType() any { return &groups.Files{} }

func (u *Upload) Handle(f *multipart.FileHeader) error { return nil }

//endpoint:gett nope
type Broken struct{}

type User struct {
	ID string
}
`

func parseUsers(t *testing.T) *decl.Snapshot {
	t.Helper()
	s, err := ParseFiles("app", "example.com/app/users", File{Name: "users.go", Src: usersSrc})
	require.NoError(t, err)
	return s
}

func lookup(t *testing.T, s *decl.Snapshot, name string) *decl.Class {
	t.Helper()
	c, ok := s.Lookup(decl.TypeRef{Package: "example.com/app/users", Name: name})
	require.True(t, ok, "class %s", name)
	return c
}

func TestParseFiles_Classes(t *testing.T) {
	s := parseUsers(t)

	var names []string
	for _, c := range s.Classes {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Broken", "GetUser", "Upload", "User"}, names)
	assert.Equal(t, "app", s.Identity)
}

func TestParseFiles_DirectivesAndDoc(t *testing.T) {
	c := lookup(t, parseUsers(t), "GetUser")

	require.Len(t, c.Directives, 1)
	auth := c.Directives[0]
	assert.Equal(t, decl.DirAuthorize, auth.Name)
	assert.Equal(t, "admin", auth.First())
	roles, ok := auth.Named("roles")
	require.True(t, ok)
	assert.Equal(t, []string{"Admin", "Owner"}, roles.Strings())
	assert.Equal(t, "GetUser loads one user.", c.Doc)
	assert.Equal(t, "users", c.PkgName)
	assert.Equal(t, "users.go", c.Location.File)
}

func TestParseFiles_GroupedBaseAndTags(t *testing.T) {
	c := lookup(t, parseUsers(t), "GetUser")

	require.Len(t, c.Bases, 1)
	b := c.Bases[0]
	assert.Equal(t, decl.TypeRef{Package: decl.ContractPackage, Name: "Grouped"}, b.Type)
	assert.Equal(t, []decl.TypeRef{{Package: "example.com/app/groups", Name: "Admin"}}, b.TypeArgs)
	assert.Equal(t, map[string]string{"route": "users"}, b.Tags)

	p, ok := c.Property(decl.PropRoute)
	require.True(t, ok)
	assert.Equal(t, decl.FormInitializer, p.Form)
	assert.Equal(t, decl.StringLit{Value: "users"}, p.Value)
}

func TestParseFiles_Methods(t *testing.T) {
	c := lookup(t, parseUsers(t), "GetUser")

	m, ok := c.Method("Handle")
	require.True(t, ok)
	assert.Equal(t, "e", m.Receiver)
	assert.True(t, m.PointerReceiver)
	assert.Equal(t, []decl.Param{{Name: "ctx", Type: "context.Context"}, {Name: "id", Type: "string"}}, m.Params)
	assert.Equal(t, []string{"*User", "error"}, m.Results)
	require.Len(t, m.Directives, 2)
	assert.Equal(t, "get", m.Directives[0].Name)
	assert.Equal(t, "{id}", m.Directives[0].First())
	assert.Equal(t, decl.DirParam, m.Directives[1].Name)
	assert.Equal(t, "Handle returns the user.\n\nTags: users", m.Doc)

	hook, ok := c.Method("Configure")
	require.True(t, ok)
	assert.True(t, hook.Static())
	assert.Equal(t, "*endpoint.RouteBuilder", hook.Params[0].Type)
	assert.Equal(t, "b", hook.Params[0].Name)
}

func TestParseFiles_PropertyForms(t *testing.T) {
	c := lookup(t, parseUsers(t), "Upload")

	verb, ok := c.Property(decl.PropHTTPMethod)
	require.True(t, ok)
	assert.Equal(t, decl.FormExpression, verb.Form)
	assert.Equal(t, []decl.Expr{decl.Selector{Qualifier: "http", Name: "MethodPost"}}, verb.Body.Returns)

	route, ok := c.Property(decl.PropRoute)
	require.True(t, ok)
	assert.Equal(t, decl.FormGetter, route.Form)
	assert.Equal(t, 2, route.Body.Statements)
	assert.Len(t, route.Body.Returns, 2)

	group, ok := c.Property(decl.PropGroupType)
	require.True(t, ok)
	assert.Equal(t, []decl.Expr{decl.TypeExpr{Type: "groups.Files"}}, group.Body.Returns)
}

func TestParseFiles_MalformedDirectiveIsAProblem(t *testing.T) {
	s := parseUsers(t)

	require.Len(t, s.Problems, 1)
	assert.Contains(t, s.Problems[0].Message, "gett")
	assert.Equal(t, "users.go", s.Problems[0].Location.File)
	assert.Empty(t, lookup(t, s, "Broken").Directives)
}

func TestParseFiles_MethodsAcrossFiles(t *testing.T) {
	s, err := ParseFiles("app", "example.com/app/orders",
		File{Name: "a.go", Src: "package orders\n\nimport \"github.com/terrascale/minimalendpoints/pkg/endpoint\"\n\ntype List struct{ endpoint.Base }\n"},
		File{Name: "b.go", Src: "package orders\n\nimport m \"example.com/app/models\"\n\n//endpoint:get orders\nfunc (l *List) Handle() ([]m.Order, error) { return nil, nil }\n"},
	)
	require.NoError(t, err)
	require.Len(t, s.Classes, 1)
	c := s.Classes[0]
	require.Len(t, c.Methods, 1)
	assert.Equal(t, "example.com/app/models", c.Imports["m"])
	assert.Equal(t, decl.ContractPackage, c.Imports["endpoint"])
}

func TestParseFiles_SyntaxError(t *testing.T) {
	_, err := ParseFiles("app", "example.com/x", File{Name: "bad.go", Src: "package x\nfunc {"})
	assert.Error(t, err)
}

func TestConvertExprTypeForms(t *testing.T) {
	src := `package g

import "reflect"

type A struct{}

func (A) GroupType() any { return G{} }
func (A) Name() any      { return new(G) }
func (A) Route() any     { return (*G)(nil) }
func (A) Method() any    { return reflect.TypeFor[G]() }
func (A) BaseRoute() any { return ("x") }
`
	s, err := ParseFiles("g", "example.com/g", File{Name: "g.go", Src: src})
	require.NoError(t, err)
	c := s.Classes[0]

	want := map[string]decl.Expr{
		decl.PropGroupType: decl.TypeExpr{Type: "G"},
		decl.PropName:      decl.TypeExpr{Type: "G"},
		decl.PropRoute:     decl.TypeExpr{Type: "G"},
		decl.PropMethod:    decl.TypeExpr{Type: "G"},
		decl.PropBaseRoute: decl.StringLit{Value: "x"},
	}
	for name, expr := range want {
		p, ok := c.Property(name)
		require.True(t, ok, name)
		assert.Equal(t, []decl.Expr{expr}, p.Body.Returns, name)
	}
}

func TestImportName(t *testing.T) {
	tests := map[string]string{
		"net/http":                    "http",
		"github.com/go-chi/chi/v5":    "chi",
		"gopkg.in/yaml.v3":            "yaml",
		"github.com/mattn/go-sqlite3": "sqlite3",
		"github.com/google/uuid":      "uuid",
	}
	for path, want := range tests {
		assert.Equal(t, want, ImportName(path), path)
	}
}

func TestSelected(t *testing.T) {
	assert.True(t, Selected("api/users.go", nil, nil))
	assert.True(t, Selected("api/users.go", []string{"api/**"}, nil))
	assert.False(t, Selected("internal/x.go", []string{"api/**"}, nil))
	assert.False(t, Selected("api/gen/out.go", []string{"api/**"}, []string{"**/gen/**"}))
}

func TestNewLoaderRejectsBadGlob(t *testing.T) {
	_, err := NewLoader(Options{Include: []string{"[unterminated"}})
	assert.Error(t, err)
}

func TestModulePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/demo\n\ngo 1.23\n"), 0o644))
	nested := filepath.Join(dir, "internal", "api")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	path, err := ModulePath(nested)
	require.NoError(t, err)
	assert.Equal(t, "example.com/demo", path)
}
