package commands

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/terrascale/minimalendpoints/internal/cli/config"
	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
	"github.com/terrascale/minimalendpoints/internal/compiler/metadata"
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
//endpoint:authorize roles=Reader
type GetProduct struct {
	endpoint.Grouped[Catalog]
}

//endpoint:get products/{id}
//endpoint:param tenant header X-Tenant-ID
func (e *GetProduct) Handle(ctx context.Context, id string, tenant string) (*Product, error) {
	return nil, nil
}

type UploadImage struct {
	endpoint.Base ` + "`route:\"images\" method:\"POST\"`" + `
}

//endpoint:anonymous
func (u *UploadImage) Handle(file *multipart.FileHeader) error { return nil }

type Legacy struct {
	endpoint.Base
}

func (Legacy) HttpMethod() string { return http.MethodDelete }

func (l *Legacy) Handle() error { return nil }

type Product struct{}
`

const brokenSrc = `package catalog

import "github.com/terrascale/minimalendpoints/pkg/endpoint"

type Ping struct {
	endpoint.Base
}

//endpoint:get ping
func (p *Ping) Handle() string { return "" }
`

// useSource makes the pipeline parse src instead of loading packages.
func useSource(t *testing.T, src string) {
	t.Helper()
	prev := loadSnapshot
	loadSnapshot = func(ctx context.Context, cfg *config.Config, log *zap.Logger) (*decl.Snapshot, error) {
		return source.ParseFiles("example.com/shop", "example.com/shop/catalog", source.File{Name: "catalog.go", Src: src})
	}
	t.Cleanup(func() { loadSnapshot = prev })
}

// projectDir creates a project directory holding config as endpointgen.yaml.
func projectDir(t *testing.T, config string) string {
	t.Helper()
	dir := t.TempDir()
	if config != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "endpointgen.yaml"), []byte(config), 0o644))
	}
	return dir
}

func run(t *testing.T, dir string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errb bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(append([]string{"-C", dir, "--no-color"}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(&errb)
	err = cmd.Execute()
	return out.String(), errb.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "endpointgen", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"version", "generate", "check", "routes"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"dir", "verbose", "json", "no-color"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "missing --%s", flag)
	}
}

func TestVersionCommand(t *testing.T) {
	Version = "1.2.3-test"
	t.Cleanup(func() { Version = "dev" })

	stdout, _, err := run(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "endpointgen version: 1.2.3-test")
	assert.Contains(t, stdout, "Go version: ")
}

func TestGenerateCommand_WritesFiles(t *testing.T) {
	useSource(t, catalogSrc)
	dir := projectDir(t, `
output:
  file: routes/endpoints_gen.go
manifest:
  file: build/routes.yaml
`)

	stdout, stderr, err := run(t, dir, "generate")
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, "✓ Generated endpoint registration")
	assert.Contains(t, stdout, "Endpoints: 3")
	assert.Contains(t, stdout, filepath.Join("routes", "endpoints_gen.go"))

	src, err := os.ReadFile(filepath.Join(dir, "routes", "endpoints_gen.go"))
	require.NoError(t, err)
	code := string(src)
	assert.Contains(t, code, "package generated_example_com_shop")
	assert.Contains(t, code, "func MapEndpoints(r chi.Router, s *endpoint.Services) {")
	assert.Contains(t, code, "endpoint.MapGroup[catalog.Catalog](r, s, func(g chi.Router) {")
	assert.Contains(t, code, `endpoint.Header[string](rc, "X-Tenant-ID")`)

	m, err := metadata.ReadFromFile(filepath.Join(dir, "build", "routes.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "example.com/shop", m.Identity)
	assert.Len(t, m.Routes, 3)
}

func TestGenerateCommand_FlagOverrides(t *testing.T) {
	useSource(t, catalogSrc)
	dir := projectDir(t, "")

	_, stderr, err := run(t, dir, "generate", "-o", "api/gen.go", "-p", "api", "-m", "routes.json.gz")
	require.NoError(t, err, stderr)

	src, err := os.ReadFile(filepath.Join(dir, "api", "gen.go"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "package api")

	m, err := metadata.ReadFromFile(filepath.Join(dir, "routes.json.gz"))
	require.NoError(t, err)
	assert.Len(t, m.Routes, 3)
}

func TestGenerateCommand_DryRun(t *testing.T) {
	useSource(t, catalogSrc)
	dir := projectDir(t, "")

	stdout, _, err := run(t, dir, "generate", "--dry-run")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "// Code generated by endpointgen. DO NOT EDIT."))

	_, err = os.Stat(filepath.Join(dir, "endpoints_gen.go"))
	assert.True(t, os.IsNotExist(err), "dry run should not write files")
}

func TestGenerateCommand_Diagnostics(t *testing.T) {
	useSource(t, brokenSrc)
	dir := projectDir(t, "")

	_, stderr, err := run(t, dir, "generate")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errReported))
	assert.Contains(t, stderr, "error ME001")
	assert.Contains(t, stderr, "GENERATION FAILED")
	assert.Contains(t, stderr, "1 error, 0 warnings")

	_, err = os.Stat(filepath.Join(dir, "endpoints_gen.go"))
	assert.True(t, os.IsNotExist(err), "nothing should be written when analysis fails")
}

func TestCheckCommand_ShowsSource(t *testing.T) {
	useSource(t, brokenSrc)
	dir := projectDir(t, "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.go"), []byte(brokenSrc), 0o644))

	_, stderr, err := run(t, dir, "check")
	require.ErrorIs(t, err, errDiagnostics)
	assert.Contains(t, stderr, "//endpoint:get ping")
	assert.Contains(t, stderr, ">   10 | func (p *Ping) Handle() string")
}

func TestGenerateCommand_InvalidPackage(t *testing.T) {
	useSource(t, catalogSrc)
	dir := projectDir(t, "")

	stdout, _, err := run(t, dir, "--json", "generate", "-p", "bad-name")
	require.Error(t, err)

	var report generateReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.False(t, report.Success)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, "GEN601", string(report.Diagnostics[0].Code))
}

func TestGenerateCommand_BadConfig(t *testing.T) {
	useSource(t, catalogSrc)
	dir := projectDir(t, "output:\n  file: routes.txt\n")

	_, _, err := run(t, dir, "generate")
	require.Error(t, err)
	assert.False(t, stderrors.Is(err, errReported))
	assert.Contains(t, err.Error(), ".go file")
}

func TestCheckCommand(t *testing.T) {
	useSource(t, catalogSrc)
	stdout, _, err := run(t, projectDir(t, ""), "check")
	require.NoError(t, err)
	assert.Contains(t, stdout, "3 endpoints checked")
}

func TestCheckCommand_Errors(t *testing.T) {
	useSource(t, brokenSrc)
	stdout, _, err := run(t, projectDir(t, ""), "--json", "check")
	require.ErrorIs(t, err, errDiagnostics)

	var report checkReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.False(t, report.Success)
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 0, report.Endpoints)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, "ME001", string(report.Diagnostics[0].Code))
}

func TestRoutesCommand(t *testing.T) {
	useSource(t, catalogSrc)
	dir := projectDir(t, "")

	stdout, _, err := run(t, dir, "routes")
	require.NoError(t, err)
	for _, want := range []string{"METHOD", "/products/{id}", "Catalog API", "roles:Reader", "anonymous", "DELETE"} {
		assert.Contains(t, stdout, want)
	}

	stdout, _, err = run(t, dir, "--json", "routes", "--method", "delete")
	require.NoError(t, err)
	var routes []metadata.RouteMetadata
	require.NoError(t, json.Unmarshal([]byte(stdout), &routes))
	require.Len(t, routes, 1)
	assert.Equal(t, "example.com/shop/catalog.Legacy", routes[0].Endpoint)
}

func TestRoutesCommand_UnknownGroup(t *testing.T) {
	useSource(t, catalogSrc)

	_, stderr, err := run(t, projectDir(t, ""), "routes", "--group", "Catalog AP")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errReported))
	assert.Contains(t, stderr, "UNKNOWN GROUP")
	assert.Contains(t, stderr, "Did you mean: Catalog API?")
}

func TestRoutesCommand_FromManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.json")
	require.NoError(t, metadata.WriteToFile(&metadata.Manifest{
		Identity: "example.com/shop",
		Routes: []metadata.RouteMetadata{
			{Method: "GET", Path: "/a", Endpoint: "x.A", Group: "Admin"},
			{Method: "POST", Path: "/b", Endpoint: "x.B", Group: "Public"},
		},
	}, path, metadata.FormatJSON))

	stdout, _, err := run(t, dir, "routes", "--manifest", path, "--group", "Admin")
	require.NoError(t, err)
	assert.Contains(t, stdout, "x.A")
	assert.NotContains(t, stdout, "x.B")
}

func TestFilterRoutes(t *testing.T) {
	m := &metadata.Manifest{
		Groups: []metadata.GroupMetadata{{Name: "Admin", Routes: 1}},
		Routes: []metadata.RouteMetadata{
			{Method: "GET", Path: "/a", Group: "Admin"},
			{Method: "GET", Path: "/b", Group: "Health"},
		},
	}

	routes, err := filterRoutes(m, &routesOptions{group: "Health"})
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "/b", routes[0].Path)

	routes, err = filterRoutes(m, &routesOptions{method: "post"})
	require.NoError(t, err)
	assert.Empty(t, routes)

	_, err = filterRoutes(m, &routesOptions{group: "Nope"})
	assert.Error(t, err)

	assert.Equal(t, []string{"Admin", "Health"}, groupNames(m))
}

func TestRoutesCommand_Markdown(t *testing.T) {
	useSource(t, catalogSrc)

	stdout, _, err := run(t, projectDir(t, ""), "routes", "--markdown", "--group", "Catalog API")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "# example.com/shop Routes"))
	assert.Contains(t, stdout, "### GET /products/{id}")
	assert.NotContains(t, stdout, "### DELETE /")
}
