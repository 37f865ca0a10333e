// Package codegen emits the registration source and route manifest for a
// resolved descriptor set.
package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"strings"

	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
	"github.com/terrascale/minimalendpoints/internal/compiler/errors"
	"github.com/terrascale/minimalendpoints/internal/compiler/metadata"
	"github.com/terrascale/minimalendpoints/internal/compiler/model"
)

const (
	// DefaultOutputFile is the registration source file name.
	DefaultOutputFile = "endpoints_gen.go"
	// ChiPackage is the router package generated code maps onto.
	ChiPackage = "github.com/go-chi/chi/v5"

	packagePrefix = "generated_"
)

// Options configures emission.
type Options struct {
	// PackageName overrides the generated package name.
	PackageName string
	// OutputFile is the registration source path. Defaults to
	// DefaultOutputFile.
	OutputFile string
	// ManifestFile is the route manifest path. Empty disables the manifest.
	ManifestFile   string
	ManifestFormat metadata.Format
	// Version is recorded in the manifest.
	Version string
	// BaseDir makes manifest source paths relative.
	BaseDir string
}

// File is one generated output.
type File struct {
	Path    string
	Content []byte
}

// Generator transforms a descriptor set into Go source
type Generator struct {
	opts    Options
	buf     *bytes.Buffer
	indent  int
	imports *importSet
	funcs   map[*model.EndpointDescriptor]string
	errs    errors.ErrorList
}

// NewGenerator creates a new code generator
func NewGenerator(opts Options) *Generator {
	if opts.OutputFile == "" {
		opts.OutputFile = DefaultOutputFile
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	return &Generator{
		opts: opts,
		buf:  &bytes.Buffer{},
	}
}

// Emit generates every output for set: the registration source and, when
// configured, the route manifest.
func Emit(set *model.Set, opts Options) ([]File, error) {
	return NewGenerator(opts).Emit(set)
}

// Emit generates every output for set.
func (g *Generator) Emit(set *model.Set) ([]File, error) {
	if set == nil {
		return nil, fmt.Errorf("descriptor set cannot be nil")
	}

	src, err := g.GenerateRegistration(set)
	if err != nil {
		return nil, err
	}
	files := []File{{Path: g.opts.OutputFile, Content: src}}

	if g.opts.ManifestFile != "" {
		manifest, err := g.GenerateManifest(set)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Path: g.opts.ManifestFile, Content: manifest})
	}
	return files, nil
}

// GenerateRegistration produces the formatted AddEndpoints/MapEndpoints
// source for set.
func (g *Generator) GenerateRegistration(set *model.Set) ([]byte, error) {
	g.reset()

	pkgName, err := g.packageName(set.Identity)
	if err != nil {
		return nil, err
	}

	g.collectImports(set)
	g.assignFuncNames(set)
	body := g.generateBody(set)
	if len(g.errs) > 0 {
		return nil, g.errs
	}

	g.writeLine("// Code generated by endpointgen. DO NOT EDIT.")
	g.writeLine("")
	g.writeLine("package %s", pkgName)
	g.writeLine("")
	g.writeImports()
	g.writeLine("")
	g.buf.Write(body)

	out, err := format.Source(g.buf.Bytes())
	if err != nil {
		return nil, errors.NewCodeGenFailed(decl.SourceLocation{}, fmt.Sprintf("generated source does not parse: %v", err))
	}
	return out, nil
}

// generateBody renders everything below the import block into its own
// buffer, since the import block is only complete afterwards.
func (g *Generator) generateBody(set *model.Set) []byte {
	outer := g.buf
	g.buf = &bytes.Buffer{}
	defer func() { g.buf = outer }()

	g.generateAddEndpoints(set)
	g.writeLine("")
	g.generateMapEndpoints(set)

	for _, d := range set.Endpoints {
		g.writeLine("")
		g.generateEndpoint(d)
	}
	return g.buf.Bytes()
}

// packageName returns the configured package name or one derived from the
// identity.
func (g *Generator) packageName(identity string) (string, error) {
	if name := g.opts.PackageName; name != "" {
		if !token.IsIdentifier(name) {
			return "", errors.NewInvalidGoIdentifier(decl.SourceLocation{}, name, "not a valid identifier")
		}
		if name == "_" {
			return "", errors.NewInvalidGoIdentifier(decl.SourceLocation{}, name, "the blank identifier cannot name a package")
		}
		return name, nil
	}
	return PackageName(identity), nil
}

// PackageName derives the generated package name from an identity:
// "generated_" followed by the identity lowercased with every run of
// non-alphanumeric characters replaced by one underscore.
func PackageName(identity string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(identity) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	sanitized := strings.TrimSuffix(b.String(), "_")
	if sanitized == "" {
		return "generated"
	}
	return packagePrefix + sanitized
}

// reset clears the generator state
func (g *Generator) reset() {
	g.buf.Reset()
	g.indent = 0
	g.imports = newImportSet()
	g.funcs = make(map[*model.EndpointDescriptor]string)
	g.errs = nil
}

// writeLine writes a formatted line with proper indentation
func (g *Generator) writeLine(format string, args ...interface{}) {
	if format == "" {
		g.buf.WriteString("\n")
		return
	}

	for i := 0; i < g.indent; i++ {
		g.buf.WriteString("\t")
	}

	if len(args) > 0 {
		g.buf.WriteString(fmt.Sprintf(format, args...))
	} else {
		g.buf.WriteString(format)
	}
	g.buf.WriteString("\n")
}

// writeImports writes the import block: stdlib first, then external.
func (g *Generator) writeImports() {
	g.writeLine("import (")
	g.indent++

	var stdlibImports []string
	var externalImports []string

	for _, path := range g.imports.paths() {
		if isStdlib(path) {
			stdlibImports = append(stdlibImports, path)
		} else {
			externalImports = append(externalImports, path)
		}
	}

	for _, path := range stdlibImports {
		g.writeImport(path)
	}

	if len(stdlibImports) > 0 && len(externalImports) > 0 {
		g.writeLine("")
	}

	for _, path := range externalImports {
		g.writeImport(path)
	}

	g.indent--
	g.writeLine(")")
}

func (g *Generator) writeImport(path string) {
	alias := g.imports.alias(path)
	if g.imports.needsName(path) {
		g.writeLine("%s %q", alias, path)
		return
	}
	g.writeLine("%q", path)
}

func (g *Generator) fail(d *model.EndpointDescriptor, reason string) {
	g.errs.Add(errors.NewCodeGenFailed(d.Location, reason))
}

func isStdlib(path string) bool {
	first, _, _ := strings.Cut(path, "/")
	return !strings.Contains(first, ".")
}
