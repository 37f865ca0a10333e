package resolver

import (
	"fmt"
	"strings"

	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
	"github.com/terrascale/minimalendpoints/internal/compiler/model"
)

// MultipartFormData is injected into consumes when a handler takes a file.
const MultipartFormData = "multipart/form-data"

// fileTypes are the type expressions that denote an uploaded file, keyed by
// the import path of their package.
var fileTypes = map[string][]string{
	"mime/multipart":     {"FileHeader", "File"},
	decl.ContractPackage: {"File"},
}

// paramBinding is what //endpoint:param lines say about one parameter.
type paramBinding struct {
	sources  map[model.BindingSource]bool
	wireName string
}

func collectBindings(m *decl.Method) map[string]*paramBinding {
	out := make(map[string]*paramBinding)
	for _, d := range m.DirectivesNamed(decl.DirParam) {
		name := d.First()
		srcArg, ok := d.Arg(1)
		if name == "" || !ok {
			continue
		}
		src, ok := model.ParseBindingSource(strings.ToLower(srcArg.String()))
		if !ok {
			continue
		}
		b := out[name]
		if b == nil {
			b = &paramBinding{sources: make(map[model.BindingSource]bool)}
			out[name] = b
		}
		b.sources[src] = true
		if wire, ok := d.Arg(2); ok && src == model.SourceHeader {
			b.wireName = wire.String()
		}
	}
	return out
}

// resolveParams classifies each parameter by testing the binding sources in
// their fixed order. The first source present wins.
func resolveParams(m *decl.Method, docs map[string]string) []model.ParameterDescriptor {
	bindings := collectBindings(m)
	params := make([]model.ParameterDescriptor, 0, len(m.Params))

	for i, p := range m.Params {
		name := p.Name
		if name == "" || name == "_" {
			name = fmt.Sprintf("p%d", i)
		}
		pd := model.ParameterDescriptor{
			Name:        name,
			Type:        p.Type,
			Source:      model.SourceUnbound,
			Description: docs[p.Name],
		}

		if b, ok := bindings[p.Name]; ok {
			for _, src := range model.BindingSources {
				if b.sources[src] {
					pd.Source = src
					break
				}
			}
			if pd.Source == model.SourceHeader {
				pd.WireName = b.wireName
			}
		}
		params = append(params, pd)
	}
	return params
}

// IsFileType reports whether a type expression written in c's file denotes
// an uploaded file, e.g. *multipart.FileHeader or []*multipart.FileHeader.
func IsFileType(c *decl.Class, typ string) bool {
	typ = strings.TrimLeft(strings.TrimSpace(typ), "[]*")
	qual, name, ok := strings.Cut(typ, ".")
	if !ok {
		return false
	}
	for _, n := range fileTypes[c.Imports[qual]] {
		if n == name {
			return true
		}
	}
	return false
}
