package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/terrascale/minimalendpoints/internal/compiler/model"
)

// Extractor turns a descriptor set into a manifest
type Extractor struct {
	version string
	baseDir string // Source paths are recorded relative to this directory
}

// NewExtractor creates a new manifest extractor
func NewExtractor(version string) *Extractor {
	return &Extractor{version: version}
}

// SetBaseDir makes recorded source paths relative to dir
func (e *Extractor) SetBaseDir(dir string) {
	e.baseDir = dir
}

// Extract builds the manifest. Routes keep the set's order.
func (e *Extractor) Extract(set *model.Set) (*Manifest, error) {
	if set == nil {
		return nil, fmt.Errorf("descriptor set cannot be nil")
	}

	m := &Manifest{
		Version:  e.version,
		Identity: set.Identity,
		Routes:   make([]RouteMetadata, 0, set.Len()),
	}

	for _, d := range set.Endpoints {
		m.Routes = append(m.Routes, e.extractRoute(d))
	}
	m.Groups = extractGroups(set)
	m.SourceHash = computeSourceHash(set)

	return m, nil
}

func (e *Extractor) extractRoute(d *model.EndpointDescriptor) RouteMetadata {
	r := RouteMetadata{
		Method:      d.Verb,
		Path:        "/" + strings.TrimPrefix(d.Route, "/"),
		Handler:     d.Handler(),
		Endpoint:    d.QualifiedName,
		Group:       d.GroupName,
		Payload:     d.PayloadType,
		Filters:     d.Filters,
		Consumes:    d.Consumes,
		Summary:     d.Summary,
		Description: d.Description,
		Tags:        d.Tags,
		Deprecated:  d.Deprecated,
		FilePath:    e.relPath(d.Location.File),
		Line:        d.Location.Line,
	}

	for _, p := range d.Parameters {
		pm := ParamMetadata{Name: p.Name, Type: p.Type, Source: string(p.Source)}
		if p.Key() != p.Name {
			pm.Key = p.Key()
		}
		r.Params = append(r.Params, pm)
	}

	if d.RequireAuthorization || d.AllowAnonymous {
		r.Auth = &AuthMetadata{
			Required:  d.RequireAuthorization,
			Anonymous: d.AllowAnonymous,
			Policy:    d.Policy,
			Roles:     d.Roles,
			Schemes:   d.Schemes,
		}
	}

	for _, p := range d.Produces {
		r.Produces = append(r.Produces, ProduceMetadata{
			Status:       p.Status,
			Type:         p.ResponseType,
			ContentTypes: p.ContentTypes,
		})
	}

	if len(d.Responses) > 0 {
		r.Responses = make(map[int]string, len(d.Responses))
		for _, resp := range d.Responses {
			r.Responses[resp.Status] = resp.Description
		}
	}

	return r
}

func (e *Extractor) relPath(path string) string {
	if e.baseDir == "" || path == "" {
		return filepath.ToSlash(path)
	}
	if rel, err := filepath.Rel(e.baseDir, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

// extractGroups lists group types first, in set order, then name-only
// groups.
func extractGroups(set *model.Set) []GroupMetadata {
	var groups []GroupMetadata
	index := make(map[string]int)

	add := func(key, name, typ string) {
		if i, ok := index[key]; ok {
			groups[i].Routes++
			return
		}
		index[key] = len(groups)
		groups = append(groups, GroupMetadata{Name: name, Type: typ, Routes: 1})
	}

	for _, d := range set.Endpoints {
		if d.Grouped() {
			add("type:"+d.GroupType.Qualified(), d.GroupName, d.GroupType.Qualified())
		}
	}
	for _, d := range set.Endpoints {
		if !d.Grouped() {
			add("name:"+d.GroupName, d.GroupName, "")
		}
	}
	return groups
}

// computeSourceHash hashes everything that affects registration, in set
// order, for change detection.
func computeSourceHash(set *model.Set) string {
	h := sha256.New()
	h.Write([]byte(set.Identity))

	for _, d := range set.Endpoints {
		h.Write([]byte(d.Handler()))
		h.Write([]byte(d.Key()))
		h.Write([]byte(d.GroupName))
		h.Write([]byte(d.GroupType.Qualified()))
		h.Write([]byte(d.ResultType))

		for _, p := range d.Parameters {
			h.Write([]byte(p.Name))
			h.Write([]byte(p.Type))
			h.Write([]byte(p.Source))
			h.Write([]byte(p.WireName))
		}

		h.Write([]byte(fmt.Sprintf("%t:%t:%s", d.RequireAuthorization, d.AllowAnonymous, d.Policy)))
		for _, role := range d.Roles {
			h.Write([]byte(role))
		}
		for _, scheme := range d.Schemes {
			h.Write([]byte(scheme))
		}

		for _, f := range d.Filters {
			h.Write([]byte(f))
		}
		for _, p := range d.Produces {
			h.Write([]byte(fmt.Sprintf("%d:%s:%s", p.Status, p.ResponseType, strings.Join(p.ContentTypes, ","))))
		}
		for _, c := range d.Consumes {
			h.Write([]byte(c))
		}
		h.Write([]byte(fmt.Sprintf("%t:%t", d.HasConfigure, d.Deprecated)))
	}

	return hex.EncodeToString(h.Sum(nil))
}
