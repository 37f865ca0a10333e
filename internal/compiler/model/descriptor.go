// Package model holds the resolved endpoint descriptors: the single source of
// truth handed from the resolver to the emitter. Descriptors are built once
// and never mutated afterwards.
package model

import (
	"sort"

	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
)

// NoPayload is the payload type of a handler that only returns error.
const NoPayload = "void"

// BindingSource is where a handler parameter's value comes from.
type BindingSource string

const (
	SourceQuery   BindingSource = "query"
	SourceRoute   BindingSource = "route"
	SourceBody    BindingSource = "body"
	SourceHeader  BindingSource = "header"
	SourceForm    BindingSource = "form"
	SourceService BindingSource = "service"
	SourceUnbound BindingSource = "unbound"
)

// BindingSources lists the directive-driven sources in the order they are
// tested against a parameter.
var BindingSources = []BindingSource{
	SourceService, SourceBody, SourceRoute, SourceQuery, SourceHeader, SourceForm,
}

// ParseBindingSource maps a directive word to a binding source.
func ParseBindingSource(s string) (BindingSource, bool) {
	for _, b := range BindingSources {
		if string(b) == s {
			return b, true
		}
	}
	return "", false
}

// ParameterDescriptor describes one handler parameter.
type ParameterDescriptor struct {
	Name string `json:"name" yaml:"name"`
	// Type is the declared type, with its pointer marker when nil-able.
	Type   string        `json:"type" yaml:"type"`
	Source BindingSource `json:"source" yaml:"source"`
	// WireName overrides the header name for header-bound parameters.
	WireName    string `json:"wire_name,omitempty" yaml:"wire_name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Key is the name the value is looked up by on the wire.
func (p ParameterDescriptor) Key() string {
	if p.WireName != "" {
		return p.WireName
	}
	return p.Name
}

// ProducesDescriptor is one produced content declaration.
type ProducesDescriptor struct {
	Status       int      `json:"status" yaml:"status"`
	ResponseType string   `json:"response_type,omitempty" yaml:"response_type,omitempty"`
	ContentTypes []string `json:"content_types,omitempty" yaml:"content_types,omitempty"`
}

// Response is one status code description.
type Response struct {
	Status      int    `json:"status" yaml:"status"`
	Description string `json:"description" yaml:"description"`
}

// Responses is an ordered status to description mapping.
type Responses []Response

// Set inserts or overwrites the description for a status. A new status is
// appended; an existing one keeps its position.
func (r Responses) Set(status int, text string) Responses {
	for i := range r {
		if r[i].Status == status {
			r[i].Description = text
			return r
		}
	}
	return append(r, Response{Status: status, Description: text})
}

// Get returns the description for a status.
func (r Responses) Get(status int) (string, bool) {
	for _, resp := range r {
		if resp.Status == status {
			return resp.Description, true
		}
	}
	return "", false
}

// ValidStatus reports whether code lies in the HTTP status range.
func ValidStatus(code int) bool {
	return code >= 100 && code <= 599
}

// EndpointDescriptor is one resolved endpoint.
type EndpointDescriptor struct {
	// Identity
	ClassName     string `json:"class" yaml:"class"`
	QualifiedName string `json:"qualified_name" yaml:"qualified_name"`
	MethodName    string `json:"method" yaml:"method"`
	Namespace     string `json:"namespace" yaml:"namespace"`
	Package       string `json:"package" yaml:"package"`

	// Routing
	Verb          string `json:"verb" yaml:"verb"`
	Route         string `json:"route" yaml:"route"`
	ExplicitRoute bool   `json:"explicit_route" yaml:"explicit_route"`

	Parameters []ParameterDescriptor `json:"parameters,omitempty" yaml:"parameters,omitempty"`

	// Return contract
	ResultType  string `json:"result_type" yaml:"result_type"`
	PayloadType string `json:"payload_type" yaml:"payload_type"`

	// Policy
	RequireAuthorization bool     `json:"require_authorization" yaml:"require_authorization"`
	AllowAnonymous       bool     `json:"allow_anonymous" yaml:"allow_anonymous"`
	Policy               string   `json:"policy,omitempty" yaml:"policy,omitempty"`
	Roles                []string `json:"roles,omitempty" yaml:"roles,omitempty"`
	Schemes              []string `json:"schemes,omitempty" yaml:"schemes,omitempty"`

	// Documentation
	Summary       string            `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description   string            `json:"description,omitempty" yaml:"description,omitempty"`
	Tags          []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Responses     Responses         `json:"responses,omitempty" yaml:"responses,omitempty"`
	ParameterDocs map[string]string `json:"parameter_docs,omitempty" yaml:"parameter_docs,omitempty"`
	Deprecated    bool              `json:"deprecated" yaml:"deprecated"`

	// Contract
	Produces []ProducesDescriptor `json:"produces,omitempty" yaml:"produces,omitempty"`
	Consumes []string             `json:"consumes,omitempty" yaml:"consumes,omitempty"`

	// Grouping
	GroupName string       `json:"group" yaml:"group"`
	GroupType decl.TypeRef `json:"group_type,omitempty" yaml:"group_type,omitempty"`

	// Extensibility
	HasConfigure bool     `json:"has_configure" yaml:"has_configure"`
	Filters      []string `json:"filters,omitempty" yaml:"filters,omitempty"`
	// FilterRefs carries the filter types for emission, parallel to Filters.
	FilterRefs []decl.TypeRef `json:"-" yaml:"-"`

	// Imports maps qualifiers used in parameter and payload types to import
	// paths, as seen by the declaring file.
	Imports map[string]string `json:"-" yaml:"-"`

	Location decl.SourceLocation `json:"location" yaml:"location"`
}

// Key identifies the registration: verb plus route.
func (d *EndpointDescriptor) Key() string {
	return d.Verb + " " + d.Route
}

// Handler is the qualified handler name, e.g. "users.GetUser.Handle".
func (d *EndpointDescriptor) Handler() string {
	return d.Package + "." + d.ClassName + "." + d.MethodName
}

// HasPayload reports whether the handler returns a value besides error.
func (d *EndpointDescriptor) HasPayload() bool {
	return d.PayloadType != "" && d.PayloadType != NoPayload
}

// Grouped reports whether the endpoint is mapped inside a group type.
func (d *EndpointDescriptor) Grouped() bool {
	return !d.GroupType.IsZero()
}

// Set is the complete, ordered descriptor set of one compilation.
type Set struct {
	Identity  string                `json:"identity" yaml:"identity"`
	Endpoints []*EndpointDescriptor `json:"endpoints" yaml:"endpoints"`
}

// NewSet orders descriptors by qualified class name, then method name.
func NewSet(identity string, endpoints []*EndpointDescriptor) *Set {
	sorted := make([]*EndpointDescriptor, len(endpoints))
	copy(sorted, endpoints)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].QualifiedName != sorted[j].QualifiedName {
			return sorted[i].QualifiedName < sorted[j].QualifiedName
		}
		return sorted[i].MethodName < sorted[j].MethodName
	})
	return &Set{Identity: identity, Endpoints: sorted}
}

// Len returns the number of endpoints.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Endpoints)
}

// Groups returns the distinct group types in first-seen order.
func (s *Set) Groups() []decl.TypeRef {
	seen := make(map[string]bool)
	var out []decl.TypeRef
	for _, d := range s.Endpoints {
		if !d.Grouped() || seen[d.GroupType.Qualified()] {
			continue
		}
		seen[d.GroupType.Qualified()] = true
		out = append(out, d.GroupType)
	}
	return out
}

// InGroup returns the endpoints mapped inside the given group type.
func (s *Set) InGroup(ref decl.TypeRef) []*EndpointDescriptor {
	var out []*EndpointDescriptor
	for _, d := range s.Endpoints {
		if d.GroupType == ref {
			out = append(out, d)
		}
	}
	return out
}

// Ungrouped returns the endpoints mapped directly on the root router.
func (s *Set) Ungrouped() []*EndpointDescriptor {
	var out []*EndpointDescriptor
	for _, d := range s.Endpoints {
		if !d.Grouped() {
			out = append(out, d)
		}
	}
	return out
}

// Classes returns the distinct endpoint classes in set order.
func (s *Set) Classes() []*EndpointDescriptor {
	seen := make(map[string]bool)
	var out []*EndpointDescriptor
	for _, d := range s.Endpoints {
		if seen[d.QualifiedName] {
			continue
		}
		seen[d.QualifiedName] = true
		out = append(out, d)
	}
	return out
}
