// Package resolver turns a candidate endpoint class and one of its handler
// methods into a fully specified EndpointDescriptor.
//
// Resolution never fails hard. Unreadable property bodies fall through to the
// next precedence level, and a handler with no resolvable verb is simply not
// an endpoint. Shape problems such as a non-fallible handler are reported by
// the class validator, so the resolver only skips them.
package resolver

import (
	"context"
	"strconv"

	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
	"github.com/terrascale/minimalendpoints/internal/compiler/errors"
	"github.com/terrascale/minimalendpoints/internal/compiler/model"
)

// Resolver resolves handlers against one snapshot. It holds no mutable
// state and may be shared between goroutines.
type Resolver struct {
	snapshot *decl.Snapshot
}

// New creates a resolver for the snapshot. Group types and inherited bases
// are looked up in it.
func New(snapshot *decl.Snapshot) *Resolver {
	return &Resolver{snapshot: snapshot}
}

// Resolve builds the descriptor for handler m of class c. It reports false
// when m is not an endpoint, when it is not fallible, or when ctx is done.
// Shape problems belong to the class validator and are not repeated in sink.
func (r *Resolver) Resolve(ctx context.Context, c *decl.Class, m *decl.Method, sink *errors.ErrorList) (*model.EndpointDescriptor, bool) {
	if ctx.Err() != nil {
		return nil, false
	}

	verb, methodRoute, ok := resolveVerb(c, m)
	if !ok {
		return nil, false
	}

	if !IsFallible(m) {
		return nil, false
	}

	base := baseRoute(c)
	doc := ParseDoc(m.Doc)
	params := resolveParams(m, doc.Params)
	auth := resolveAuth(c, m)
	grp := resolveGroup(r.snapshot, c)

	d := &model.EndpointDescriptor{
		ClassName:     c.Name,
		QualifiedName: c.QualifiedName(),
		MethodName:    m.Name,
		Namespace:     c.Package,
		Package:       c.PkgName,

		Verb:          verb,
		Route:         NormalizeRoute(Combine(base, methodRoute)),
		ExplicitRoute: base != "" || methodRoute != "",

		Parameters: params,

		ResultType:  m.ResultList(),
		PayloadType: model.NoPayload,

		RequireAuthorization: auth.required,
		AllowAnonymous:       auth.anonymous,
		Policy:               auth.policy,
		Roles:                auth.roles,
		Schemes:              auth.schemes,

		Summary:       doc.Summary,
		Description:   doc.Description,
		Tags:          doc.Tags,
		Responses:     mergeResponses(doc.Responses, m),
		ParameterDocs: doc.Params,
		Deprecated:    doc.Deprecated,

		Produces: resolveProduces(m),
		Consumes: resolveConsumes(c, m, params),

		GroupName: grp.name,
		GroupType: grp.ref,

		HasConfigure: HasConfigureHook(c),
		Imports:      c.Imports,
		Location:     m.Location,
	}

	if payload := PayloadType(m); payload != "" {
		d.PayloadType = payload
	}
	if _, ok := m.Directive(decl.DirDeprecated); ok {
		d.Deprecated = true
	}
	d.Filters, d.FilterRefs = resolveFilters(c, m)

	return d, true
}

// resolveVerb applies the verb precedence: a method-level verb directive,
// then a verb directive on the type, then the class HttpMethod/Method
// property.
func resolveVerb(c *decl.Class, m *decl.Method) (verb, route string, ok bool) {
	if d, verb, ok := MethodVerb(m); ok {
		return verb, d.First(), true
	}
	if d, verb, ok := ClassVerb(c); ok {
		return verb, d.First(), true
	}

	lit, ok := ReadNamed(c, decl.PropHTTPMethod, decl.PropMethod)
	if !ok {
		return "", "", false
	}
	switch lit.Kind {
	case LitVerb:
		return lit.Value, "", true
	case LitString:
		if verb, ok := decl.LookupVerb(lit.Value); ok {
			return verb, "", true
		}
	}
	return "", "", false
}

// baseRoute is the class Route/BaseRoute property, then the legacy marker's
// route argument.
func baseRoute(c *decl.Class) string {
	if route, ok := StringProperty(c, decl.PropRoute, decl.PropBaseRoute); ok {
		return route
	}
	if d, ok := c.Directive(decl.DirMinimal); ok {
		return d.First()
	}
	return ""
}

// mergeResponses applies response directives over the doc-derived entries.
func mergeResponses(fromDoc model.Responses, m *decl.Method) model.Responses {
	out := make(model.Responses, 0, len(fromDoc))
	out = append(out, fromDoc...)
	for _, d := range m.DirectivesNamed(decl.DirResponse) {
		code, err := strconv.Atoi(d.First())
		if err != nil || !model.ValidStatus(code) {
			continue
		}
		text := ""
		if a, ok := d.Arg(1); ok {
			text = a.String()
		}
		out = out.Set(code, text)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveProduces(m *decl.Method) []model.ProducesDescriptor {
	var out []model.ProducesDescriptor
	for _, d := range m.DirectivesNamed(decl.DirProduces) {
		p := model.ProducesDescriptor{Status: 200}
		if a, ok := d.Arg(0); ok {
			p.ContentTypes = a.Strings()
		}
		if a, ok := d.Named("status"); ok {
			code, err := strconv.Atoi(a.String())
			if err != nil || !model.ValidStatus(code) {
				continue
			}
			p.Status = code
		}
		if a, ok := d.Named("type"); ok {
			p.ResponseType = a.Type.Qualified()
		}
		out = append(out, p)
	}
	return out
}

func resolveConsumes(c *decl.Class, m *decl.Method, params []model.ParameterDescriptor) []string {
	var consumes []string
	if d, ok := m.Directive(decl.DirConsumes); ok {
		if a, ok := d.Arg(0); ok {
			consumes = append(consumes, a.Strings()...)
		}
	}
	if len(consumes) > 0 {
		return consumes
	}
	for _, p := range params {
		if IsFileType(c, p.Type) {
			return []string{MultipartFormData}
		}
	}
	return nil
}

// resolveFilters lists class-level filters first, then method-level ones.
func resolveFilters(c *decl.Class, m *decl.Method) ([]string, []decl.TypeRef) {
	var names []string
	var refs []decl.TypeRef
	for _, ds := range [][]decl.Directive{c.DirectivesNamed(decl.DirFilter), m.DirectivesNamed(decl.DirFilter)} {
		for _, d := range ds {
			a, ok := d.Arg(0)
			if !ok || a.Kind != decl.ArgType || a.Type.IsZero() {
				continue
			}
			names = append(names, a.Type.Qualified())
			refs = append(refs, a.Type)
		}
	}
	return names, refs
}
