package endpoint

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// HandlerFunc is the closure a generated registration maps for one endpoint.
type HandlerFunc func(r *Request) (any, error)

// Filter wraps endpoint invocation. Filters run in the order they were added
// and may short-circuit by not calling next.
type Filter interface {
	Invoke(r *Request, next HandlerFunc) (any, error)
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(r *Request, next HandlerFunc) (any, error)

// Invoke calls f.
func (f FilterFunc) Invoke(r *Request, next HandlerFunc) (any, error) { return f(r, next) }

// Policy is one authorization requirement.
type Policy struct {
	Name    string
	Roles   []string
	Schemes []string
}

// Authorizer decides whether a request satisfies a policy. Register one as
// a service; returning a StatusCoder error picks the status, any other error
// is a 403.
type Authorizer interface {
	Authorize(r *http.Request, p Policy) error
}

// RouteInfo describes a mapped route.
type RouteInfo struct {
	Method      string
	Pattern     string
	Name        string
	Group       string
	Tags        []string
	Summary     string
	Description string
	Responses   map[int]string
	Produces    []Produces
	Accepts     []string
	Deprecated  bool
	Anonymous   bool
	Policy      *Policy
	Metadata    map[string]any
}

// Produces is one declared response content.
type Produces struct {
	Status       int
	Type         string
	ContentTypes []string
}

// RouteBuilder configures a mapped route. Settings are read per request, so
// they may be applied after Map returns.
type RouteBuilder struct {
	mu       sync.RWMutex
	info     RouteInfo
	filters  []func(*Request) (Filter, error)
	services *Services
	handler  HandlerFunc
}

// Info returns a copy of the route's description.
func (b *RouteBuilder) Info() RouteInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	info := b.info
	if b.info.Policy != nil {
		p := *b.info.Policy
		info.Policy = &p
	}
	return info
}

func (b *RouteBuilder) update(fn func(*RouteInfo)) *RouteBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.info)
	return b
}

func (b *RouteBuilder) policy() *Policy {
	if b.info.Policy == nil {
		b.info.Policy = &Policy{}
	}
	return b.info.Policy
}

// RequireAuthorization requires an authorized caller, optionally under a
// named policy.
func (b *RouteBuilder) RequireAuthorization(policy ...string) *RouteBuilder {
	return b.update(func(i *RouteInfo) {
		p := b.policy()
		if len(policy) > 0 {
			p.Name = policy[0]
		}
	})
}

// AllowAnonymous skips authorization, including group requirements.
func (b *RouteBuilder) AllowAnonymous() *RouteBuilder {
	return b.update(func(i *RouteInfo) { i.Anonymous = true })
}

// WithRoles requires authorization limited to roles.
func (b *RouteBuilder) WithRoles(roles ...string) *RouteBuilder {
	return b.update(func(i *RouteInfo) {
		p := b.policy()
		p.Roles = append(p.Roles, roles...)
	})
}

// WithSchemes requires authorization through the given schemes.
func (b *RouteBuilder) WithSchemes(schemes ...string) *RouteBuilder {
	return b.update(func(i *RouteInfo) {
		p := b.policy()
		p.Schemes = append(p.Schemes, schemes...)
	})
}

// WithTags adds documentation tags.
func (b *RouteBuilder) WithTags(tags ...string) *RouteBuilder {
	return b.update(func(i *RouteInfo) { i.Tags = append(i.Tags, tags...) })
}

// WithSummary sets the summary.
func (b *RouteBuilder) WithSummary(s string) *RouteBuilder {
	return b.update(func(i *RouteInfo) { i.Summary = s })
}

// WithDescription sets the description.
func (b *RouteBuilder) WithDescription(s string) *RouteBuilder {
	return b.update(func(i *RouteInfo) { i.Description = s })
}

// WithResponse documents a status code.
func (b *RouteBuilder) WithResponse(status int, text string) *RouteBuilder {
	return b.update(func(i *RouteInfo) {
		if i.Responses == nil {
			i.Responses = make(map[int]string)
		}
		i.Responses[status] = text
	})
}

// Produces declares response content.
func (b *RouteBuilder) Produces(status int, responseType string, contentTypes ...string) *RouteBuilder {
	return b.update(func(i *RouteInfo) {
		i.Produces = append(i.Produces, Produces{Status: status, Type: responseType, ContentTypes: contentTypes})
	})
}

// Accepts declares accepted request content types. Requests with another
// Content-Type are rejected with 415.
func (b *RouteBuilder) Accepts(contentTypes ...string) *RouteBuilder {
	return b.update(func(i *RouteInfo) { i.Accepts = append(i.Accepts, contentTypes...) })
}

// Deprecated marks the route deprecated.
func (b *RouteBuilder) Deprecated() *RouteBuilder {
	return b.update(func(i *RouteInfo) { i.Deprecated = true })
}

// WithName sets the route name.
func (b *RouteBuilder) WithName(name string) *RouteBuilder {
	return b.update(func(i *RouteInfo) { i.Name = name })
}

// WithGroupName sets the documentation group.
func (b *RouteBuilder) WithGroupName(name string) *RouteBuilder {
	return b.update(func(i *RouteInfo) { i.Group = name })
}

// WithMetadata attaches arbitrary metadata.
func (b *RouteBuilder) WithMetadata(key string, value any) *RouteBuilder {
	return b.update(func(i *RouteInfo) {
		if i.Metadata == nil {
			i.Metadata = make(map[string]any)
		}
		i.Metadata[key] = value
	})
}

// AddFilter appends a filter instance.
func (b *RouteBuilder) AddFilter(f Filter) *RouteBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filters = append(b.filters, func(*Request) (Filter, error) { return f, nil })
	return b
}

// UseFilter appends a filter of type F. A registered *F service is used
// when present, otherwise a new(F) per request.
func UseFilter[F any, PF interface {
	*F
	Filter
}](b *RouteBuilder) *RouteBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filters = append(b.filters, func(r *Request) (Filter, error) {
		if r.Services.Has(typeOf[*F]()) {
			f, err := Resolve[*F](r.Services)
			if err != nil {
				return nil, err
			}
			return PF(f), nil
		}
		return PF(new(F)), nil
	})
	return b
}

// ServeHTTP runs authorization, content checks and filters, then the handler.
func (b *RouteBuilder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	rc := &Request{Request: req, Writer: w, Services: b.services}

	b.mu.RLock()
	info := b.info
	filters := append([]func(*Request) (Filter, error)(nil), b.filters...)
	b.mu.RUnlock()

	res, err := b.invoke(rc, info, filters)
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteResult(w, res)
}

func (b *RouteBuilder) invoke(rc *Request, info RouteInfo, filters []func(*Request) (Filter, error)) (any, error) {
	if !info.Anonymous {
		policies := groupPolicies(rc.Context())
		if info.Policy != nil {
			policies = append(policies, *info.Policy)
		}
		if err := authorize(rc, policies); err != nil {
			return nil, err
		}
	}

	if len(info.Accepts) > 0 && !acceptsContent(rc.Request, info.Accepts) {
		return nil, Error(http.StatusUnsupportedMediaType, errors.New("unsupported content type"))
	}

	next := b.handler
	for i := len(filters) - 1; i >= 0; i-- {
		f, err := filters[i](rc)
		if err != nil {
			return nil, err
		}
		inner := next
		next = func(r *Request) (any, error) { return f.Invoke(r, inner) }
	}
	return next(rc)
}

func authorize(rc *Request, policies []Policy) error {
	if len(policies) == 0 {
		return nil
	}
	a, err := Resolve[Authorizer](rc.Services)
	if err != nil || a == nil {
		return Unauthorized(errors.New("authorization required"))
	}
	for _, p := range policies {
		if err := a.Authorize(rc.Request, p); err != nil {
			var sc StatusCoder
			if errors.As(err, &sc) {
				return err
			}
			return Forbidden(err)
		}
	}
	return nil
}

func acceptsContent(req *http.Request, accepted []string) bool {
	ct := req.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.TrimSpace(strings.ToLower(ct))
	for _, a := range accepted {
		if strings.EqualFold(a, ct) {
			return true
		}
	}
	return false
}

// Map registers fn for verb and pattern on r.
func Map(r chi.Router, s *Services, verb, pattern string, fn HandlerFunc) *RouteBuilder {
	pattern = "/" + strings.TrimPrefix(pattern, "/")
	b := &RouteBuilder{
		info:     RouteInfo{Method: verb, Pattern: pattern},
		services: s,
		handler:  fn,
	}
	r.Method(verb, pattern, b)
	s.addRoute(b)
	return b
}

// Routes lists the routes mapped with s, ordered by pattern then method.
func (s *Services) Routes() []RouteInfo {
	s.mu.Lock()
	builders := append([]*RouteBuilder(nil), s.routes...)
	s.mu.Unlock()

	out := make([]RouteInfo, 0, len(builders))
	for _, b := range builders {
		out = append(out, b.Info())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pattern != out[j].Pattern {
			return out[i].Pattern < out[j].Pattern
		}
		return out[i].Method < out[j].Method
	})
	return out
}

func (s *Services) addRoute(b *RouteBuilder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append(s.routes, b)
}

// GroupBuilder configures a group's router before its routes are mapped.
type GroupBuilder struct {
	router chi.Router
	prefix string
}

// Prefix returns the group's rooted prefix.
func (g *GroupBuilder) Prefix() string { return g.prefix }

// Use adds middleware to every route in the group.
func (g *GroupBuilder) Use(middlewares ...func(http.Handler) http.Handler) *GroupBuilder {
	g.router.Use(middlewares...)
	return g
}

// RequireAuthorization requires p for every route in the group. Routes that
// allow anonymous callers are exempt.
func (g *GroupBuilder) RequireAuthorization(p Policy) *GroupBuilder {
	g.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			policies := append(groupPolicies(r.Context()), p)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), groupPolicyKey{}, policies)))
		})
	})
	return g
}

type groupPolicyKey struct{}

func groupPolicies(ctx context.Context) []Policy {
	p, _ := ctx.Value(groupPolicyKey{}).([]Policy)
	return append([]Policy(nil), p...)
}

// MapGroup maps the routes registered by fn under group G's prefix. When G
// implements GroupConfigurer its Configure runs once, before any route.
func MapGroup[G Group](r chi.Router, s *Services, fn func(g chi.Router)) {
	group := newGroup[G]()
	prefix := strings.Trim(group.Prefix(), "/")

	mount := func(sub chi.Router) {
		if c, ok := any(group).(GroupConfigurer); ok {
			c.Configure(&GroupBuilder{router: sub, prefix: "/" + prefix})
		}
		fn(sub)
	}

	if prefix == "" {
		r.Group(mount)
		return
	}
	r.Route("/"+prefix, mount)
}

func newGroup[G Group]() G {
	var g G
	t := reflect.TypeOf(&g).Elem()
	if t.Kind() == reflect.Pointer {
		g = reflect.New(t.Elem()).Interface().(G)
	}
	return g
}
