package benchmarks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/terrascale/minimalendpoints/pkg/endpoint"
)

type user struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type createUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// getUser and addUser have the shape the registration generator maps.
type getUser struct{ endpoint.Base }

func (*getUser) Handle(ctx context.Context, id uuid.UUID, tenant string) (*user, error) {
	return &user{ID: id, Name: "Ada", Email: "ada@example.com"}, nil
}

type addUser struct{ endpoint.Base }

func (*addUser) Handle(req createUser) (*user, error) {
	return &user{ID: uuid.Nil, Name: req.Name, Email: req.Email}, nil
}

type passFilter struct{}

func (*passFilter) Invoke(r *endpoint.Request, next endpoint.HandlerFunc) (any, error) {
	return next(r)
}

type allowAll struct{}

func (allowAll) Authorize(*http.Request, endpoint.Policy) error { return nil }

type denyAll struct{}

func (denyAll) Authorize(*http.Request, endpoint.Policy) error { return errors.New("denied") }

// mapGetUser mirrors a generated mapping function.
func mapGetUser(r chi.Router, s *endpoint.Services) *endpoint.RouteBuilder {
	return endpoint.Map(r, s, endpoint.MethodGet, "/users/{id}", func(rc *endpoint.Request) (any, error) {
		ep, err := endpoint.Resolve[*getUser](rc.Services)
		if err != nil {
			return nil, err
		}
		arg0, err := endpoint.Infer[context.Context](rc, "ctx")
		if err != nil {
			return nil, err
		}
		arg1, err := endpoint.Route[uuid.UUID](rc, "id")
		if err != nil {
			return nil, err
		}
		arg2, err := endpoint.Header[string](rc, "X-Tenant")
		if err != nil {
			return nil, err
		}
		return ep.Handle(arg0, arg1, arg2)
	})
}

func mapAddUser(r chi.Router, s *endpoint.Services) *endpoint.RouteBuilder {
	return endpoint.Map(r, s, endpoint.MethodPost, "/users", func(rc *endpoint.Request) (any, error) {
		ep, err := endpoint.Resolve[*addUser](rc.Services)
		if err != nil {
			return nil, err
		}
		arg0, err := endpoint.Body[createUser](rc)
		if err != nil {
			return nil, err
		}
		return ep.Handle(arg0)
	})
}

func newRouter(configure func(s *endpoint.Services, r chi.Router)) http.Handler {
	s := endpoint.NewServices()
	endpoint.AddEndpoint[getUser](s)
	endpoint.AddEndpoint[addUser](s)
	r := chi.NewRouter()
	configure(s, r)
	return r
}

// BenchmarkPlainHandler is the baseline: a chi route without binding.
func BenchmarkPlainHandler(b *testing.B) {
	r := chi.NewRouter()
	r.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	req := httptest.NewRequest(http.MethodGet, "/users/"+uuid.NewString(), nil)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
	}
}

// BenchmarkRouteBinding measures route, header and context binding plus the
// JSON response.
func BenchmarkRouteBinding(b *testing.B) {
	h := newRouter(func(s *endpoint.Services, r chi.Router) { mapGetUser(r, s) })
	req := httptest.NewRequest(http.MethodGet, "/users/"+uuid.NewString(), nil)
	req.Header.Set("X-Tenant", "acme")

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", w.Code)
		}
	}
}

// BenchmarkBodyBinding measures JSON body decoding.
func BenchmarkBodyBinding(b *testing.B) {
	h := newRouter(func(s *endpoint.Services, r chi.Router) {
		mapAddUser(r, s).Accepts("application/json")
	})
	body := []byte(`{"name":"Ada","email":"ada@example.com"}`)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
	}
}

// BenchmarkFilterChain measures a route wrapped in several filters.
func BenchmarkFilterChain(b *testing.B) {
	for _, n := range []int{1, 5, 10} {
		b.Run(fmt.Sprintf("%d_filters", n), func(b *testing.B) {
			h := newRouter(func(s *endpoint.Services, r chi.Router) {
				rb := mapGetUser(r, s)
				for i := 0; i < n; i++ {
					endpoint.UseFilter[passFilter](rb)
				}
			})
			req := httptest.NewRequest(http.MethodGet, "/users/"+uuid.NewString(), nil)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, req)
			}
		})
	}
}

// BenchmarkAuthorization compares allowed and rejected policy checks.
func BenchmarkAuthorization(b *testing.B) {
	cases := map[string]endpoint.Authorizer{"allow": allowAll{}, "deny": denyAll{}}
	for name, a := range cases {
		b.Run(name, func(b *testing.B) {
			h := newRouter(func(s *endpoint.Services, r chi.Router) {
				endpoint.Register(s, a)
				mapGetUser(r, s).RequireAuthorization("staff").WithRoles("Admin")
			})
			req := httptest.NewRequest(http.MethodGet, "/users/"+uuid.NewString(), nil)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, req)
			}
		})
	}
}
