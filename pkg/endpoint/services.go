package endpoint

import (
	"fmt"
	"reflect"
	"sync"
)

// Services is a minimal service container keyed by type. Providers run once
// and their result is cached.
type Services struct {
	mu        sync.Mutex
	providers map[reflect.Type]*provider
	routes    []*RouteBuilder
}

type provider struct {
	once  sync.Once
	build func(*Services) (any, error)
	value any
	err   error
}

// NewServices creates an empty container.
func NewServices() *Services {
	return &Services{providers: make(map[reflect.Type]*provider)}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (s *Services) set(t reflect.Type, build func(*Services) (any, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[t] = &provider{build: build}
}

func (s *Services) lookup(t reflect.Type) (*provider, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.providers[t]
	return p, ok
}

// Has reports whether a provider is registered for t.
func (s *Services) Has(t reflect.Type) bool {
	_, ok := s.lookup(t)
	return ok
}

func (s *Services) resolve(t reflect.Type) (any, error) {
	p, ok := s.lookup(t)
	if !ok {
		return nil, fmt.Errorf("no service registered for %s", t)
	}
	p.once.Do(func() {
		p.value, p.err = p.build(s)
	})
	if p.err != nil {
		return nil, fmt.Errorf("failed to build service %s: %w", t, p.err)
	}
	return p.value, nil
}

// Register adds a ready-made singleton.
func Register[T any](s *Services, v T) {
	s.set(typeOf[T](), func(*Services) (any, error) { return v, nil })
}

// Provide adds a lazily built singleton. fn may resolve its own
// dependencies from s.
func Provide[T any](s *Services, fn func(*Services) (T, error)) {
	s.set(typeOf[T](), func(s *Services) (any, error) { return fn(s) })
}

// Resolve returns the service registered for T.
func Resolve[T any](s *Services) (T, error) {
	var zero T
	v, err := s.resolve(typeOf[T]())
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("service for %s has type %T", typeOf[T](), v)
	}
	return t, nil
}

// AddEndpoint registers *T as a service built with new(T), unless the host
// already registered its own provider for *T.
func AddEndpoint[T any](s *Services) {
	if s.Has(typeOf[*T]()) {
		return
	}
	Provide(s, func(*Services) (*T, error) { return new(T), nil })
}
