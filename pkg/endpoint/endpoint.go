// Package endpoint is the host contract for generated endpoint registration.
//
// Endpoint types embed Base (or Grouped[G]) and declare a single handler
// method. endpointgen reads those declarations at build time and emits
// AddEndpoints and MapEndpoints functions that register every endpoint on a
// chi router through the helpers in this package.
//
//	type GetUser struct {
//		endpoint.Grouped[groups.Users]
//		store *users.Store
//	}
//
//	//endpoint:get {id}
//	//endpoint:param id route
//	func (e *GetUser) Handle(ctx context.Context, id uuid.UUID) (*users.User, error) {
//		return e.store.Find(ctx, id)
//	}
package endpoint

import "net/http"

// Verb constants. Both spellings are recognised by the generator.
const (
	Get     = http.MethodGet
	Post    = http.MethodPost
	Put     = http.MethodPut
	Delete  = http.MethodDelete
	Patch   = http.MethodPatch
	Head    = http.MethodHead
	Options = http.MethodOptions
	Trace   = http.MethodTrace
	Connect = http.MethodConnect

	MethodGet     = http.MethodGet
	MethodPost    = http.MethodPost
	MethodPut     = http.MethodPut
	MethodDelete  = http.MethodDelete
	MethodPatch   = http.MethodPatch
	MethodHead    = http.MethodHead
	MethodOptions = http.MethodOptions
	MethodTrace   = http.MethodTrace
	MethodConnect = http.MethodConnect
)

// Endpoint is implemented by every type embedding Base.
type Endpoint interface {
	isEndpoint()
}

// Base marks a struct as an endpoint.
type Base struct{}

func (Base) isEndpoint() {}

// Group describes a set of endpoints mapped under a common prefix. Group
// types are instantiated with their zero value, so Name and Prefix should
// not depend on state.
type Group interface {
	Name() string
	Prefix() string
}

// GroupConfigurer is implemented by groups that configure their router,
// typically to add middleware.
type GroupConfigurer interface {
	Configure(b *GroupBuilder)
}

// Grouped marks a struct as an endpoint mapped inside group G.
type Grouped[G Group] struct {
	Base
}

// GroupType returns the zero value of the endpoint's group.
func (Grouped[G]) GroupType() G {
	return newGroup[G]()
}
