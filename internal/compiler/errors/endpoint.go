package errors

import (
	"fmt"
	"strings"

	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
)

// Endpoint shape codes (ME001-099)
const (
	// ErrHandlerNotFallible indicates a handler whose last result is not error
	ErrHandlerNotFallible ErrorCode = "ME001"
	// ErrMissingEndpointMarker indicates a type that does not embed the endpoint marker
	ErrMissingEndpointMarker ErrorCode = "ME002"
	// ErrMultipleHandlers indicates more than one handler method on one type
	ErrMultipleHandlers ErrorCode = "ME003"
	// ErrDuplicateRoute indicates two endpoints registering the same verb and route
	ErrDuplicateRoute ErrorCode = "ME004"
)

// Directive codes (ME100-199)
const (
	// ErrMalformedDirective indicates an //endpoint: line that could not be parsed
	ErrMalformedDirective ErrorCode = "ME100"
)

// Descriptor is the fixed part of a diagnostic: its code, title and message
// template. Descriptors are process-wide constants.
type Descriptor struct {
	Code     ErrorCode
	Type     string
	Title    string
	Template string
	Category ErrorCategory
	Severity ErrorSeverity
}

var (
	// HandlerNotFallible is ME001.
	HandlerNotFallible = Descriptor{
		Code:     ErrHandlerNotFallible,
		Type:     "handler_not_fallible",
		Title:    "Endpoint method must return error",
		Template: "Endpoint method '%s' must return error as its last result. All endpoint methods must be fallible.",
		Category: CategoryEndpoint,
		Severity: SeverityError,
	}
	// MissingEndpointMarker is ME002.
	MissingEndpointMarker = Descriptor{
		Code:     ErrMissingEndpointMarker,
		Type:     "missing_endpoint_marker",
		Title:    "Endpoint type must implement endpoint.Endpoint",
		Template: "Endpoint type '%s' must implement the endpoint.Endpoint marker (embed endpoint.Base or endpoint.Grouped[G])",
		Category: CategoryEndpoint,
		Severity: SeverityError,
	}
	// MultipleHandlers is ME003.
	MultipleHandlers = Descriptor{
		Code:     ErrMultipleHandlers,
		Type:     "multiple_handlers",
		Title:    "Only one endpoint per type allowed",
		Template: "Endpoint type '%s' contains %d handler methods. Only one endpoint per type is allowed.",
		Category: CategoryEndpoint,
		Severity: SeverityError,
	}
	// DuplicateRoute is ME004.
	DuplicateRoute = Descriptor{
		Code:     ErrDuplicateRoute,
		Type:     "duplicate_route",
		Title:    "Route registered twice",
		Template: "%s %s is registered by both '%s' and '%s'",
		Category: CategoryEndpoint,
		Severity: SeverityWarning,
	}
	// MalformedDirective is ME100.
	MalformedDirective = Descriptor{
		Code:     ErrMalformedDirective,
		Type:     "malformed_directive",
		Title:    "Malformed endpoint directive",
		Template: "Ignoring endpoint directive: %s",
		Category: CategoryDirective,
		Severity: SeverityWarning,
	}
)

// Descriptors lists every diagnostic the compiler can report.
var Descriptors = []Descriptor{
	HandlerNotFallible,
	MissingEndpointMarker,
	MultipleHandlers,
	DuplicateRoute,
	MalformedDirective,
}

// New renders the descriptor's template at loc.
func (d Descriptor) New(loc decl.SourceLocation, args ...any) *CompilerError {
	return newError(d.Code, d.Type, d.Category, d.Severity, fmt.Sprintf(d.Template, args...), loc)
}

// NewHandlerNotFallible creates an ME001 error
func NewHandlerNotFallible(loc decl.SourceLocation, method, results string) *CompilerError {
	if results == "" {
		results = "no results"
	}
	return HandlerNotFallible.New(loc, method).
		WithExpected("error or (T, error)").
		WithActual(results).
		WithSuggestion("Return error as the last result, e.g. func (e *Endpoint) Handle(ctx context.Context) (*Result, error)")
}

// NewMissingEndpointMarker creates an ME002 error
func NewMissingEndpointMarker(loc decl.SourceLocation, class string) *CompilerError {
	return MissingEndpointMarker.New(loc, class).
		WithSuggestion("Embed endpoint.Base, or endpoint.Grouped[G] to place the endpoint in a group").
		WithExamples(
			"type "+class+" struct{ endpoint.Base }",
			"type "+class+" struct{ endpoint.Grouped[groups.Users] }",
		)
}

// NewMultipleHandlers creates an ME003 error
func NewMultipleHandlers(loc decl.SourceLocation, class string, count int, methods []string) *CompilerError {
	e := MultipleHandlers.New(loc, class, count).
		WithSuggestion("Move each handler into its own endpoint type")
	if len(methods) > 0 {
		e.WithActual(strings.Join(methods, ", "))
	}
	return e
}

// NewDuplicateRoute creates an ME004 warning
func NewDuplicateRoute(loc decl.SourceLocation, verb, route, first, second string) *CompilerError {
	if route == "" {
		route = "/"
	}
	return DuplicateRoute.New(loc, verb, route, first, second).
		WithSuggestion("The router keeps the last registration; give one of the endpoints a distinct route")
}

// NewMalformedDirective creates an ME100 warning
func NewMalformedDirective(loc decl.SourceLocation, reason string) *CompilerError {
	return MalformedDirective.New(loc, reason).
		WithExamples(
			"//endpoint:get api/users/{id}",
			`//endpoint:authorize policy=Admin roles=Admin,Ops`,
			`//endpoint:response 404 "User not found"`,
		)
}
