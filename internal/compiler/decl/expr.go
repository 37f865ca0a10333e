package decl

// Expr is the bounded expression vocabulary the source loader records for
// property bodies. Anything outside it is captured as Opaque and never
// evaluated.
type Expr interface {
	expr()
}

// StringLit is an interpreted or raw string literal, already unquoted.
type StringLit struct {
	Value string
}

// Ident is a bare identifier such as a same-package constant.
type Ident struct {
	Name string
}

// Selector is a qualified identifier such as http.MethodGet.
type Selector struct {
	Qualifier string
	Name      string
}

// TypeExpr is an expression whose only meaning is the type it names:
// G{}, &G{}, new(G), (*G)(nil) or reflect.TypeFor[G]().
type TypeExpr struct {
	// Type is the type as written, e.g. "groups.Users".
	Type string
}

// Opaque is any expression the resolver must not try to interpret.
type Opaque struct {
	Text string
}

func (StringLit) expr() {}
func (Ident) expr()     {}
func (Selector) expr()  {}
func (TypeExpr) expr()  {}
func (Opaque) expr()    {}

// PropertyForm distinguishes how a property value is declared.
type PropertyForm int

const (
	// FormExpression is a method whose body is exactly one return statement.
	FormExpression PropertyForm = iota
	// FormGetter is a method with a larger body.
	FormGetter
	// FormInitializer is a struct tag on an embedded base.
	FormInitializer
)

func (f PropertyForm) String() string {
	switch f {
	case FormExpression:
		return "expression"
	case FormGetter:
		return "getter"
	case FormInitializer:
		return "initializer"
	default:
		return "unknown"
	}
}

// Body summarises a method body.
type Body struct {
	// Statements is the number of top-level statements.
	Statements int
	// Returns holds the returned expression of every return statement found
	// anywhere in the body, in source order.
	Returns []Expr
}

// Property is a convention value attached to a class: a zero-argument method
// with a single result, or a tag on an embedded base.
type Property struct {
	Name     string
	Form     PropertyForm
	Body     *Body
	Value    Expr
	Location SourceLocation
}

// Property names recognised by discovery and the resolver.
const (
	PropRoute      = "Route"
	PropBaseRoute  = "BaseRoute"
	PropHTTPMethod = "HttpMethod"
	PropMethod     = "Method"
	PropGroupType  = "GroupType"
	PropName       = "Name"
	PropPrefix     = "Prefix"
)

// PropertyNames lists every method name that is read as a property.
var PropertyNames = []string{
	PropRoute, PropBaseRoute, PropHTTPMethod, PropMethod, PropGroupType, PropName,
}

// TagProperties maps struct tag keys on an embedded base to property names.
var TagProperties = map[string]string{
	"route":      PropRoute,
	"baseRoute":  PropBaseRoute,
	"httpMethod": PropHTTPMethod,
	"method":     PropMethod,
	"name":       PropName,
	"groupType":  PropGroupType,
}

// IsPropertyName reports whether a method name is read as a property.
func IsPropertyName(name string) bool {
	for _, n := range PropertyNames {
		if n == name {
			return true
		}
	}
	return false
}
