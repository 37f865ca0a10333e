package decl

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// DirectivePrefix introduces an endpoint directive comment line.
const DirectivePrefix = "//endpoint:"

// Directive names.
const (
	DirMinimal    = "minimal"
	DirGroup      = "group"
	DirAuthorize  = "authorize"
	DirAnonymous  = "anonymous"
	DirFilter     = "filter"
	DirProduces   = "produces"
	DirConsumes   = "consumes"
	DirResponse   = "response"
	DirDeprecated = "deprecated"
	DirParam      = "param"
)

// Verbs is the fixed set of HTTP verbs, in canonical form.
var Verbs = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS", "TRACE", "CONNECT"}

// VerbDirective returns the verb named by a directive such as "get".
func VerbDirective(name string) (string, bool) {
	return LookupVerb(name)
}

// LookupVerb matches a verb case-insensitively.
func LookupVerb(s string) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for _, v := range Verbs {
		if v == upper {
			return v, true
		}
	}
	return "", false
}

// ArgKind tags the Arg union.
type ArgKind int

const (
	ArgScalar ArgKind = iota
	ArgList
	ArgType
)

// Arg is a normalized directive argument: exactly one of a scalar string, a
// list of strings or a type reference.
type Arg struct {
	Kind ArgKind
	// Key is set for key=value arguments.
	Key    string
	Scalar string
	List   []string
	Type   TypeRef
	// TypeExpr keeps the type as written, for emitting it back into Go.
	TypeExpr string
}

// Scalar builds a scalar argument.
func Scalar(s string) Arg { return Arg{Kind: ArgScalar, Scalar: s} }

// List builds a list argument.
func List(items ...string) Arg { return Arg{Kind: ArgList, List: items} }

// Strings returns the argument as a list regardless of its kind.
func (a Arg) Strings() []string {
	switch a.Kind {
	case ArgList:
		return a.List
	case ArgType:
		return []string{a.Type.Qualified()}
	default:
		if a.Scalar == "" {
			return nil
		}
		return []string{a.Scalar}
	}
}

// String returns the argument as a single string.
func (a Arg) String() string {
	switch a.Kind {
	case ArgList:
		return strings.Join(a.List, ",")
	case ArgType:
		return a.Type.Qualified()
	default:
		return a.Scalar
	}
}

// Directive is one normalized //endpoint: line.
type Directive struct {
	Name     string
	Args     []Arg
	Raw      string
	Location SourceLocation
}

// Positional returns the arguments without a key, in order.
func (d Directive) Positional() []Arg {
	var out []Arg
	for _, a := range d.Args {
		if a.Key == "" {
			out = append(out, a)
		}
	}
	return out
}

// Arg returns the i-th positional argument.
func (d Directive) Arg(i int) (Arg, bool) {
	pos := d.Positional()
	if i < 0 || i >= len(pos) {
		return Arg{}, false
	}
	return pos[i], true
}

// Named returns the argument with the given key.
func (d Directive) Named(key string) (Arg, bool) {
	for _, a := range d.Args {
		if strings.EqualFold(a.Key, key) {
			return a, true
		}
	}
	return Arg{}, false
}

// First returns the first positional argument as a string.
func (d Directive) First() string {
	a, ok := d.Arg(0)
	if !ok {
		return ""
	}
	return a.String()
}

// argShape describes how raw tokens of a directive normalize.
type argShape int

const (
	shapeScalar argShape = iota
	shapeList
	shapeType
)

// schema describes one directive: the shapes of its positional arguments
// and the shapes of its keys.
type schema struct {
	positional []argShape
	// rest joins any tokens past max into the last positional argument.
	rest bool
	// collapse folds all positional tokens into one list argument.
	collapse bool
	keys     map[string]argShape
	max      int
}

var routeSchema = schema{positional: []argShape{shapeScalar}, max: 1}

var schemas = map[string]schema{
	DirMinimal:    routeSchema,
	DirGroup:      {positional: []argShape{shapeScalar}, max: 1},
	DirAnonymous:  {},
	DirDeprecated: {},
	DirFilter:     {positional: []argShape{shapeType}, max: 1},
	DirAuthorize: {
		positional: []argShape{shapeScalar},
		max:        1,
		keys:       map[string]argShape{"policy": shapeScalar, "roles": shapeList, "schemes": shapeList},
	},
	DirProduces: {
		positional: []argShape{shapeList},
		collapse:   true,
		keys:       map[string]argShape{"status": shapeScalar, "type": shapeType},
	},
	DirConsumes: {positional: []argShape{shapeList}, collapse: true},
	DirResponse: {positional: []argShape{shapeScalar, shapeScalar}, max: 2, rest: true},
	DirParam:    {positional: []argShape{shapeScalar, shapeScalar, shapeScalar}, max: 3},
}

func lookupSchema(name string) (schema, bool) {
	if _, ok := VerbDirective(name); ok {
		return routeSchema, true
	}
	s, ok := schemas[name]
	return s, ok
}

// IsDirective reports whether a comment line is an endpoint directive.
func IsDirective(line string) bool {
	return strings.HasPrefix(line, DirectivePrefix)
}

// ParseDirective parses and normalizes a directive comment line. Type
// arguments are resolved through resolve, which maps a type expression
// written in the declaring file to a TypeRef.
func ParseDirective(line string, loc SourceLocation, resolve func(string) TypeRef) (Directive, error) {
	if !IsDirective(line) {
		return Directive{}, fmt.Errorf("not an endpoint directive: %q", line)
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, DirectivePrefix))
	name, argText, _ := strings.Cut(rest, " ")
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Directive{}, fmt.Errorf("empty endpoint directive")
	}

	sc, ok := lookupSchema(name)
	if !ok {
		return Directive{}, fmt.Errorf("unknown endpoint directive %q", name)
	}

	tokens, err := tokenize(argText)
	if err != nil {
		return Directive{}, fmt.Errorf("directive %q: %w", name, err)
	}

	args, err := normalize(name, sc, tokens, resolve)
	if err != nil {
		return Directive{}, err
	}

	return Directive{Name: name, Args: args, Raw: line, Location: loc}, nil
}

type rawToken struct {
	key    string
	value  string
	quoted bool
}

// tokenize splits on whitespace, honouring double-quoted strings and
// key=value pairs.
func tokenize(s string) ([]rawToken, error) {
	var out []rawToken
	i := 0
	for i < len(s) {
		r := rune(s[i])
		if unicode.IsSpace(r) {
			i++
			continue
		}

		start := i
		key := ""
		for i < len(s) && !unicode.IsSpace(rune(s[i])) && s[i] != '"' && s[i] != '=' {
			i++
		}
		if i < len(s) && s[i] == '=' && isKey(s[start:i]) {
			key = s[start:i]
			i++
			start = i
		} else {
			i = start
		}

		if i < len(s) && s[i] == '"' {
			end := i + 1
			for end < len(s) && s[end] != '"' {
				if s[end] == '\\' {
					end++
				}
				end++
			}
			if end >= len(s) {
				return nil, fmt.Errorf("unterminated string in %q", s)
			}
			v, err := strconv.Unquote(s[i : end+1])
			if err != nil {
				return nil, fmt.Errorf("bad string %s: %w", s[i:end+1], err)
			}
			out = append(out, rawToken{key: key, value: v, quoted: true})
			i = end + 1
			continue
		}

		for i < len(s) && !unicode.IsSpace(rune(s[i])) {
			i++
		}
		out = append(out, rawToken{key: key, value: s[start:i]})
	}
	return out, nil
}

func normalize(name string, sc schema, tokens []rawToken, resolve func(string) TypeRef) ([]Arg, error) {
	var args []Arg
	var collapsed []string
	pos := 0

	for _, tok := range tokens {
		if tok.key != "" {
			shape, ok := sc.keys[strings.ToLower(tok.key)]
			if !ok {
				return nil, fmt.Errorf("directive %q does not accept %s=", name, tok.key)
			}
			a := shapeArg(shape, tok, resolve)
			a.Key = strings.ToLower(tok.key)
			args = append(args, a)
			continue
		}

		if sc.collapse {
			collapsed = append(collapsed, splitList(tok.value)...)
			continue
		}

		if sc.rest && pos == sc.max && len(args) > 0 {
			last := &args[len(args)-1]
			last.Scalar += " " + tok.value
			continue
		}
		if len(sc.positional) == 0 || (sc.max > 0 && pos >= sc.max) {
			return nil, fmt.Errorf("directive %q takes at most %d argument(s)", name, sc.max)
		}
		shape := sc.positional[len(sc.positional)-1]
		if pos < len(sc.positional) {
			shape = sc.positional[pos]
		}
		args = append(args, shapeArg(shape, tok, resolve))
		pos++
	}

	if sc.collapse && len(collapsed) > 0 {
		args = append([]Arg{List(collapsed...)}, args...)
	}
	return args, nil
}

func shapeArg(shape argShape, tok rawToken, resolve func(string) TypeRef) Arg {
	switch shape {
	case shapeList:
		return List(splitList(tok.value)...)
	case shapeType:
		ref := TypeRef{Name: tok.value}
		if resolve != nil {
			ref = resolve(tok.value)
		}
		return Arg{Kind: ArgType, Type: ref, TypeExpr: tok.value}
	default:
		return Scalar(tok.value)
	}
}

func isKey(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
