package resolver

import (
	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
)

// authorization is the merged policy of a handler and its class.
type authorization struct {
	required  bool
	anonymous bool
	policy    string
	roles     []string
	schemes   []string
}

// authArgs are the values one authorize directive carries. Nil means absent.
type authArgs struct {
	policy  *string
	roles   []string
	schemes []string
}

func readAuthorize(ds []decl.Directive) (authArgs, bool) {
	if len(ds) == 0 {
		return authArgs{}, false
	}
	d := ds[0]
	var a authArgs

	if p, ok := d.Named("policy"); ok && p.String() != "" {
		v := p.String()
		a.policy = &v
	} else if p, ok := d.Arg(0); ok && p.String() != "" {
		v := p.String()
		a.policy = &v
	}
	if r, ok := d.Named("roles"); ok {
		a.roles = r.Strings()
	}
	if s, ok := d.Named("schemes"); ok {
		a.schemes = s.Strings()
	}
	return a, true
}

// resolveAuth ORs the flags of method and class, then takes each of policy,
// roles and schemes from the method when present and from the class
// otherwise. Metadata is dropped unless authorization is required.
func resolveAuth(c *decl.Class, m *decl.Method) authorization {
	methodAuth, methodHas := readAuthorize(m.DirectivesNamed(decl.DirAuthorize))
	classAuth, classHas := readAuthorize(c.DirectivesNamed(decl.DirAuthorize))

	_, methodAnon := m.Directive(decl.DirAnonymous)
	_, classAnon := c.Directive(decl.DirAnonymous)

	a := authorization{
		required:  methodHas || classHas,
		anonymous: methodAnon || classAnon,
	}
	if !a.required {
		return a
	}

	switch {
	case methodAuth.policy != nil:
		a.policy = *methodAuth.policy
	case classAuth.policy != nil:
		a.policy = *classAuth.policy
	}
	a.roles = firstNonNil(methodAuth.roles, classAuth.roles)
	a.schemes = firstNonNil(methodAuth.schemes, classAuth.schemes)
	return a
}

func firstNonNil(vals ...[]string) []string {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
