package resolver

import "strings"

// Combine joins a base route with a method route. An empty operand yields
// the other verbatim and a method route starting with "/" replaces the base.
func Combine(base, route string) string {
	if base == "" {
		return route
	}
	if route == "" {
		return base
	}
	if strings.HasPrefix(route, "/") {
		return route
	}
	return strings.Trim(base, "/") + "/" + strings.Trim(route, "/")
}

// NormalizeRoute collapses repeated slashes and drops a trailing slash. The
// root route "/" and the empty route are returned as is.
func NormalizeRoute(route string) string {
	if route == "" || route == "/" {
		return route
	}

	var b strings.Builder
	b.Grow(len(route))
	prevSlash := false
	for _, r := range route {
		if r == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteRune(r)
	}

	out := b.String()
	if len(out) > 1 {
		out = strings.TrimSuffix(out, "/")
	}
	return out
}
