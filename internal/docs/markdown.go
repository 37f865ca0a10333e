// Package docs renders a Markdown route reference from a route manifest.
package docs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/terrascale/minimalendpoints/internal/compiler/metadata"
)

// MarkdownGenerator renders route manifests as Markdown.
type MarkdownGenerator struct {
	title string
}

// NewMarkdownGenerator creates a generator. An empty title defaults to the
// manifest identity.
func NewMarkdownGenerator(title string) *MarkdownGenerator {
	return &MarkdownGenerator{title: title}
}

// Generate renders m: an index of groups, then one section per group with
// its routes in manifest order. Routes without a group name are listed under
// "Other".
func (g *MarkdownGenerator) Generate(m *metadata.Manifest) string {
	var buf strings.Builder

	title := g.title
	if title == "" {
		title = m.Identity
	}
	buf.WriteString(fmt.Sprintf("# %s Routes\n\n", title))
	if m.Version != "" {
		buf.WriteString(fmt.Sprintf("**Version:** %s\n\n", m.Version))
	}

	groups, byGroup := groupRoutes(m)
	if len(groups) == 0 {
		buf.WriteString("No routes.\n")
		return buf.String()
	}

	buf.WriteString("## Groups\n\n")
	for _, name := range groups {
		buf.WriteString(fmt.Sprintf("- [%s](#%s) (%d)\n", name, anchor(name), len(byGroup[name])))
	}
	buf.WriteString("\n")

	for _, name := range groups {
		buf.WriteString(fmt.Sprintf("## %s\n\n", name))
		for _, r := range byGroup[name] {
			g.writeRoute(&buf, r)
		}
	}
	return buf.String()
}

// writeRoute writes a single route to the buffer
func (g *MarkdownGenerator) writeRoute(buf *strings.Builder, r metadata.RouteMetadata) {
	buf.WriteString(fmt.Sprintf("### %s %s\n\n", r.Method, r.Path))

	if r.Deprecated {
		buf.WriteString("> **Deprecated**\n\n")
	}
	if r.Summary != "" {
		buf.WriteString(fmt.Sprintf("%s\n\n", r.Summary))
	}
	if r.Description != "" {
		buf.WriteString(fmt.Sprintf("%s\n\n", r.Description))
	}

	buf.WriteString(fmt.Sprintf("- **Endpoint:** `%s`\n", r.Endpoint))
	buf.WriteString(fmt.Sprintf("- **Auth:** %s\n", authText(r.Auth)))
	if r.Payload != "" && r.Payload != "void" {
		buf.WriteString(fmt.Sprintf("- **Payload:** `%s`\n", r.Payload))
	}
	if len(r.Consumes) > 0 {
		buf.WriteString(fmt.Sprintf("- **Accepts:** %s\n", strings.Join(r.Consumes, ", ")))
	}
	if len(r.Tags) > 0 {
		buf.WriteString(fmt.Sprintf("- **Tags:** %s\n", strings.Join(r.Tags, ", ")))
	}
	if len(r.Filters) > 0 {
		buf.WriteString(fmt.Sprintf("- **Filters:** %s\n", strings.Join(r.Filters, ", ")))
	}
	buf.WriteString("\n")

	if len(r.Params) > 0 {
		buf.WriteString("**Parameters:**\n\n")
		buf.WriteString("| Name | In | Type |\n")
		buf.WriteString("|------|----|------|\n")
		for _, p := range r.Params {
			name := p.Name
			if p.Key != "" {
				name = p.Key
			}
			buf.WriteString(fmt.Sprintf("| `%s` | %s | `%s` |\n", name, p.Source, p.Type))
		}
		buf.WriteString("\n")
	}

	if len(r.Produces) > 0 || len(r.Responses) > 0 {
		buf.WriteString("**Responses:**\n\n")
		for _, p := range r.Produces {
			line := fmt.Sprintf("- **%d**", p.Status)
			if p.Type != "" {
				line += fmt.Sprintf(" `%s`", p.Type)
			}
			if len(p.ContentTypes) > 0 {
				line += " (" + strings.Join(p.ContentTypes, ", ") + ")"
			}
			buf.WriteString(line + "\n")
		}
		statuses := make([]int, 0, len(r.Responses))
		for status := range r.Responses {
			statuses = append(statuses, status)
		}
		sort.Ints(statuses)
		for _, status := range statuses {
			buf.WriteString(fmt.Sprintf("- **%d** %s\n", status, r.Responses[status]))
		}
		buf.WriteString("\n")
	}
}

// groupRoutes orders groups by first appearance in the manifest.
func groupRoutes(m *metadata.Manifest) ([]string, map[string][]metadata.RouteMetadata) {
	var names []string
	byGroup := make(map[string][]metadata.RouteMetadata)
	for _, r := range m.Routes {
		name := r.Group
		if name == "" {
			name = "Other"
		}
		if _, ok := byGroup[name]; !ok {
			names = append(names, name)
		}
		byGroup[name] = append(byGroup[name], r)
	}
	return names, byGroup
}

func authText(a *metadata.AuthMetadata) string {
	switch {
	case a == nil:
		return "none"
	case a.Anonymous:
		return "anonymous"
	}
	var parts []string
	if a.Policy != "" {
		parts = append(parts, "policy `"+a.Policy+"`")
	}
	if len(a.Roles) > 0 {
		parts = append(parts, "roles "+strings.Join(a.Roles, ", "))
	}
	if len(a.Schemes) > 0 {
		parts = append(parts, "schemes "+strings.Join(a.Schemes, ", "))
	}
	if len(parts) == 0 {
		return "required"
	}
	return "required (" + strings.Join(parts, "; ") + ")"
}

// anchor mirrors GitHub heading anchors: lowercase, spaces to dashes, other
// punctuation dropped.
func anchor(heading string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(heading) {
		switch {
		case r == ' ' || r == '-':
			b.WriteRune('-')
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		}
	}
	return b.String()
}
