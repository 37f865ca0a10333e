package resolver

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/terrascale/minimalendpoints/internal/compiler/model"
)

// Doc is the structured form of a handler's Go doc comment.
//
// The first paragraph is the summary and the remaining paragraphs form the
// description. Keyword lines are lifted out of the prose:
//
//	Tags: users, admin
//	Response 404: User not found
//	Param id: The user identifier
//
// A paragraph starting with "Deprecated:" marks the handler deprecated.
type Doc struct {
	Summary     string
	Description string
	Tags        []string
	Responses   model.Responses
	Params      map[string]string
	Deprecated  bool
}

var (
	tagsLine     = regexp.MustCompile(`^Tags:\s*(.*)$`)
	responseLine = regexp.MustCompile(`^Response\s+(\d{3}):\s*(.*)$`)
	paramLine    = regexp.MustCompile(`^Param\s+([A-Za-z_][A-Za-z0-9_]*):\s*(.*)$`)
)

// ParseDoc parses doc comment text as produced by go/ast CommentGroup.Text.
func ParseDoc(text string) Doc {
	var d Doc
	var paragraphs []string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		p := strings.Join(current, " ")
		current = nil
		if strings.HasPrefix(p, "Deprecated:") {
			d.Deprecated = true
			return
		}
		paragraphs = append(paragraphs, p)
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			flush()
			continue
		}

		if m := tagsLine.FindStringSubmatch(line); m != nil {
			for _, tag := range strings.Split(m[1], ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					d.Tags = append(d.Tags, tag)
				}
			}
			continue
		}
		if m := responseLine.FindStringSubmatch(line); m != nil {
			code, err := strconv.Atoi(m[1])
			if err == nil && model.ValidStatus(code) {
				d.Responses = d.Responses.Set(code, strings.TrimSpace(m[2]))
			}
			continue
		}
		if m := paramLine.FindStringSubmatch(line); m != nil {
			if d.Params == nil {
				d.Params = make(map[string]string)
			}
			d.Params[m[1]] = strings.TrimSpace(m[2])
			continue
		}

		current = append(current, line)
	}
	flush()

	if len(paragraphs) > 0 {
		d.Summary = paragraphs[0]
		d.Description = strings.Join(paragraphs[1:], "\n\n")
	}
	return d
}
