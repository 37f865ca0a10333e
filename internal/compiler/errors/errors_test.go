package errors

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
)

func TestErrorCodeUniqueness(t *testing.T) {
	codes := make(map[ErrorCode]string)

	for _, d := range Descriptors {
		if prev, exists := codes[d.Code]; exists {
			t.Errorf("Duplicate error code %s (previously used for %s)", d.Code, prev)
		}
		codes[d.Code] = d.Type
	}

	for _, code := range []ErrorCode{ErrCodeGenFailed, ErrInvalidGoIdentifier} {
		if prev, exists := codes[code]; exists {
			t.Errorf("Duplicate error code %s (previously used for %s)", code, prev)
		}
		codes[code] = "codegen"
	}
}

func TestDescriptorMessages(t *testing.T) {
	loc := decl.SourceLocation{File: "users/get.go", Line: 12, Column: 1}

	tests := []struct {
		name string
		err  *CompilerError
		code ErrorCode
		want string
	}{
		{
			"ME001",
			NewHandlerNotFallible(loc, "Handle", "*User"),
			ErrHandlerNotFallible,
			"Endpoint method 'Handle' must return error as its last result. All endpoint methods must be fallible.",
		},
		{
			"ME002",
			NewMissingEndpointMarker(loc, "GetUser"),
			ErrMissingEndpointMarker,
			"Endpoint type 'GetUser' must implement the endpoint.Endpoint marker (embed endpoint.Base or endpoint.Grouped[G])",
		},
		{
			"ME003",
			NewMultipleHandlers(loc, "Users", 2, []string{"Get", "Post"}),
			ErrMultipleHandlers,
			"Endpoint type 'Users' contains 2 handler methods. Only one endpoint per type is allowed.",
		},
		{
			"ME004",
			NewDuplicateRoute(loc, "GET", "", "a.A", "b.B"),
			ErrDuplicateRoute,
			"GET / is registered by both 'a.A' and 'b.B'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.Message != tt.want {
				t.Errorf("Expected message %q, got %q", tt.want, tt.err.Message)
			}
			if tt.err.File != "users/get.go" {
				t.Errorf("Expected file to be taken from location, got %q", tt.err.File)
			}
		})
	}
}

func TestErrorJSONSerialization(t *testing.T) {
	loc := decl.SourceLocation{File: "x.go", Line: 10, Column: 5}
	err := NewHandlerNotFallible(loc, "Handle", "string")

	jsonStr, jsonErr := err.ToJSON()
	if jsonErr != nil {
		t.Fatalf("Failed to serialize error to JSON: %v", jsonErr)
	}

	var parsed CompilerError
	if unmarshalErr := json.Unmarshal([]byte(jsonStr), &parsed); unmarshalErr != nil {
		t.Fatalf("Failed to parse error JSON: %v", unmarshalErr)
	}

	if parsed.Code != ErrHandlerNotFallible {
		t.Errorf("Expected code %s, got %s", ErrHandlerNotFallible, parsed.Code)
	}
	if parsed.Category != CategoryEndpoint {
		t.Errorf("Expected category %s, got %s", CategoryEndpoint, parsed.Category)
	}
	if parsed.Location.Line != 10 || parsed.Location.Column != 5 {
		t.Errorf("Expected 10:5, got %d:%d", parsed.Location.Line, parsed.Location.Column)
	}
	if parsed.Actual != "string" {
		t.Errorf("Expected actual 'string', got '%s'", parsed.Actual)
	}
}

func TestErrorFormatting(t *testing.T) {
	loc := decl.SourceLocation{File: "users/get.go", Line: 10, Column: 1}
	err := NewHandlerNotFallible(loc, "Handle", "*User").
		WithContext("func (e *GetUser) Handle() *User {", 9, []string{
			"//endpoint:get api/users",
			"func (e *GetUser) Handle() *User {",
			"\treturn nil",
		})

	formatted := err.Format()

	for _, want := range []string{
		"Endpoint Error ME001",
		"users/get.go",
		"Line 10",
		" 10 |  func (e *GetUser) Handle() *User { ← Endpoint method 'Handle'",
		"  9 |  //endpoint:get api/users",
		"Expected: error or (T, error)",
		"Actual:   *User",
		"docs/diagnostics.md#me001",
	} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Formatted error should contain %q:\n%s", want, formatted)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	err := NewMissingEndpointMarker(decl.SourceLocation{File: "a.go", Line: 3, Column: 6}, "A")
	got := FormatCompact(err)
	want := "a.go:3:6: error: Endpoint type 'A' must implement the endpoint.Endpoint marker (embed endpoint.Base or endpoint.Grouped[G]) [ME002]"
	if got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
	if err.Error() != want {
		t.Errorf("Error() should be the compact form")
	}
}

func TestErrorListAddAndCount(t *testing.T) {
	var list ErrorList
	list.Add(NewHandlerNotFallible(decl.SourceLocation{Line: 1}, "A", ""))
	list.Add(nil)
	list.Add(NewDuplicateRoute(decl.SourceLocation{Line: 2}, "GET", "x", "a", "b"))
	list.Add(NewMalformedDirective(decl.SourceLocation{Line: 3}, "unknown endpoint directive \"fetch\""))

	if len(list) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(list))
	}

	errCount, warnCount, infoCount := list.ErrorCount()
	if errCount != 1 || warnCount != 2 || infoCount != 0 {
		t.Errorf("Expected 1/2/0, got %d/%d/%d", errCount, warnCount, infoCount)
	}
	if !list.HasErrors() || !list.HasWarnings() {
		t.Error("Expected both errors and warnings")
	}
	if got := list.ByCode(ErrDuplicateRoute); len(got) != 1 {
		t.Errorf("Expected one ME004, got %d", len(got))
	}

	formatted := list.Error()
	if !strings.Contains(formatted, "1 error(s), 2 warning(s)") {
		t.Errorf("Formatted list should contain counts:\n%s", formatted)
	}
}

func TestErrorListHasErrors(t *testing.T) {
	warningsOnly := ErrorList{
		NewDuplicateRoute(decl.SourceLocation{}, "GET", "x", "a", "b"),
	}
	if warningsOnly.HasErrors() {
		t.Error("Expected HasErrors() to return false when list contains only warnings")
	}
	if (ErrorList{}).Error() != "no errors" {
		t.Error("Expected empty list to format as 'no errors'")
	}
}

func TestErrorListSorted(t *testing.T) {
	list := ErrorList{
		NewMissingEndpointMarker(decl.SourceLocation{File: "b.go", Line: 1}, "B"),
		NewMissingEndpointMarker(decl.SourceLocation{File: "a.go", Line: 9}, "A2"),
		NewMissingEndpointMarker(decl.SourceLocation{File: "a.go", Line: 2}, "A1"),
	}

	sorted := list.Sorted()
	got := []string{sorted[0].Message, sorted[1].Message, sorted[2].Message}
	for i, name := range []string{"'A1'", "'A2'", "'B'"} {
		if !strings.Contains(got[i], name) {
			t.Errorf("position %d: expected %s, got %s", i, name, got[i])
		}
	}
	if list[0].Location.File != "b.go" {
		t.Error("Sorted must not reorder the receiver")
	}
}

func TestWithMethods(t *testing.T) {
	err := NewMultipleHandlers(decl.SourceLocation{File: "users.go", Line: 5, Column: 10}, "Users", 2, nil).
		WithSuggestion("Split Users").
		WithExamples("type GetUser struct{ endpoint.Base }")

	if err.File != "users.go" {
		t.Errorf("Expected file 'users.go', got '%s'", err.File)
	}
	if err.Actual != "" {
		t.Errorf("Expected no actual without method names, got %q", err.Actual)
	}
	if err.Suggestion != "Split Users" {
		t.Errorf("Expected suggestion override, got '%s'", err.Suggestion)
	}
	if len(err.Examples) != 1 {
		t.Errorf("Expected 1 example, got %d", len(err.Examples))
	}
}

func TestAttachSource(t *testing.T) {
	src := "package users\n\n//endpoint:get ping\nfunc (p *Ping) Handle() string {\n\treturn \"\"\n}\n"
	reads := 0
	readFile := func(name string) ([]byte, error) {
		reads++
		if name != "ping.go" {
			return nil, os.ErrNotExist
		}
		return []byte(src), nil
	}

	var list ErrorList
	list.Add(NewHandlerNotFallible(decl.SourceLocation{File: "ping.go", Line: 4, Column: 1}, "Handle", "string"))
	list.Add(NewMissingEndpointMarker(decl.SourceLocation{File: "ping.go", Line: 1, Column: 1}, "Ping"))
	list.Add(NewMissingEndpointMarker(decl.SourceLocation{File: "gone.go", Line: 2}, "Gone"))
	list.AttachSource(readFile)

	if reads != 2 {
		t.Errorf("Expected each file to be read once, got %d reads", reads)
	}

	ctx := list[0].Context
	if ctx == nil {
		t.Fatal("Expected context for ping.go:4")
	}
	if ctx.Current != "func (p *Ping) Handle() string {" {
		t.Errorf("Unexpected current line %q", ctx.Current)
	}
	if ctx.FirstLine != 3 || len(ctx.SourceLines) != 3 {
		t.Errorf("Expected lines 3-5, got first=%d len=%d", ctx.FirstLine, len(ctx.SourceLines))
	}

	if got := list[1].Context; got == nil || got.FirstLine != 1 || len(got.SourceLines) != 2 {
		t.Errorf("Expected lines 1-2 for the first line, got %+v", got)
	}
	if list[2].Context != nil {
		t.Error("Expected no context for an unreadable file")
	}
	if !strings.Contains(list[0].Format(), "  4 |  func (p *Ping) Handle() string { ←") {
		t.Errorf("Expected arrow on the error line:\n%s", list[0].Format())
	}
}
