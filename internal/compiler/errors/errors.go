// Package errors provides structured diagnostics for the endpoint compiler.
// It defines diagnostic codes, categories, and formatting for both
// human-readable terminal output and machine-parseable JSON.
//
// Diagnostics are values, not failures: the analysis pass always completes
// and returns whatever it collected in an ErrorList.
package errors

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
)

// ErrorCode represents a unique diagnostic code
type ErrorCode string

// ErrorCategory represents the category of a diagnostic
type ErrorCategory string

const (
	// CategoryEndpoint represents endpoint shape violations (ME001-099)
	CategoryEndpoint ErrorCategory = "endpoint"
	// CategoryDirective represents malformed endpoint directives (ME100-199)
	CategoryDirective ErrorCategory = "directive"
	// CategoryCodeGen represents code generation errors (GEN600-699)
	CategoryCodeGen ErrorCategory = "codegen"
)

// ErrorSeverity indicates the severity level of a diagnostic
type ErrorSeverity string

const (
	// SeverityError blocks code generation
	SeverityError ErrorSeverity = "error"
	// SeverityWarning is reported but does not block generation
	SeverityWarning ErrorSeverity = "warning"
	// SeverityInfo indicates informational messages
	SeverityInfo ErrorSeverity = "info"
)

// ErrorContext provides source code context for an error
type ErrorContext struct {
	// Current is the line of code where the error occurred
	Current string `json:"current"`
	// FirstLine is the line number of SourceLines[0]
	FirstLine int `json:"first_line"`
	// SourceLines is a snippet of source code around the error line
	SourceLines []string `json:"source_lines"`
}

// CompilerError is one coded diagnostic.
type CompilerError struct {
	// Code is the stable diagnostic code (e.g., "ME001")
	Code ErrorCode `json:"code"`
	// Type is a machine-readable error type identifier
	Type string `json:"type"`
	// Category is the error category
	Category ErrorCategory `json:"category"`
	// Severity is the error severity level
	Severity ErrorSeverity `json:"severity"`
	// Message is the rendered message template
	Message string `json:"message"`
	// Location is the source location of the offending declaration
	Location decl.SourceLocation `json:"location"`
	// File is the source file name (optional)
	File string `json:"file,omitempty"`
	// Context provides source code context
	Context *ErrorContext `json:"context,omitempty"`
	// Expected describes what was expected (optional)
	Expected string `json:"expected,omitempty"`
	// Actual describes what was actually found (optional)
	Actual string `json:"actual,omitempty"`
	// Suggestion provides a hint for fixing the error (optional)
	Suggestion string `json:"suggestion,omitempty"`
	// Examples provides example fixes (optional)
	Examples []string `json:"examples,omitempty"`
	// Documentation points at the diagnostic reference
	Documentation string `json:"documentation,omitempty"`
}

// Error implements the error interface
func (e *CompilerError) Error() string {
	return FormatCompact(e)
}

// Format returns a human-readable error message for terminal output
func (e *CompilerError) Format() string {
	return FormatError(e)
}

// ToJSON returns the error as a JSON string
func (e *CompilerError) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// WithContext sets the source code context for the error. firstLine is the
// line number of sourceLines[0].
func (e *CompilerError) WithContext(current string, firstLine int, sourceLines []string) *CompilerError {
	e.Context = &ErrorContext{
		Current:     current,
		FirstLine:   firstLine,
		SourceLines: sourceLines,
	}
	return e
}

// WithExpected sets the expected value for the error
func (e *CompilerError) WithExpected(expected string) *CompilerError {
	e.Expected = expected
	return e
}

// WithActual sets the actual value for the error
func (e *CompilerError) WithActual(actual string) *CompilerError {
	e.Actual = actual
	return e
}

// WithSuggestion sets a suggestion for fixing the error
func (e *CompilerError) WithSuggestion(suggestion string) *CompilerError {
	e.Suggestion = suggestion
	return e
}

// WithExamples sets example fixes for the error
func (e *CompilerError) WithExamples(examples ...string) *CompilerError {
	e.Examples = examples
	return e
}

// ErrorList is an append-only collection of diagnostics
type ErrorList []*CompilerError

// Add appends a diagnostic. Entries are never retracted.
func (el *ErrorList) Add(e *CompilerError) {
	if e != nil {
		*el = append(*el, e)
	}
}

// Error implements the error interface
func (el ErrorList) Error() string {
	if len(el) == 0 {
		return "no errors"
	}
	return FormatErrorList(el)
}

// HasErrors returns true if the list contains any errors (excludes warnings/info)
func (el ErrorList) HasErrors() bool {
	for _, err := range el {
		if err.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings returns true if the list contains any warnings
func (el ErrorList) HasWarnings() bool {
	for _, err := range el {
		if err.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// ByCode returns the diagnostics carrying the given code.
func (el ErrorList) ByCode(code ErrorCode) ErrorList {
	var out ErrorList
	for _, err := range el {
		if err.Code == code {
			out = append(out, err)
		}
	}
	return out
}

// Sorted returns a copy ordered by file, line and column. Diagnostics at the
// same position keep their relative order.
func (el ErrorList) Sorted() ErrorList {
	out := make(ErrorList, len(el))
	copy(out, el)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Location, out[j].Location
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return out
}

// ContextLines is how many lines AttachSource shows on each side of the
// error line.
const ContextLines = 1

// AttachSource sets the source context of every diagnostic whose file can
// be read. Files that cannot be read are skipped; each file is read once.
func (el ErrorList) AttachSource(readFile func(name string) ([]byte, error)) {
	cache := make(map[string][]string)
	for _, e := range el {
		file, line := e.Location.File, e.Location.Line
		if file == "" || line <= 0 || e.Context != nil {
			continue
		}
		lines, ok := cache[file]
		if !ok {
			if src, err := readFile(file); err == nil {
				lines = strings.Split(strings.ReplaceAll(string(src), "\r\n", "\n"), "\n")
			}
			cache[file] = lines
		}
		if line > len(lines) {
			continue
		}
		first := max(line-ContextLines, 1)
		last := min(line+ContextLines, len(lines))
		e.WithContext(lines[line-1], first, lines[first-1:last])
	}
}

// ToJSON returns all errors as a JSON array
func (el ErrorList) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(el, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// ErrorCount returns the number of errors by severity
func (el ErrorList) ErrorCount() (errors, warnings, info int) {
	for _, err := range el {
		switch err.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		case SeverityInfo:
			info++
		}
	}
	return
}

// documentationURL returns the reference anchor for a diagnostic code
func documentationURL(code ErrorCode) string {
	return fmt.Sprintf("docs/diagnostics.md#%s", strings.ToLower(string(code)))
}

// newError creates a new CompilerError with the given parameters
func newError(
	code ErrorCode,
	typ string,
	category ErrorCategory,
	severity ErrorSeverity,
	message string,
	loc decl.SourceLocation,
) *CompilerError {
	return &CompilerError{
		Code:          code,
		Type:          typ,
		Category:      category,
		Severity:      severity,
		Message:       message,
		Location:      loc,
		File:          loc.File,
		Documentation: documentationURL(code),
	}
}
