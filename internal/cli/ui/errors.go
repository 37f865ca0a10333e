package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/terrascale/minimalendpoints/internal/compiler/errors"
)

// ErrorLevel represents the severity of an error message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Consequence  string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError creates a standardized error message with suggestions and help commands
//
// Example output:
//
//	❌ UNKNOWN GROUP
//	   No route group named 'Amdin'.
//
//	   Did you mean: Admin?
//
//	   → List groups: endpointgen routes
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	headerColor, bodyColor, symbol := levelStyle(opts.Level, opts.NoColor)

	if opts.Context != "" {
		headerColor.Fprintf(&b, "%s %s\n", symbol, strings.ToUpper(opts.Context))
		if opts.Problem != "" {
			bodyColor.Fprintf(&b, "   %s\n", opts.Problem)
		}
	} else {
		headerColor.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if opts.Consequence != "" {
		b.WriteString("\n")
		bodyColor.Fprintf(&b, "   %s\n", opts.Consequence)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		yellow := color.New(color.FgYellow)
		if opts.NoColor {
			yellow.DisableColor()
		}
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := color.New(color.FgCyan)
		if opts.NoColor {
			cyan.DisableColor()
		}
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

func levelStyle(level ErrorLevel, noColor bool) (header, body *color.Color, symbol string) {
	switch level {
	case ErrorLevelWarning:
		header = color.New(color.FgYellow, color.Bold)
		body = color.New(color.FgYellow)
		symbol = "⚠️"
	case ErrorLevelInfo:
		header = color.New(color.FgCyan, color.Bold)
		body = color.New(color.FgCyan)
		symbol = "ℹ️"
	default:
		header = color.New(color.FgRed, color.Bold)
		body = color.New(color.FgRed)
		symbol = "❌"
	}
	if noColor {
		header.DisableColor()
		body.DisableColor()
	}
	return header, body, symbol
}

// WriteError writes a formatted error message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// ConfigError creates a standardized configuration error
func ConfigError(message string, suggestions []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "CONFIGURATION ERROR",
		Problem:     message,
		Suggestions: suggestions,
		HelpCommands: []string{
			"View config: cat endpointgen.yaml",
			"Get help: endpointgen --help",
		},
		NoColor: noColor,
	})
}

// GenerateError creates a standardized error for a failed generation run
func GenerateError(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "GENERATION FAILED",
		Problem:     message,
		Consequence: "No files were written.",
		HelpCommands: []string{
			"Report diagnostics only: endpointgen check",
			"Get help: endpointgen generate --help",
		},
		NoColor: noColor,
	})
}

// GroupNotFoundError reports an unknown route group with close matches.
func GroupNotFoundError(group string, suggestions []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:        ErrorLevelError,
		Context:      "UNKNOWN GROUP",
		Problem:      fmt.Sprintf("No route group named '%s'.", group),
		Suggestions:  suggestions,
		HelpCommands: []string{"List routes: endpointgen routes"},
		NoColor:      noColor,
	})
}

// Warning creates a standardized warning message
func Warning(message string, suggestions []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:       ErrorLevelWarning,
		Problem:     message,
		Suggestions: suggestions,
		NoColor:     noColor,
	})
}

// FormatDiagnostic renders one diagnostic as
//
//	file:line:col: error ME001: message
//	       3 | //endpoint:get ping
//	  >    4 | func (p *Ping) Handle() string {
//	   hint: ...
//	   see docs/diagnostics.md#me001
func FormatDiagnostic(e *errors.CompilerError, noColor bool) string {
	var b strings.Builder

	level := ErrorLevelError
	switch e.Severity {
	case errors.SeverityWarning:
		level = ErrorLevelWarning
	case errors.SeverityInfo:
		level = ErrorLevelInfo
	}
	header, _, _ := levelStyle(level, noColor)
	gray := color.New(color.FgHiBlack)
	if noColor {
		gray.DisableColor()
	}

	file := e.File
	if file == "" {
		file = "<source>"
	}
	fmt.Fprintf(&b, "%s:%d:%d: ", file, e.Location.Line, e.Location.Column)
	header.Fprintf(&b, "%s %s", e.Severity, e.Code)
	fmt.Fprintf(&b, ": %s\n", e.Message)

	if e.Context != nil {
		for i, line := range e.Context.SourceLines {
			n := e.Context.FirstLine + i
			marker := " "
			if n == e.Location.Line {
				marker = ">"
			}
			fmt.Fprintf(&b, "  %s %4d | %s\n", marker, n, line)
		}
	}

	if e.Suggestion != "" {
		fmt.Fprintf(&b, "   hint: %s\n", e.Suggestion)
	}
	for _, ex := range e.Examples {
		fmt.Fprintf(&b, "         %s\n", ex)
	}
	if e.Documentation != "" {
		gray.Fprintf(&b, "   see %s\n", e.Documentation)
	}
	return b.String()
}

// WriteDiagnostics writes every diagnostic in stable order followed by a
// one-line count summary. Nothing is written for an empty list.
func WriteDiagnostics(w io.Writer, diags errors.ErrorList, noColor bool) {
	if len(diags) == 0 {
		return
	}
	for _, d := range diags.Sorted() {
		fmt.Fprint(w, FormatDiagnostic(d, noColor))
	}
	nErr, nWarn, _ := diags.ErrorCount()
	fmt.Fprintf(w, "\n%s, %s\n", plural(nErr, "error"), plural(nWarn, "warning"))
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
