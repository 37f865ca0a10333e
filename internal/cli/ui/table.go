package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/terrascale/minimalendpoints/internal/compiler/metadata"
)

// Table represents a simple table for displaying tabular data
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	noColor bool
	// colorize optionally styles a cell; it gets the column index.
	colorize func(col int, cell string) *color.Color
}

// TableOptions configures table behavior
type TableOptions struct {
	NoColor bool
}

// NewTable creates a new table with the given headers
func NewTable(w io.Writer, headers []string, opts *TableOptions) *Table {
	noColor := false
	if opts != nil {
		noColor = opts.NoColor
	}

	return &Table{
		writer:  w,
		headers: headers,
		rows:    make([][]string, 0),
		noColor: noColor,
	}
}

// AddRow adds a row to the table
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render renders the table to the writer
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	bold := color.New(color.Bold, color.FgCyan)
	if t.noColor {
		bold.DisableColor()
	}
	for i, header := range t.headers {
		bold.Fprint(t.writer, t.cell(header, i, widths))
	}
	fmt.Fprintln(t.writer)

	gray := color.New(color.FgHiBlack)
	if t.noColor {
		gray.DisableColor()
	}
	for i, width := range widths {
		gray.Fprint(t.writer, strings.Repeat("─", width))
		if i < len(widths)-1 {
			gray.Fprint(t.writer, "  ")
		}
	}
	fmt.Fprintln(t.writer)

	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			text := t.cell(cell, i, widths)
			if t.colorize != nil && !t.noColor {
				if c := t.colorize(i, cell); c != nil {
					c.Fprint(t.writer, text)
					continue
				}
			}
			fmt.Fprint(t.writer, text)
		}
		fmt.Fprintln(t.writer)
	}
}

// cell pads a cell to its column; the last column is not padded.
func (t *Table) cell(s string, col int, widths []int) string {
	if col == len(widths)-1 {
		return s
	}
	return padRight(s, widths[col]) + "  "
}

// padRight pads a string with spaces on the right to reach the target width
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

var verbColors = map[string]color.Attribute{
	"GET":    color.FgGreen,
	"POST":   color.FgYellow,
	"PUT":    color.FgBlue,
	"PATCH":  color.FgMagenta,
	"DELETE": color.FgRed,
}

// RenderRoutes writes one row per route: method, path, endpoint, group,
// auth requirement and payload.
func RenderRoutes(w io.Writer, routes []metadata.RouteMetadata, noColor bool) {
	t := NewTable(w, []string{"METHOD", "PATH", "ENDPOINT", "GROUP", "AUTH", "PAYLOAD"}, &TableOptions{NoColor: noColor})
	t.colorize = func(col int, cell string) *color.Color {
		if col != 0 {
			return nil
		}
		if attr, ok := verbColors[cell]; ok {
			return color.New(attr)
		}
		return nil
	}
	for _, r := range routes {
		t.AddRow(r.Method, r.Path, r.Endpoint, r.Group, authLabel(r.Auth), r.Payload)
	}
	t.Render()
}

func authLabel(a *metadata.AuthMetadata) string {
	switch {
	case a == nil:
		return "-"
	case a.Anonymous:
		return "anonymous"
	case a.Policy != "":
		return "policy:" + a.Policy
	case len(a.Roles) > 0:
		return "roles:" + strings.Join(a.Roles, ",")
	default:
		return "required"
	}
}

// KeyValueTable renders a simple key-value table (2 columns)
type KeyValueTable struct {
	writer  io.Writer
	rows    []kvRow
	noColor bool
}

type kvRow struct {
	key   string
	value string
}

// NewKeyValueTable creates a new key-value table
func NewKeyValueTable(w io.Writer, noColor bool) *KeyValueTable {
	return &KeyValueTable{
		writer:  w,
		noColor: noColor,
	}
}

// AddRow adds a key-value pair to the table
func (t *KeyValueTable) AddRow(key, value string) {
	t.rows = append(t.rows, kvRow{key: key, value: value})
}

// Render renders the key-value table
func (t *KeyValueTable) Render() {
	if len(t.rows) == 0 {
		return
	}

	maxKeyWidth := 0
	for _, row := range t.rows {
		if len(row.key) > maxKeyWidth {
			maxKeyWidth = len(row.key)
		}
	}

	cyan := color.New(color.FgCyan)
	if t.noColor {
		cyan.DisableColor()
	}
	for _, row := range t.rows {
		cyan.Fprint(t.writer, padRight(row.key+":", maxKeyWidth+1))
		fmt.Fprintf(t.writer, " %s\n", row.value)
	}
}
