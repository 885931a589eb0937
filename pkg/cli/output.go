package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// printJSON writes v with a two-space indent. HTML characters are left as-is.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Output writes human-oriented status lines, colored when w is a terminal.
type Output struct {
	w       io.Writer
	success func(a ...any) string
	fail    func(a ...any) string
	info    func(a ...any) string
	bold    func(a ...any) string
	faint   func(a ...any) string
}

// NewOutput creates an Output for w. Color is disabled when noColor is set or w
// is not a terminal.
func NewOutput(w io.Writer, noColor bool) *Output {
	enabled := !noColor && isTerminal(w)
	mk := func(attrs ...color.Attribute) func(a ...any) string {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return &Output{
		w:       w,
		success: mk(color.FgGreen),
		fail:    mk(color.FgRed),
		info:    mk(color.FgCyan),
		bold:    mk(color.Bold),
		faint:   mk(color.Faint),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Success prints a success line.
func (o *Output) Success(format string, args ...any) {
	fmt.Fprintf(o.w, "%s %s\n", o.success("ok"), fmt.Sprintf(format, args...))
}

// Error prints an error line.
func (o *Output) Error(format string, args ...any) {
	fmt.Fprintf(o.w, "%s %s\n", o.fail("error"), fmt.Sprintf(format, args...))
}

// Info prints an informational line.
func (o *Output) Info(format string, args ...any) {
	fmt.Fprintf(o.w, "%s\n", o.info(fmt.Sprintf(format, args...)))
}

// KeyValue prints an aligned key/value pair.
func (o *Output) KeyValue(key, value string) {
	fmt.Fprintf(o.w, "  %-18s %s\n", o.bold(key+":"), value)
}

// Table collects rows and renders them with padded columns.
type Table struct {
	out     *Output
	headers []string
	rows    [][]string
	widths  []int
}

// NewTable creates a table with headers.
func (o *Output) NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	return &Table{out: o, headers: headers, widths: widths}
}

// AddRow appends a row; extra columns are dropped.
func (t *Table) AddRow(cols ...string) {
	if len(cols) > len(t.headers) {
		cols = cols[:len(t.headers)]
	}
	for i, col := range cols {
		if len(col) > t.widths[i] {
			t.widths[i] = len(col)
		}
	}
	t.rows = append(t.rows, cols)
}

// Render writes the table.
func (t *Table) Render() {
	w := t.out.w
	total := 0
	for i, h := range t.headers {
		// pad before coloring so escape codes do not count toward the width
		fmt.Fprint(w, t.out.bold(pad(h, t.widths[i])), "  ")
		total += t.widths[i] + 2
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, t.out.faint(strings.Repeat("-", min(total, 120))))
	for _, row := range t.rows {
		line := make([]string, len(row))
		for i, col := range row {
			line[i] = pad(col, t.widths[i])
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(line, "  "), " "))
	}
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
