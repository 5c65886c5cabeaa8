// Package console renders user-facing progress output: panels, tables and
// one-line status reports.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/reflow/truncate"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MaxCellWidth bounds table cells; longer values are cut with an ellipsis.
const MaxCellWidth = 60

var numbers = message.NewPrinter(language.English)

// Console writes styled output to w. Colours are dropped when w is not a
// terminal.
type Console struct {
	w io.Writer
	r *lipgloss.Renderer

	bold    lipgloss.Style
	accent  lipgloss.Style
	dim     lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	warn    lipgloss.Style
	panel   lipgloss.Style
	border  lipgloss.Style
}

// New returns a Console writing to w.
func New(w io.Writer) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		w:       w,
		r:       r,
		bold:    r.NewStyle().Bold(true),
		accent:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		dim:     r.NewStyle().Faint(true),
		success: r.NewStyle().Foreground(lipgloss.Color("2")),
		failure: r.NewStyle().Foreground(lipgloss.Color("1")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("3")),
		panel: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("6")).
			Padding(0, 2),
		border: r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Writer returns the underlying writer.
func (c *Console) Writer() io.Writer { return c.w }

func (c *Console) println(s string) {
	fmt.Fprintln(c.w, s)
}

// Printf writes unstyled formatted text.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.w, format, args...)
}

// Panel draws a boxed heading.
func (c *Console) Panel(title, subtitle string) {
	body := c.accent.Render(title)
	if subtitle != "" {
		body += "\n" + c.dim.Render(subtitle)
	}
	c.println(c.panel.Render(body))
}

// Section starts a named block of output, e.g. "→ Notes".
func (c *Console) Section(title string) {
	c.println("\n" + c.bold.Render("→ "+title))
}

// Info reports progress inside a section.
func (c *Console) Info(format string, args ...any) {
	c.println("  " + fmt.Sprintf(format, args...))
}

// Dim reports a low-importance message inside a section.
func (c *Console) Dim(format string, args ...any) {
	c.println("  " + c.dim.Render(fmt.Sprintf(format, args...)))
}

// Success reports a completed item.
func (c *Console) Success(format string, args ...any) {
	c.println("    " + c.success.Render("✓") + " " + fmt.Sprintf(format, args...))
}

// Failure reports an item that could not be processed.
func (c *Console) Failure(format string, args ...any) {
	c.println("    " + c.failure.Render("✗") + " " + fmt.Sprintf(format, args...))
}

// Skip reports an item that was deliberately not processed.
func (c *Console) Skip(format string, args ...any) {
	c.println("    " + c.dim.Render("skip") + " " + fmt.Sprintf(format, args...))
}

// Warn writes a warning line.
func (c *Console) Warn(format string, args ...any) {
	c.println(c.warn.Render(fmt.Sprintf(format, args...)))
}

// Error writes an error line.
func (c *Console) Error(format string, args ...any) {
	c.println(c.failure.Render(fmt.Sprintf(format, args...)))
}

// Done writes the closing message.
func (c *Console) Done(format string, args ...any) {
	c.println("\n" + c.success.Copy().Bold(true).Render("Done!") + " " + fmt.Sprintf(format, args...))
}

// Highlight renders s in the accent style, for use inside other messages.
func (c *Console) Highlight(s string) string {
	return c.accent.Render(s)
}

// Table draws rows under a bold title. Cells wider than MaxCellWidth are
// truncated. Columns listed in rightAlign are right-aligned.
func (c *Console) Table(title string, headers []string, rows [][]string, rightAlign ...int) {
	right := make(map[int]bool, len(rightAlign))
	for _, col := range rightAlign {
		right[col] = true
	}
	cut := make([][]string, len(rows))
	for i, row := range rows {
		cut[i] = make([]string, len(row))
		for j, cell := range row {
			cut[i][j] = Truncate(cell, MaxCellWidth)
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(c.border).
		BorderRow(true).
		Headers(headers...).
		Rows(cut...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := c.r.NewStyle().Padding(0, 1)
			if right[col] {
				s = s.Align(lipgloss.Right)
			}
			return s
		})

	if title != "" {
		c.println(c.bold.Render(title))
	}
	c.println(t.String())
}

// Truncate shortens s to at most width cells, ending with an ellipsis.
func Truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if lipgloss.Width(s) <= width {
		return s
	}
	return truncate.StringWithTail(s, uint(width), "…")
}

// Count formats n with thousands separators.
func Count(n int) string {
	return numbers.Sprintf("%d", n)
}
