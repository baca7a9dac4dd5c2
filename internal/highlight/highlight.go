// Package highlight renders commands for the terminal with each placeholder
// drawn in its variable color.
package highlight

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/starford/petpad/internal/vars"
)

// Highlighter styles output for one terminal.
type Highlighter struct {
	r *lipgloss.Renderer
}

// New returns a Highlighter whose color support is detected from w.
func New(w io.Writer) *Highlighter {
	return NewWithRenderer(lipgloss.NewRenderer(w))
}

// NewWithRenderer wraps an existing renderer.
func NewWithRenderer(r *lipgloss.Renderer) *Highlighter {
	return &Highlighter{r: r}
}

func (h *Highlighter) style(color string) lipgloss.Style {
	return h.r.NewStyle().Bold(true).Foreground(lipgloss.Color(color))
}

// Command renders command with every position colored. Positions must be
// sorted and non-overlapping, as returned by vars.Parser.Positions.
func (h *Highlighter) Command(command string, positions []vars.Position) string {
	var b strings.Builder
	last := 0
	for _, p := range positions {
		if p.Start < last || p.End > len(command) {
			continue
		}
		b.WriteString(command[last:p.Start])
		b.WriteString(h.style(p.Color).Render(command[p.Start:p.End]))
		last = p.End
	}
	b.WriteString(command[last:])
	return b.String()
}

// Variables renders one line per variable: the colored name followed by its
// default or list values.
func (h *Highlighter) Variables(variables []vars.Variable) string {
	muted := h.r.NewStyle().Foreground(lipgloss.Color("#888888"))
	var b strings.Builder
	for _, v := range variables {
		b.WriteString(h.style(v.Color).Render(v.Name))
		switch {
		case v.IsList:
			b.WriteString(muted.Render(" list "))
			fmt.Fprintf(&b, "%q", v.ListValues)
		case v.Value != "":
			b.WriteString(muted.Render(" = "))
			b.WriteString(v.Value)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
