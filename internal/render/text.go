package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Styles controls terminal rendering of blocks.
type Styles struct {
	Success lipgloss.Style
	Failure lipgloss.Style
	Label   lipgloss.Style
	Code    lipgloss.Style
	Muted   lipgloss.Style
	Box     lipgloss.Style
}

// DefaultStyles returns the colored terminal styles.
func DefaultStyles() Styles {
	return Styles{
		Success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		Failure: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Label:   lipgloss.NewStyle().Bold(true),
		Code:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Box:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

// PlainStyles returns styles that add no escape sequences.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{Success: plain, Failure: plain, Label: plain, Code: plain, Muted: plain, Box: plain}
}

// Text renders blocks for a terminal, one box per block.
func Text(blocks []Block, st Styles) string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, st.Box.Render(textBody(b, st)))
	}
	return strings.Join(out, "\n")
}

var kindCaser = cases.Title(language.English)

func textBody(b Block, st Styles) string {
	var lines []string

	title := st.Failure.Render(b.Title)
	if b.Success {
		title = st.Success.Render(b.Title)
	}
	lines = append(lines, st.Muted.Render(kindCaser.String(string(b.Kind)))+"  "+title)

	if b.Message != "" {
		lines = append(lines, b.Message)
	}

	width := 0
	for _, f := range b.Fields {
		width = max(width, len(f.Label))
	}
	for _, f := range b.Fields {
		v := f.Value
		if f.Code {
			v = st.Code.Render(v)
		}
		lines = append(lines, st.Label.Render(f.Label+":"+strings.Repeat(" ", width-len(f.Label)))+" "+v)
	}

	if b.Raw != "" {
		lines = append(lines, "", b.Raw)
	}
	return strings.Join(lines, "\n")
}
