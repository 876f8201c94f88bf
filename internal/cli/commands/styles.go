package commands

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Styles are the text styles of interactive output.
type Styles struct {
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// newStyles returns styles for output going to w. Anything that is not a
// terminal gets plain text.
func newStyles(w io.Writer) *Styles {
	r := lipgloss.NewRenderer(w)
	if !isTerminal(w) {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Styles{
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Faint(true),
		Success: r.NewStyle().Foreground(lipgloss.Color("2")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("3")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("1")),
	}
}

// statusStyle picks the style of a contact status line.
func (s *Styles) statusStyle(status string) lipgloss.Style {
	switch {
	case status == "connected" || status == "loaded":
		return s.Success
	case status == "disconnected":
		return s.Muted
	case status == "connecting" || status == "loading":
		return s.Warning
	default:
		return s.Error
	}
}
