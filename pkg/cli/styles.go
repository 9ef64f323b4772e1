package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme for terminal output.
type Theme struct {
	Primary lipgloss.Color // headers and labels
	Ok      lipgloss.Color // accepted / healthy
	Warn    lipgloss.Color // locked out / expiring
	Err     lipgloss.Color // rejected / failed
	Dim     lipgloss.Color // secondary detail
}

// DefaultTheme is the default voicegate theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Ok:      lipgloss.Color("#00ff9f"),
	Warn:    lipgloss.Color("#ffb454"),
	Err:     lipgloss.Color("#ff5f5f"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Header lipgloss.Style
	Label  lipgloss.Style
	Ok     lipgloss.Style
	Warn   lipgloss.Style
	Err    lipgloss.Style
	Dim    lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Header: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label:  lipgloss.NewStyle().Bold(true),
		Ok:     lipgloss.NewStyle().Bold(true).Foreground(t.Ok),
		Warn:   lipgloss.NewStyle().Bold(true).Foreground(t.Warn),
		Err:    lipgloss.NewStyle().Bold(true).Foreground(t.Err),
		Dim:    lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// Badge renders a short status word in the style matching its severity.
func (s Styles) Badge(level, text string) string {
	switch level {
	case "ok":
		return s.Ok.Render(text)
	case "warn":
		return s.Warn.Render(text)
	case "err":
		return s.Err.Render(text)
	default:
		return s.Dim.Render(text)
	}
}
