package tui

import (
	"trooper/internal/config"

	"github.com/charmbracelet/lipgloss"
)

// Styles are the lipgloss styles of the interface, derived from a theme.
type Styles struct {
	Title     lipgloss.Style
	Status    lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Pending   lipgloss.Style
	Selected  lipgloss.Style
	File      lipgloss.Style
	Directory lipgloss.Style
	Symlink   lipgloss.Style
	Hidden    lipgloss.Style
	Panel     lipgloss.Style
	PanelKey  lipgloss.Style
	Prompt    lipgloss.Style
}

// NewStyles builds the styles for theme.
func NewStyles(theme config.Theme) Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(theme.Primary)),
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Info)),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Error)),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Success)),
		Pending: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(theme.Warning)),
		Selected: lipgloss.NewStyle().
			Bold(true).
			Reverse(true),
		File: lipgloss.NewStyle(),
		Directory: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(theme.Info)),
		Symlink: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color(theme.Emphasis)),
		Hidden: lipgloss.NewStyle().
			Faint(true),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(theme.Border)).
			Padding(0, 1),
		PanelKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(theme.Emphasis)),
		Prompt: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Primary)),
	}
}
