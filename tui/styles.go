package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles for the chat surface.
type Styles struct {
	Header  lipgloss.Style
	Status  lipgloss.Style
	Error   lipgloss.Style
	Notice  lipgloss.Style
	Prompt  lipgloss.Style
	Spinner lipgloss.Style
}

// DefaultStyles returns the default color scheme.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BC34A")).
			Padding(0, 1),
		Status: lipgloss.NewStyle().
			Faint(true).
			Padding(0, 1),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e53935")).
			Padding(0, 1),
		Notice: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#2196F3")).
			Padding(0, 1),
		Prompt: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8BC34A")),
		Spinner: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFC107")),
	}
}
