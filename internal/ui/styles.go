package ui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#10B981")
	mutedColor     = lipgloss.Color("#9CA3AF")
	errorColor     = lipgloss.Color("#EF4444")
	activeBorder   = lipgloss.Color("#F59E0B")
)

// Styles groups the lipgloss styles of the app.
type Styles struct {
	Title        lipgloss.Style
	Panel        lipgloss.Style
	FocusedPanel lipgloss.Style
	Selected     lipgloss.Style
	Unselected   lipgloss.Style
	Active       lipgloss.Style
	Muted        lipgloss.Style
	OwnMessage   lipgloss.Style
	OtherMessage lipgloss.Style
	Image        lipgloss.Style
	Error        lipgloss.Style
	Info         lipgloss.Style
	Help         lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1),
		FocusedPanel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(activeBorder).
			Padding(0, 1),
		Selected: lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true).
			PaddingLeft(1).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(secondaryColor),
		Unselected: lipgloss.NewStyle().
			PaddingLeft(2),
		Active: lipgloss.NewStyle().
			Foreground(primaryColor),
		Muted: lipgloss.NewStyle().
			Foreground(mutedColor),
		OwnMessage: lipgloss.NewStyle().
			Foreground(secondaryColor),
		OtherMessage: lipgloss.NewStyle().
			Foreground(primaryColor),
		Image: lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true),
		Info: lipgloss.NewStyle().
			Foreground(secondaryColor),
		Help: lipgloss.NewStyle().
			Foreground(mutedColor).
			Faint(true),
	}
}
