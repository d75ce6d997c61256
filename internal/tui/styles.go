package tui

import (
	"strings"

	catppuccin "github.com/catppuccin/go"
	"github.com/charmbracelet/lipgloss"
)

// Styles holds every style the UI renders with, derived from one catppuccin flavor
type Styles struct {
	Title         lipgloss.Style
	Status        lipgloss.Style
	Running       lipgloss.Style
	Stopped       lipgloss.Style
	Label         lipgloss.Style
	Value         lipgloss.Style
	Button        lipgloss.Style
	ButtonOff     lipgloss.Style
	SectionHeader lipgloss.Style
	ColumnHeader  lipgloss.Style
	Row           lipgloss.Style
	SelectedRow   lipgloss.Style
	Malformed     lipgloss.Style
	Muted         lipgloss.Style
	Help          lipgloss.Style
	Error         lipgloss.Style
}

// flavorFor maps a theme name to its catppuccin flavor, defaulting to mocha
func flavorFor(theme string) catppuccin.Flavor {
	switch strings.ToLower(theme) {
	case "latte":
		return catppuccin.Latte
	case "frappe":
		return catppuccin.Frappe
	case "macchiato":
		return catppuccin.Macchiato
	default:
		return catppuccin.Mocha
	}
}

func color(c catppuccin.Color) lipgloss.Color {
	return lipgloss.Color(c.Hex)
}

// NewStyles builds the style set for a theme
func NewStyles(theme string) Styles {
	f := flavorFor(theme)

	text := color(f.Text())
	muted := color(f.Overlay1())
	surface := color(f.Surface0())

	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(color(f.Mauve())),

		Status: lipgloss.NewStyle().
			Foreground(muted),

		Running: lipgloss.NewStyle().
			Foreground(color(f.Green())).
			Bold(true),

		Stopped: lipgloss.NewStyle().
			Foreground(color(f.Red())).
			Bold(true),

		Label: lipgloss.NewStyle().
			Foreground(color(f.Subtext0())),

		Value: lipgloss.NewStyle().
			Foreground(text).
			Bold(true),

		Button: lipgloss.NewStyle().
			Background(color(f.Surface1())).
			Foreground(text).
			Padding(0, 2),

		ButtonOff: lipgloss.NewStyle().
			Foreground(color(f.Overlay0())).
			Padding(0, 2),

		SectionHeader: lipgloss.NewStyle().
			Foreground(color(f.Lavender())).
			Bold(true),

		ColumnHeader: lipgloss.NewStyle().
			Foreground(muted).
			Underline(true),

		Row: lipgloss.NewStyle().
			Foreground(text),

		SelectedRow: lipgloss.NewStyle().
			Background(surface).
			Foreground(text).
			Bold(true),

		Malformed: lipgloss.NewStyle().
			Foreground(color(f.Peach())),

		Muted: lipgloss.NewStyle().
			Foreground(muted),

		Help: lipgloss.NewStyle().
			Foreground(muted),

		Error: lipgloss.NewStyle().
			Foreground(color(f.Red())),
	}
}
