package main

import (
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"mictest/settings"
)

type palette struct {
	Primary lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Warning lipgloss.Color
	Border  lipgloss.Color
	Empty   lipgloss.Color
}

var palettes = map[settings.Theme]palette{
	settings.Light: {
		Primary: "#7C3AED", Text: "#1F2937", Muted: "#6B7280", Success: "#16A34A",
		Error: "#DC2626", Warning: "#D97706", Border: "#D1D5DB", Empty: "#E5E7EB",
	},
	settings.Dark: {
		Primary: "#A78BFA", Text: "#F3F4F6", Muted: "#9CA3AF", Success: "#4ADE80",
		Error: "#F87171", Warning: "#FBBF24", Border: "#4B5563", Empty: "#374151",
	},
	settings.Green: {
		Primary: "#059669", Text: "#064E3B", Muted: "#047857", Success: "#10B981",
		Error: "#B91C1C", Warning: "#CA8A04", Border: "#6EE7B7", Empty: "#D1FAE5",
	},
	settings.Standoff: {
		Primary: "#F59E0B", Text: "#F5F5F4", Muted: "#A8A29E", Success: "#84CC16",
		Error: "#EF4444", Warning: "#FB923C", Border: "#F97316", Empty: "#44403C",
	},
}

type styles struct {
	pal      palette
	title    lipgloss.Style
	subtitle lipgloss.Style
	card     lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	muted    lipgloss.Style
	success  lipgloss.Style
	err      lipgloss.Style
	warning  lipgloss.Style
	tab      lipgloss.Style
	tabOn    lipgloss.Style
	casino   lipgloss.Style
	reel     lipgloss.Style
}

func newStyles(theme settings.Theme) styles {
	p, ok := palettes[theme]
	if !ok {
		p = palettes[settings.Light]
	}
	return styles{
		pal:      p,
		title:    lipgloss.NewStyle().Foreground(p.Primary).Bold(true),
		subtitle: lipgloss.NewStyle().Foreground(p.Muted),
		card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(0, 2),
		label:   lipgloss.NewStyle().Foreground(p.Muted),
		value:   lipgloss.NewStyle().Foreground(p.Text).Bold(true),
		muted:   lipgloss.NewStyle().Foreground(p.Muted),
		success: lipgloss.NewStyle().Foreground(p.Success).Bold(true),
		err:     lipgloss.NewStyle().Foreground(p.Error).Bold(true),
		warning: lipgloss.NewStyle().Foreground(p.Warning),
		tab:     lipgloss.NewStyle().Foreground(p.Muted).Padding(0, 2),
		tabOn:   lipgloss.NewStyle().Foreground(p.Primary).Bold(true).Underline(true).Padding(0, 2),
		casino: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#EAB308")).
			Padding(1, 3),
		reel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7E22CE")).
			Padding(0, 1),
	}
}

func newLevelBar(p palette, width int) progress.Model {
	bar := progress.New(
		progress.WithSolidFill(string(p.Primary)),
		progress.WithoutPercentage(),
		progress.WithWidth(width),
		progress.WithFillCharacters('█', '░'),
	)
	bar.EmptyColor = string(p.Empty)
	return bar
}
