package main

import "github.com/charmbracelet/lipgloss"

type theme struct {
	root        lipgloss.Style
	header      lipgloss.Style
	panel       lipgloss.Style
	panelTitle  lipgloss.Style
	inputPanel  lipgloss.Style
	footer      lipgloss.Style
	status      lipgloss.Style
	errorStatus lipgloss.Style
	helpText    lipgloss.Style
	modeActive  lipgloss.Style
	modeIdle    lipgloss.Style
	talking     lipgloss.Style
	sender      map[string]lipgloss.Style
}

func newTheme() theme {
	amber := lipgloss.Color("#ce861b")
	text := lipgloss.Color("#f5f5f5")
	muted := lipgloss.Color("#8a8a8a")
	mint := lipgloss.Color("#05ffa1")
	red := lipgloss.Color("#ff5f6d")

	return theme{
		root: lipgloss.NewStyle().Padding(0, 1),
		header: lipgloss.NewStyle().
			Foreground(text).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(amber),
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(amber).
			Padding(0, 1),
		panelTitle: lipgloss.NewStyle().Foreground(amber).Bold(true),
		inputPanel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1),
		footer:      lipgloss.NewStyle().Foreground(muted),
		status:      lipgloss.NewStyle().Foreground(mint).Bold(true),
		errorStatus: lipgloss.NewStyle().Foreground(red).Bold(true),
		helpText:    lipgloss.NewStyle().Foreground(muted),
		modeActive: lipgloss.NewStyle().
			Foreground(text).
			Background(amber).
			Padding(0, 1),
		modeIdle: lipgloss.NewStyle().Foreground(muted).Padding(0, 1),
		talking:  lipgloss.NewStyle().Foreground(mint),
		sender: map[string]lipgloss.Style{
			"user":   lipgloss.NewStyle().Foreground(mint).Bold(true),
			"avatar": lipgloss.NewStyle().Foreground(amber).Bold(true),
		},
	}
}
