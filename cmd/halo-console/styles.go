package main

import "github.com/charmbracelet/lipgloss"

var (
	colorCyan   = lipgloss.Color("#00FFFF")
	colorGreen  = lipgloss.Color("#00FF00")
	colorYellow = lipgloss.Color("#FFFF00")
	colorRed    = lipgloss.Color("#FF0000")
	colorGray   = lipgloss.Color("#666666")
	colorWhite  = lipgloss.Color("#FFFFFF")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	statusStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	readyBadgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorGreen)

	notReadyBadgeStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorYellow)

	userTurnStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	agentTurnStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	transcriptStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(colorCyan)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorRed)

	footerKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorYellow)

	footerDescStyle = lipgloss.NewStyle().
			Foreground(colorGray)
)
