package hud

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("#5ef0ff")
	colorGreen  = lipgloss.Color("#00FF87")
	colorRed    = lipgloss.Color("#FF5F5F")
	colorYellow = lipgloss.Color("#FFD75F")
	colorGray   = lipgloss.Color("#666666")
	colorWhite  = lipgloss.Color("#e2e8f0")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	taglineStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	statusLabelStyle = lipgloss.NewStyle().
				Foreground(colorGray)

	conversingDotStyle = lipgloss.NewStyle().
				Foreground(colorGreen).
				Bold(true)

	idleDotStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	userLineStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	assistantLineStyle = lipgloss.NewStyle().
				Foreground(colorWhite)

	toolLineStyle = lipgloss.NewStyle().
			Foreground(colorAccent)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)
)
