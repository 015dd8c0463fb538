package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorRed    = lipgloss.Color("#FF5F5F")
	colorGreen  = lipgloss.Color("#5FD75F")
	colorYellow = lipgloss.Color("#FFD75F")
	colorCyan   = lipgloss.Color("#5FD7FF")
	colorGray   = lipgloss.Color("#767676")
	colorDim    = lipgloss.Color("#4E4E4E")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	recordingStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	idleStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	partialStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	speakerStyle = lipgloss.NewStyle().
			Foreground(colorCyan)

	suggestionStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	footerDescStyle = lipgloss.NewStyle().
			Foreground(colorGray)
)
