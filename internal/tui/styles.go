package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("12")  // bright blue
	colorDim     = lipgloss.Color("240") // gray
	colorWarn    = lipgloss.Color("11")  // bright yellow
	colorBorder  = lipgloss.Color("238") // dark gray

	styleHeader = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true).
			Padding(0, 1)

	stylePanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorBorder)

	styleStatusBar = lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(0, 1)

	styleStatusWarn = lipgloss.NewStyle().
			Foreground(colorWarn).
			Padding(0, 1)
)
