package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	colorOK     = lipgloss.AdaptiveColor{Light: "#02BA84", Dark: "#02BF87"}
	colorWarn   = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}
	colorBorder = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).MarginBottom(1)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	enabledStyle  = lipgloss.NewStyle().Foreground(colorOK)
	disabledStyle = lipgloss.NewStyle().Foreground(colorWarn)
	statusStyle   = lipgloss.NewStyle().Foreground(colorAccent).MarginTop(1)
	helpStyle     = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
)
