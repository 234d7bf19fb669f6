package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorText    = lipgloss.Color("#cdd6f4")
	colorSubtext = lipgloss.Color("#a6adc8")
	colorAccent  = lipgloss.Color("#89b4fa")
	colorRed     = lipgloss.Color("#f38ba8")
	colorGreen   = lipgloss.Color("#a6e3a1")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	labelStyle   = lipgloss.NewStyle().Foreground(colorSubtext)
	inputStyle   = lipgloss.NewStyle().Foreground(colorText).Border(lipgloss.NormalBorder()).BorderForeground(colorSubtext).Padding(0, 1)
	focusStyle   = inputStyle.BorderForeground(colorAccent)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed)
	statusStyle  = lipgloss.NewStyle().Foreground(colorGreen)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	helpStyle    = lipgloss.NewStyle().Foreground(colorSubtext).Italic(true)
	sectionStyle = lipgloss.NewStyle().MarginTop(1)
)
