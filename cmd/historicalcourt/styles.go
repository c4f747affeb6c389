package main

import "github.com/charmbracelet/lipgloss"

// Terminal styles. lipgloss drops the escapes when stdout is not a TTY.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	signalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4CAF50"))
	capStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB74D"))
	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)
