package main

import "github.com/charmbracelet/lipgloss"

var (
	pathStyle      = lipgloss.NewStyle().Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	connectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("77"))
	lostStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	jsonStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("117"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)
