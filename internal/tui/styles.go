// Package tui provides the interactive terminal interface for docchat.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/docchat/internal/render"
)

// Gradient colors for the loading animation
var gradientColors = []lipgloss.Color{
	lipgloss.Color("#ff6b6b"),
	lipgloss.Color("#feca57"),
	lipgloss.Color("#48dbfb"),
	lipgloss.Color("#ff9ff3"),
	lipgloss.Color("#54a0ff"),
	lipgloss.Color("#00d2d3"),
	lipgloss.Color("#1dd1a1"),
}

// styles holds every lipgloss style the chat view uses
type styles struct {
	palette render.Palette

	header   lipgloss.Style
	title    lipgloss.Style
	subtitle lipgloss.Style
	hint     lipgloss.Style

	messagesArea    lipgloss.Style
	userLabel       lipgloss.Style
	userBubble      lipgloss.Style
	assistantLabel  lipgloss.Style
	assistantBubble lipgloss.Style
	errorBubble     lipgloss.Style
	partial         lipgloss.Style
	pending         lipgloss.Style

	inputPanel lipgloss.Style
	inputLabel lipgloss.Style
	loading    lipgloss.Style

	statusBar  lipgloss.Style
	statusKey  lipgloss.Style
	statusDesc lipgloss.Style

	errorText lipgloss.Style
	notice    lipgloss.Style

	welcome      lipgloss.Style
	welcomeTitle lipgloss.Style
}

func newStyles(p render.Palette) styles {
	return styles{
		palette: p,

		header: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(0, 2),
		title: lipgloss.NewStyle().
			Foreground(p.Primary).
			Bold(true),
		subtitle: lipgloss.NewStyle().
			Foreground(p.TextDim),
		hint: lipgloss.NewStyle().
			Foreground(p.TextDim).
			Italic(true),

		messagesArea: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(0, 1),
		userLabel: lipgloss.NewStyle().
			Foreground(p.Secondary).
			Bold(true).
			MarginLeft(4),
		userBubble: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.Secondary).
			Padding(0, 1).
			MarginLeft(4),
		assistantLabel: lipgloss.NewStyle().
			Foreground(p.Primary).
			Bold(true),
		assistantBubble: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.Primary).
			Foreground(p.Text).
			Padding(0, 1).
			MarginRight(4),
		errorBubble: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.Error).
			Foreground(p.Error).
			Padding(0, 1).
			MarginRight(4),
		partial: lipgloss.NewStyle().
			Foreground(p.TextDim).
			Italic(true),
		pending: lipgloss.NewStyle().
			Foreground(p.Accent),

		inputPanel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(0, 1),
		inputLabel: lipgloss.NewStyle().
			Foreground(p.Primary).
			Bold(true),
		loading: lipgloss.NewStyle().
			Foreground(p.Accent).
			Bold(true),

		statusBar: lipgloss.NewStyle().
			Foreground(p.TextDim),
		statusKey: lipgloss.NewStyle().
			Foreground(p.Text).
			Bold(true),
		statusDesc: lipgloss.NewStyle().
			Foreground(p.TextDim),

		errorText: lipgloss.NewStyle().
			Foreground(p.Error).
			Bold(true),
		notice: lipgloss.NewStyle().
			Foreground(p.Warning),

		welcome: lipgloss.NewStyle().
			Foreground(p.TextDim).
			Align(lipgloss.Center),
		welcomeTitle: lipgloss.NewStyle().
			Foreground(p.Primary).
			Bold(true).
			Align(lipgloss.Center),
	}
}
