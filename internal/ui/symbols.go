package ui

import "github.com/charmbracelet/lipgloss"

// Unicode symbols for status indicators.
const (
	SymbolSuccess = "✓"
	SymbolFail    = "✗"
	SymbolPending = "○"
)

// Semantic colors
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorMuted   lipgloss.Color = "8" // Gray (bright black)
)

// gradient cycles the spinner through pink, purple, cyan and green.
var gradient = []lipgloss.Color{"205", "141", "87", "114"}

// Success renders msg behind a green check.
func Success(msg string) string {
	return lipgloss.NewStyle().Foreground(ColorSuccess).Render(SymbolSuccess) + " " + msg
}
