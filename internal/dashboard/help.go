package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HelpBinding represents a single keyboard shortcut entry.
type HelpBinding struct {
	Key  string
	Desc string
}

var helpBindings = []HelpBinding{
	{Key: "q / Ctrl+C", Desc: "Quit"},
	{Key: "r", Desc: "Reconnect and clear the window"},
	{Key: "e", Desc: "Export the chart to SVG"},
	{Key: "?", Desc: "Toggle this help"},
	{Key: "Esc", Desc: "Close help"},
}

var (
	helpBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccent).
			Background(ColorSurfaceBg).
			Padding(1, 2)

	helpTitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			MarginBottom(1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true).
			Width(14)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)
)

// helpContent is what the help viewport scrolls over.
func helpContent() string {
	var lines []string
	lines = append(lines, helpTitleStyle.Render("Keyboard Shortcuts"))
	lines = append(lines, "")
	for _, b := range helpBindings {
		lines = append(lines, helpKeyStyle.Render(b.Key)+helpDescStyle.Render(b.Desc))
	}
	lines = append(lines, "")
	lines = append(lines, LabelStyle.Render("Tiles show the most recent sample. The chart"))
	lines = append(lines, LabelStyle.Render("plots latency on the left axis and users on the"))
	lines = append(lines, LabelStyle.Render("right axis over the rolling window."))
	lines = append(lines, "")
	lines = append(lines, LabelStyle.Render("Press ? to close"))
	return strings.Join(lines, "\n")
}

// renderHelpOverlay centers the help box in the window.
func (m Model) renderHelpOverlay() string {
	box := helpBoxStyle.Render(m.help.View())
	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(ColorDarkBg),
	)
}
