package dashboard

import "github.com/charmbracelet/lipgloss"

// Dashboard color palette
const (
	ColorDarkBg    = lipgloss.Color("#0A0A0F")
	ColorSurfaceBg = lipgloss.Color("#12121A")
	ColorBorder    = lipgloss.Color("#2A2A4A")

	ColorHealthy  = lipgloss.Color("#39FF14")
	ColorWarning  = lipgloss.Color("#FFAA00")
	ColorCritical = lipgloss.Color("#FF0055")

	ColorTextPrimary   = lipgloss.Color("#FFFFFF")
	ColorTextSecondary = lipgloss.Color("#B4B4D0")
	ColorTextMuted     = lipgloss.Color("#6B6B8D")

	ColorAccent = lipgloss.Color("#FF2E97")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Background(ColorSurfaceBg).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	TileStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1).
			MarginRight(1)

	TileLabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	TileValueStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true)

	// Alert banner
	BannerStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(ColorCritical).
			Foreground(ColorCritical).
			Padding(0, 1)

	BannerTitleStyle = lipgloss.NewStyle().
				Foreground(ColorCritical).
				Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Italic(true)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorAccent)
)

// StatusColor maps the connection label to a color: live is healthy,
// connecting and reconnecting warn, offline is critical.
func StatusColor(s Status) lipgloss.Color {
	switch s.Label() {
	case "live":
		return ColorHealthy
	case "offline":
		return ColorCritical
	default:
		return ColorWarning
	}
}

// StatusStyle renders the connection label in its status color.
func StatusStyle(s Status) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(StatusColor(s)).Bold(true)
}
