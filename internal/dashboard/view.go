package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/streamwatch/internal/chart"
)

// Alert banner copy.
const (
	BannerTitle = "Performance Anomaly Detected"
	BannerBody  = "Unusual patterns detected in the streaming metrics. Please check the system performance."
)

// Layout constants, in terminal cells.
const (
	defaultWidth  = 100
	defaultHeight = 30
	minChartRows  = 6
)

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	width, height := m.size()

	sections := []string{m.renderHeader(width)}
	if m.composer.Anomaly() {
		sections = append(sections, m.renderBanner(width))
	}
	sections = append(sections, m.renderTiles())

	used := 0
	for _, s := range sections {
		used += lipgloss.Height(s)
	}
	footer := m.renderFooter()
	used += lipgloss.Height(footer) + len(sections)

	sections = append(sections, m.renderChart(width, max(height-used, minChartRows)))
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func (m Model) size() (int, int) {
	w, h := m.width, m.height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}

// renderHeader shows the title, endpoint and status line.
func (m Model) renderHeader(width int) string {
	status := m.composer.Status()

	title := lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true).
		Render("streamwatch")

	label := StatusStyle(status).Render(status.Label())

	var details []string
	details = append(details, m.endpoint)
	if status.Transport != "" {
		details = append(details, "via "+status.Transport)
	}
	details = append(details, "last update "+status.Age(m.now()))

	stats := lipgloss.NewStyle().
		Foreground(ColorTextSecondary).
		Render(" | " + strings.Join(details, " | ") + " | ")

	return HeaderStyle.MaxWidth(width).Render(title + stats + label)
}

// renderBanner is the anomaly alert.
func (m Model) renderBanner(width int) string {
	body := BannerTitleStyle.Render(BannerTitle) + "\n" + BannerBody
	return BannerStyle.Width(max(width-2, 20)).Render(body)
}

// renderTiles shows the latest latency, buffering and users values.
func (m Model) renderTiles() string {
	t := m.composer.Tiles()
	tiles := []string{
		renderTile("Latency", t.Latency),
		renderTile("Buffer Events", t.Buffering),
		renderTile("Active Users", t.Users),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tiles...)
}

func renderTile(label, value string) string {
	return TileStyle.Render(TileLabelStyle.Render(label) + "\n" + TileValueStyle.Render(value))
}

// renderChart draws the scene, or a waiting message before any sample.
func (m Model) renderChart(width, rows int) string {
	scene := m.composer.Scene()
	if scene.Empty() {
		return m.renderWaiting()
	}
	out := chart.RenderTerminal(scene, width, rows)
	if out == "" {
		return LabelStyle.Render("Window too small to draw the chart")
	}
	return out
}

func (m Model) renderWaiting() string {
	status := m.composer.Status()
	switch status.Label() {
	case "offline":
		msg := "Disconnected from " + m.endpoint + ". Press r to reconnect."
		if status.Err != nil {
			msg += "\n" + LabelStyle.Render(status.Err.Error())
		}
		return msg
	default:
		return m.spinner.View() + " " + LabelStyle.Render(fmt.Sprintf("Waiting for samples from %s", m.endpoint))
	}
}

// renderFooter renders the keyboard hints and the last notice.
func (m Model) renderFooter() string {
	hints := []string{
		"q quit",
		"r reconnect",
		"e export svg",
		"? help",
	}
	footer := FooterStyle.Render(strings.Join(hints, " | "))
	if m.notice != "" {
		footer += "  " + NoticeStyle.Render(m.notice)
	}
	return footer
}
