package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rileyhilliard/streamwatch/internal/stream"
)

func TestView_Waiting(t *testing.T) {
	m, h := newTestModel(t)
	h.composer.Start()

	view := m.View()
	assert.Contains(t, view, "streamwatch")
	assert.Contains(t, view, "Waiting for samples from localhost:5000")
	assert.Contains(t, view, "0.00 ms")
	assert.NotContains(t, view, BannerTitle)
}

func TestView_Offline(t *testing.T) {
	m, _ := newTestModel(t)

	view := m.View()
	assert.Contains(t, view, "Disconnected from localhost:5000. Press r to reconnect.")
	assert.Contains(t, view, "offline")
}

func TestView_TilesAndChart(t *testing.T) {
	m, h := newTestModel(t)
	h.composer.Start()
	m = withSamples(t, m, h, at(0, 10, 1, 1000), at(1, 30, 2, 2500), at(2, 20.5, 3, 1500))

	view := m.View()
	for _, want := range []string{"Latency", "Buffer Events", "Active Users", "20.50 ms", "1,500", "q quit"} {
		assert.Contains(t, view, want)
	}
	assert.NotContains(t, view, "Waiting for samples")
}

func TestView_Banner(t *testing.T) {
	m, h := newTestModel(t)
	h.composer.Start()

	h.sendAnomaly(true)
	m = feed(t, m, h, stream.KindAnomaly)
	assert.Contains(t, m.View(), BannerTitle)

	h.sendAnomaly(false)
	m = feed(t, m, h, stream.KindAnomaly)
	assert.NotContains(t, m.View(), BannerTitle)
}

func TestView_HelpOverlay(t *testing.T) {
	m, _ := newTestModel(t)
	m.showHelp = true

	view := m.View()
	assert.Contains(t, view, "Keyboard Shortcuts")
	assert.Contains(t, view, "Export the chart to SVG")
}
