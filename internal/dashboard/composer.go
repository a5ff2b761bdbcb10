package dashboard

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rileyhilliard/streamwatch/internal/chart"
	"github.com/rileyhilliard/streamwatch/internal/logger"
	"github.com/rileyhilliard/streamwatch/internal/sample"
	"github.com/rileyhilliard/streamwatch/internal/state"
	"github.com/rileyhilliard/streamwatch/internal/stream"
)

// Composer wires a stream manager into the rolling buffer and anomaly flag
// and keeps the chart scene in step with the buffer. Every method must be
// called from the one loop that also calls Dispatch.
type Composer struct {
	manager *stream.Manager
	buffer  *state.Buffer
	flag    state.AnomalyFlag
	layout  chart.Layout
	log     logger.Logger
	now     func() time.Time

	scene      chart.Scene
	latest     sample.MetricSample
	hasLatest  bool
	lastUpdate time.Time
	running    bool
}

// NewComposer creates a composer around manager. Nothing connects until
// Start.
func NewComposer(manager *stream.Manager, capacity int, layout chart.Layout, log logger.Logger) *Composer {
	if log == nil {
		log = logger.Noop()
	}
	return &Composer{
		manager: manager,
		buffer:  state.NewBuffer(capacity),
		layout:  layout,
		log:     log,
		now:     time.Now,
	}
}

// Start clears the window and the flag, registers the handlers and
// connects. Calling Start while running is a no-op.
func (c *Composer) Start() {
	if c.running {
		return
	}
	c.reset()
	c.manager.OnSample(c.handleSample)
	c.manager.OnAnomaly(c.handleAnomaly)
	c.manager.Connect()
	c.running = true
	c.log.Debug("composer started")
}

// Stop disconnects, which also drops both handlers, and clears the window.
// Safe to call on every exit path, including before Start.
func (c *Composer) Stop() {
	c.manager.Disconnect()
	c.reset()
	c.running = false
}

// Reconnect is an explicit Stop followed by Start.
func (c *Composer) Reconnect() {
	c.Stop()
	c.Start()
}

// Dispatch hands an event from the manager's channels to the handlers.
func (c *Composer) Dispatch(ev stream.Event) bool {
	return c.manager.Dispatch(ev)
}

func (c *Composer) reset() {
	c.buffer.Reset()
	c.flag.Set(false)
	c.latest = sample.MetricSample{}
	c.hasLatest = false
	c.lastUpdate = time.Time{}
	c.scene = chart.Render(nil, c.layout)
}

func (c *Composer) handleSample(s sample.MetricSample) {
	c.buffer.Push(s)
	c.latest = s
	c.hasLatest = true
	c.lastUpdate = c.now()
	c.scene = chart.Render(c.buffer.Snapshot(), c.layout)
}

func (c *Composer) handleAnomaly(on bool) {
	if on != c.flag.Get() {
		c.log.Debug("anomaly flag now %t", on)
	}
	c.flag.Set(on)
}

// Manager exposes the underlying stream manager.
func (c *Composer) Manager() *stream.Manager { return c.manager }

// Running reports whether Start was called without a later Stop.
func (c *Composer) Running() bool { return c.running }

// Scene is the chart for the current window.
func (c *Composer) Scene() chart.Scene { return c.scene }

// Snapshot copies the current window.
func (c *Composer) Snapshot() []sample.MetricSample { return c.buffer.Snapshot() }

// Len is how many samples the window holds.
func (c *Composer) Len() int { return c.buffer.Len() }

// Capacity is how many samples the window can hold.
func (c *Composer) Capacity() int { return c.buffer.Cap() }

// Anomaly is the current anomaly flag.
func (c *Composer) Anomaly() bool { return c.flag.Get() }

// Latest returns the most recent sample, if any arrived this session.
func (c *Composer) Latest() (sample.MetricSample, bool) { return c.latest, c.hasLatest }

// LastUpdate is when the most recent sample was handled.
func (c *Composer) LastUpdate() time.Time { return c.lastUpdate }

// Tiles are the three summary values shown above the chart.
type Tiles struct {
	Latency   string
	Buffering string
	Users     string
}

// Tiles formats the latest sample. Before the first sample every tile
// reads zero.
func (c *Composer) Tiles() Tiles {
	s := c.latest
	return Tiles{
		Latency:   fmt.Sprintf("%.2f ms", s.Latency),
		Buffering: humanize.Comma(s.Buffering),
		Users:     humanize.Comma(s.Users),
	}
}

// Status describes the connection for the status line.
type Status struct {
	State       stream.State
	Attempts    int
	MaxAttempts int
	Transport   string
	LastUpdate  time.Time
	Err         error
}

// Status snapshots the manager's connection state.
func (c *Composer) Status() Status {
	return Status{
		State:       c.manager.State(),
		Attempts:    c.manager.Attempts(),
		MaxAttempts: c.manager.MaxAttempts(),
		Transport:   c.manager.Transport(),
		LastUpdate:  c.lastUpdate,
		Err:         c.manager.LastError(),
	}
}

// Label is the short connection label: connecting, live, reconnecting n/m
// or offline.
func (s Status) Label() string {
	switch s.State {
	case stream.StateConnecting:
		return "connecting"
	case stream.StateConnected:
		return "live"
	case stream.StateReconnecting:
		return fmt.Sprintf("reconnecting %d/%d", s.Attempts, s.MaxAttempts)
	default:
		return "offline"
	}
}

// Age describes how long ago the last sample arrived.
func (s Status) Age(now time.Time) string {
	if s.LastUpdate.IsZero() {
		return "no data yet"
	}
	secs := int(now.Sub(s.LastUpdate).Seconds())
	switch {
	case secs <= 0:
		return "just now"
	case secs == 1:
		return "1s ago"
	default:
		return fmt.Sprintf("%ds ago", secs)
	}
}
