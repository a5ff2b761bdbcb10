// Package stream connects to the metrics producer and turns its frames into
// ordered sample and anomaly events. Transport goroutines only ever write to
// the manager's channels; handlers run on the consumer's loop via Dispatch.
package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rileyhilliard/streamwatch/internal/logger"
	"github.com/rileyhilliard/streamwatch/internal/sample"
)

// State is the connection lifecycle stage.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Defaults for the reconnection policy and channel depth.
const (
	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = time.Second
	DefaultBufferSize        = 64
)

// Options configures a Manager.
type Options struct {
	Dialers           []Dialer
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	BufferSize        int
	Logger            logger.Logger

	// After schedules the reconnect delay. Tests swap it for a manual clock.
	After func(time.Duration) <-chan time.Time
}

// DefaultOptions returns the stock reconnection policy for the given dialers.
func DefaultOptions(dialers ...Dialer) Options {
	return Options{
		Dialers:           dialers,
		ReconnectAttempts: DefaultReconnectAttempts,
		ReconnectDelay:    DefaultReconnectDelay,
		BufferSize:        DefaultBufferSize,
	}
}

// Manager owns one logical connection to the stream. Connect is idempotent and
// never fails; transport errors feed a bounded retry loop instead.
type Manager struct {
	dialers     []Dialer
	maxAttempts int
	delay       time.Duration
	after       func(time.Duration) <-chan time.Time
	log         logger.Logger

	samples   chan Event
	anomalies chan Event

	mu        sync.Mutex
	state     State
	attempts  int
	session   uint64
	transport string
	lastErr   error
	cancel    context.CancelFunc
	done      chan struct{}
	onSample  func(sample.MetricSample)
	onAnomaly func(bool)
}

// NewManager creates a disconnected manager.
func NewManager(opts Options) *Manager {
	if opts.ReconnectAttempts < 0 {
		opts.ReconnectAttempts = 0
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.After == nil {
		opts.After = time.After
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewEnvLogger("[stream]")
	}

	return &Manager{
		dialers:     opts.Dialers,
		maxAttempts: opts.ReconnectAttempts,
		delay:       opts.ReconnectDelay,
		after:       opts.After,
		log:         opts.Logger,
		samples:     make(chan Event, opts.BufferSize),
		anomalies:   make(chan Event, opts.BufferSize),
	}
}

// Samples delivers sample events in arrival order.
func (m *Manager) Samples() <-chan Event { return m.samples }

// Anomalies delivers anomaly events in arrival order.
func (m *Manager) Anomalies() <-chan Event { return m.anomalies }

// OnSample registers the sample handler, replacing any previous one.
func (m *Manager) OnSample(fn func(sample.MetricSample)) {
	m.mu.Lock()
	m.onSample = fn
	m.mu.Unlock()
}

// OnAnomaly registers the anomaly handler, replacing any previous one.
func (m *Manager) OnAnomaly(fn func(bool)) {
	m.mu.Lock()
	m.onAnomaly = fn
	m.mu.Unlock()
}

// Connect starts a new session unless one is already connecting, connected,
// or retrying.
func (m *Manager) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateDisconnected {
		return
	}
	if m.cancel != nil {
		m.cancel()
	}

	m.session++
	m.state = StateConnecting
	m.attempts = 0
	m.transport = ""
	m.lastErr = nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done

	go m.run(ctx, m.session, done)
}

// Disconnect closes the connection, stops retrying, and forgets both
// handlers. Events already queued from the old session are dropped by
// Dispatch. Safe to call at any time, any number of times.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.session++
	m.state = StateDisconnected
	m.attempts = 0
	m.transport = ""
	m.onSample = nil
	m.onAnomaly = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Dispatch runs the handler for ev if it belongs to the live session and
// reports whether a handler ran. Call it from the single consumer loop.
func (m *Manager) Dispatch(ev Event) bool {
	m.mu.Lock()
	if ev.Session == 0 || ev.Session != m.session {
		m.mu.Unlock()
		return false
	}
	onSample, onAnomaly := m.onSample, m.onAnomaly
	m.mu.Unlock()

	switch ev.Kind {
	case KindSample:
		if onSample == nil {
			return false
		}
		onSample(ev.Sample)
	case KindAnomaly:
		if onAnomaly == nil {
			return false
		}
		onAnomaly(ev.Anomaly)
	default:
		return false
	}
	return true
}

// State returns the current lifecycle stage.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempts returns how many reconnection attempts the current outage has used.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// MaxAttempts returns the reconnection budget per outage.
func (m *Manager) MaxAttempts() int { return m.maxAttempts }

// Transport names the transport carrying the live connection, or "".
func (m *Manager) Transport() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transport
}

// LastError returns the most recent transport failure of this session.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) run(ctx context.Context, session uint64, done chan struct{}) {
	defer close(done)

	for {
		conn, name, err := m.dial(ctx)
		if err == nil {
			m.connected(session, name)
			err = m.consume(ctx, session, conn)
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			return
		}

		m.log.Debug("transport failed: %v", err)
		again, exhausted := m.retry(session, err)
		if exhausted {
			m.log.Warn("giving up after %d reconnection attempts", m.maxAttempts)
		}
		if !again {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-m.after(m.delay):
		}
	}
}

func (m *Manager) dial(ctx context.Context) (Conn, string, error) {
	if len(m.dialers) == 0 {
		return nil, "", errors.New("no transports configured")
	}

	var errs []error
	for _, d := range m.dialers {
		conn, err := d.Dial(ctx)
		if err == nil {
			return conn, d.Name(), nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		m.log.Debug("%s transport unavailable: %v", d.Name(), err)
		errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
	}
	return nil, "", errors.Join(errs...)
}

func (m *Manager) consume(ctx context.Context, session uint64, conn Conn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		msgs, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		for _, raw := range msgs {
			ev, err := decodeFrame(raw)
			if err != nil {
				m.log.Debug("dropping frame: %v", err)
				continue
			}
			ev.Session = session

			ch := m.samples
			if ev.Kind == KindAnomaly {
				ch = m.anomalies
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (m *Manager) connected(session uint64, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session != m.session {
		return
	}
	m.state = StateConnected
	m.attempts = 0
	m.transport = name
	m.log.Debug("connected via %s", name)
}

// retry books the next reconnection attempt. again is false when the session
// is stale or the budget is spent; exhausted is true only in the latter case,
// which leaves the manager disconnected until Connect.
func (m *Manager) retry(session uint64, err error) (again, exhausted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session != m.session {
		return false, false
	}
	m.lastErr = err
	m.transport = ""
	if m.attempts >= m.maxAttempts {
		m.state = StateDisconnected
		return false, true
	}
	m.attempts++
	m.state = StateReconnecting
	return true, false
}
