package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// SpinnerState represents the current state of a spinner.
type SpinnerState int

const (
	SpinnerPending SpinnerState = iota
	SpinnerInProgress
	SpinnerSuccess
	SpinnerFailed
)

// Spinner animation frames - braille scan pattern
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const frameInterval = 80 * time.Millisecond

// Spinner redraws one status line in place while a wait is in progress.
// The label can change while it spins.
type Spinner struct {
	mu       sync.Mutex
	w        io.Writer
	label    string
	state    SpinnerState
	frame    int
	started  time.Time
	lastLen  int
	stop     chan struct{}
	done     chan struct{}
	running  bool
	interval time.Duration
}

// NewSpinner creates a spinner that draws to w.
func NewSpinner(w io.Writer, label string) *Spinner {
	return &Spinner{w: w, label: label, interval: frameInterval}
}

// Start begins the animation. Calling Start twice is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.state = SpinnerInProgress
	s.started = time.Now()
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.drawLocked()
	s.mu.Unlock()

	go s.animate()
}

// SetLabel replaces the label; the next frame shows it.
func (s *Spinner) SetLabel(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.label = label
}

// Label returns the spinner's label.
func (s *Spinner) Label() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label
}

// State returns the current spinner state.
func (s *Spinner) State() SpinnerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Success stops the spinner and leaves a check mark with the elapsed time.
func (s *Spinner) Success() { s.finish(SpinnerSuccess) }

// Fail stops the spinner and leaves a cross with the elapsed time.
func (s *Spinner) Fail() { s.finish(SpinnerFailed) }

func (s *Spinner) finish(state SpinnerState) {
	s.halt()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state

	symbol := lipgloss.NewStyle().Foreground(ColorSuccess).Render(SymbolSuccess)
	if state == SpinnerFailed {
		symbol = lipgloss.NewStyle().Foreground(ColorError).Render(SymbolFail)
	}
	timing := lipgloss.NewStyle().Foreground(ColorMuted).Render(formatDuration(time.Since(s.started)))

	s.clearLocked()
	fmt.Fprintf(s.w, "%s %s %s\n", symbol, s.label, timing)
}

func (s *Spinner) halt() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done
}

func (s *Spinner) animate() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.done)

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.frame = (s.frame + 1) % len(spinnerFrames)
			s.drawLocked()
			s.mu.Unlock()
		}
	}
}

func (s *Spinner) drawLocked() {
	style := lipgloss.NewStyle().Foreground(gradient[(s.frame/2)%len(gradient)])
	line := style.Render(spinnerFrames[s.frame]) + " " + s.label + "..."

	s.clearLocked()
	fmt.Fprint(s.w, line)
	s.lastLen = lipgloss.Width(line)
}

func (s *Spinner) clearLocked() {
	if s.lastLen == 0 {
		return
	}
	fmt.Fprint(s.w, "\r"+strings.Repeat(" ", s.lastLen)+"\r")
	s.lastLen = 0
}

// formatDuration formats a duration for display (e.g., "0.3s", "1.2s").
func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 0.1 {
		return fmt.Sprintf("%.2fs", secs)
	}
	return fmt.Sprintf("%.1fs", secs)
}
