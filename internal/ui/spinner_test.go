package ui

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// syncBuffer lets the animation goroutine and the test share a buffer.
type syncBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

func TestNewSpinner(t *testing.T) {
	s := NewSpinner(&syncBuffer{}, "Collecting")
	assert.Equal(t, "Collecting", s.Label())
	assert.Equal(t, SpinnerPending, s.State())
}

func TestSpinnerFinish(t *testing.T) {
	tests := []struct {
		name   string
		finish func(*Spinner)
		state  SpinnerState
		symbol string
	}{
		{"success", (*Spinner).Success, SpinnerSuccess, SymbolSuccess},
		{"fail", (*Spinner).Fail, SpinnerFailed, SymbolFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf syncBuffer
			s := NewSpinner(&buf, "Collecting samples")
			s.interval = 5 * time.Millisecond

			s.Start()
			assert.Equal(t, SpinnerInProgress, s.State())
			time.Sleep(20 * time.Millisecond)
			tt.finish(s)

			assert.Equal(t, tt.state, s.State())
			out := buf.String()
			assert.Contains(t, out, "Collecting samples...")
			assert.Contains(t, out, tt.symbol+" Collecting samples ")
			assert.True(t, strings.HasSuffix(out, "s\n"), "final line ends with the elapsed time")
		})
	}
}

func TestSpinnerSetLabel(t *testing.T) {
	var buf syncBuffer
	s := NewSpinner(&buf, "0/3")
	s.interval = 5 * time.Millisecond

	s.Start()
	s.SetLabel("2/3")
	assert.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "2/3...")
	}, time.Second, 5*time.Millisecond)
	s.Success()

	assert.Contains(t, buf.String(), SymbolSuccess+" 2/3 ")
}

func TestSpinnerFinishWithoutStart(t *testing.T) {
	var buf syncBuffer
	s := NewSpinner(&buf, "never started")

	assert.NotPanics(t, s.Fail)
	assert.Equal(t, SpinnerFailed, s.State())
}

func TestSpinnerStartTwice(t *testing.T) {
	s := NewSpinner(&syncBuffer{}, "twice")
	s.interval = 5 * time.Millisecond
	s.Start()
	s.Start()
	s.Success()
	assert.Equal(t, SpinnerSuccess, s.State())
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{50 * time.Millisecond, "0.05s"},
		{300 * time.Millisecond, "0.3s"},
		{1200 * time.Millisecond, "1.2s"},
		{65 * time.Second, "65.0s"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.in))
		})
	}
}

func TestSuccess(t *testing.T) {
	assert.Contains(t, Success("Created .streamwatch.yaml"), SymbolSuccess+" Created .streamwatch.yaml")
}
