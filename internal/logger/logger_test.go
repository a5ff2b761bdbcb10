package logger

import (
	"bytes"
	"log"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestEnvLogger_Debug(t *testing.T) {
	tests := []struct {
		name      string
		envValue  string
		expectLog bool
	}{
		{"logs when debug env is set", "1", true},
		{"logs for any non-empty value", "true", true},
		{"silent when debug env is empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			t.Setenv(DebugEnv, tt.envValue)

			l := NewEnvLogger("[stream]")
			l.Debug("frame %s", "dropped")

			if tt.expectLog {
				assert.Contains(t, buf.String(), "[stream] frame dropped")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestEnvLogger_Levels(t *testing.T) {
	tests := []struct {
		name   string
		logFn  func(Logger)
		expect string
	}{
		{"info", func(l Logger) { l.Info("listening on %s", ":8000") }, "[sim] listening on :8000"},
		{"warn", func(l Logger) { l.Warn("redis unavailable") }, "[sim] WARN: redis unavailable"},
		{"error", func(l Logger) { l.Error("upgrade failed") }, "[sim] ERROR: upgrade failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			tt.logFn(NewEnvLogger("[sim]"))
			assert.Contains(t, buf.String(), tt.expect)
		})
	}
}

func TestNoopLogger(t *testing.T) {
	buf := captureLog(t)

	l := Noop()
	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")

	assert.Empty(t, buf.String())
}

func TestBufferLogger(t *testing.T) {
	l := NewBufferLogger()

	l.Debug("debug %s", "msg")
	l.Info("info %s", "msg")
	l.Warn("warn %s", "msg")
	l.Error("error %s", "msg")

	msgs := l.Snapshot()
	require.Len(t, msgs, 4)
	assert.Equal(t, LogMessage{Level: "debug", Message: "debug msg"}, msgs[0])
	assert.Equal(t, LogMessage{Level: "error", Message: "error msg"}, msgs[3])

	assert.True(t, l.HasLevel("warn"))

	l.Clear()
	assert.Empty(t, l.Snapshot())
	assert.False(t, l.HasLevel("warn"))
}

func TestBufferLogger_ConcurrentWriters(t *testing.T) {
	l := NewBufferLogger()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Debug("writer %d frame %d", n, j)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, l.Snapshot(), 400)
}

func TestDefault(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	assert.NotNil(t, Default())

	buf := NewBufferLogger()
	SetDefault(buf)
	assert.Equal(t, buf, Default())
}
