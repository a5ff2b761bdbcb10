package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/streamwatch/internal/config"
	"github.com/rileyhilliard/streamwatch/internal/dashboard"
	"github.com/rileyhilliard/streamwatch/internal/errors"
	"github.com/rileyhilliard/streamwatch/internal/logger"
	"github.com/rileyhilliard/streamwatch/internal/simulator"
	"github.com/rileyhilliard/streamwatch/internal/stream"
)

// startSimulator serves a seeded simulator and steps it until the test ends.
func startSimulator(t *testing.T) stream.Endpoint {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sim := simulator.NewServer(simulator.Options{Seed: 7, Logger: logger.Noop()})
	ts := httptest.NewServer(sim.Handler())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sim.Step(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		sim.Close()
		ts.Close()
	})

	ep, err := stream.ParseEndpoint(ts.URL + simulator.DefaultPath)
	require.NoError(t, err)
	return ep
}

func testComposer(t *testing.T, ep stream.Endpoint, transports ...string) *dashboard.Composer {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Stream.ReconnectAttempts = 0
	cfg.Stream.DialTimeout = time.Second
	cfg.Stream.PollTimeout = time.Second
	if len(transports) > 0 {
		cfg.Stream.Transports = transports
	}

	c, err := newComposer(cfg, ep, logger.Noop())
	require.NoError(t, err)
	return c
}

func TestRenderTo(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		transport string
		contains  string
	}{
		{"svg over websocket", "svg", stream.TransportWebsocket, "<svg"},
		{"png over polling", "png", stream.TransportPolling, "\x89PNG"},
		{"text", "text", stream.TransportWebsocket, "Latency (ms)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := startSimulator(t)
			c := testComposer(t, ep, tt.transport)

			var buf bytes.Buffer
			err := renderTo(context.Background(), &buf, c, ep.String(), renderOptions{
				Samples: 3,
				Timeout: 10 * time.Second,
				Format:  tt.format,
				Cols:    80,
				Rows:    20,
			})
			require.NoError(t, err)
			assert.Contains(t, buf.String(), tt.contains)

			assert.False(t, c.Running(), "composer should be stopped after rendering")
		})
	}
}

func TestRenderTo_NoProducer(t *testing.T) {
	ts := httptest.NewServer(nil)
	ep, err := stream.ParseEndpoint(ts.URL + "/ws")
	require.NoError(t, err)
	ts.Close()

	c := testComposer(t, ep)

	var buf bytes.Buffer
	err = renderTo(context.Background(), &buf, c, ep.String(), renderOptions{
		Samples: 3,
		Timeout: 5 * time.Second,
		Format:  "svg",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrStream))
	assert.Contains(t, err.Error(), "No samples arrived")
	assert.Empty(t, buf.String())
}

func TestRenderTo_BadOptions(t *testing.T) {
	ep := stream.Endpoint{Host: "localhost", Port: 1, Path: "/ws"}

	tests := []struct {
		name string
		opts renderOptions
		code string
	}{
		{"unknown format", renderOptions{Samples: 1, Format: "gif"}, errors.ErrConfig},
		{"zero samples", renderOptions{Samples: 0, Format: "svg"}, errors.ErrConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testComposer(t, ep)
			err := renderTo(context.Background(), &bytes.Buffer{}, c, ep.String(), tt.opts)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code))
			assert.False(t, c.Running(), "nothing should connect for bad options")
		})
	}
}

func TestParseRenderFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", formatText, false},
		{"text", formatText, false},
		{"SVG", "svg", false},
		{" png ", "png", false},
		{"jpeg", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseRenderFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderTo_ReportsProgress(t *testing.T) {
	ep := startSimulator(t)
	c := testComposer(t, ep)

	var seen []int
	err := renderTo(context.Background(), &bytes.Buffer{}, c, ep.String(), renderOptions{
		Samples:  4,
		Timeout:  10 * time.Second,
		Format:   "svg",
		progress: func(have, want int) {
			assert.Equal(t, 4, want)
			seen = append(seen, have)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, seen)
}
