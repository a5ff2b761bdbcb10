package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rileyhilliard/streamwatch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, CurrentConfigVersion, cfg.Version)
	assert.Equal(t, "localhost", cfg.Stream.Host)
	assert.Equal(t, 8000, cfg.Stream.Port)
	assert.Equal(t, "/ws", cfg.Stream.Path)
	assert.Equal(t, []string{"websocket", "polling"}, cfg.Stream.Transports)
	assert.Equal(t, 5, cfg.Stream.ReconnectAttempts)
	assert.Equal(t, time.Second, cfg.Stream.ReconnectDelay)
	assert.Equal(t, 100, cfg.History.Capacity)
	assert.Equal(t, 800, cfg.Chart.Width)
	assert.Equal(t, 400, cfg.Chart.Height)
	assert.Equal(t, MarginConfig{Top: 20, Right: 30, Bottom: 30, Left: 60}, cfg.Chart.Margin)
	assert.Equal(t, "#4682b4", cfg.Chart.LatencyColor)
	assert.Equal(t, "#ff0000", cfg.Chart.UsersColor)
	assert.Equal(t, ColorAuto, cfg.Output.Color)
	assert.Equal(t, time.Second, cfg.Simulator.Interval)
	assert.Equal(t, 1000, cfg.Simulator.HistorySize)
	assert.False(t, cfg.Simulator.Redis.Enabled)
	assert.Equal(t, "metrics_history", cfg.Simulator.Redis.Key)
	assert.Empty(t, cfg.Simulator.SQLite.Path)

	require.NoError(t, Validate(cfg))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, ConfigFileName)

	content := `
version: 1
stream:
  host: metrics.internal
  port: 9000
  path: /live
  transports: [polling]
  reconnect_attempts: 3
  reconnect_delay: 250ms
history:
  capacity: 50
chart:
  width: 1024
  latency_color: "#00ff00"
output:
  color: never
simulator:
  interval: 500ms
  redis:
    enabled: true
    addr: redis:6379
  sqlite:
    path: /var/lib/streamwatch/history.db
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "metrics.internal", cfg.Stream.Host)
	assert.Equal(t, 9000, cfg.Stream.Port)
	assert.Equal(t, "/live", cfg.Stream.Path)
	assert.Equal(t, []string{"polling"}, cfg.Stream.Transports)
	assert.Equal(t, 3, cfg.Stream.ReconnectAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Stream.ReconnectDelay)
	assert.Equal(t, 50, cfg.History.Capacity)
	assert.Equal(t, 1024, cfg.Chart.Width)
	assert.Equal(t, "#00ff00", cfg.Chart.LatencyColor)
	assert.Equal(t, ColorNever, cfg.Output.Color)
	assert.Equal(t, 500*time.Millisecond, cfg.Simulator.Interval)
	assert.True(t, cfg.Simulator.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Simulator.Redis.Addr)
	assert.Equal(t, "/var/lib/streamwatch/history.db", cfg.Simulator.SQLite.Path)

	// untouched keys keep their defaults
	assert.Equal(t, 400, cfg.Chart.Height)
	assert.Equal(t, 5*time.Second, cfg.Stream.DialTimeout)
	assert.Equal(t, "metrics_history", cfg.Simulator.Redis.Key)
}

func TestLoad_EmptyPathGivesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STREAMWATCH_STREAM_HOST", "from-env")
	t.Setenv("STREAMWATCH_STREAM_PORT", "9100")
	t.Setenv("STREAMWATCH_STREAM_RECONNECT_DELAY", "3s")
	t.Setenv("STREAMWATCH_OUTPUT_COLOR", "always")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Stream.Host)
	assert.Equal(t, 9100, cfg.Stream.Port)
	assert.Equal(t, 3*time.Second, cfg.Stream.ReconnectDelay)
	assert.Equal(t, ColorAlways, cfg.Output.Color)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ConfigFileName)
		require.NoError(t, os.WriteFile(path, []byte("stream: [unclosed"), 0644))

		_, err := Load(path)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
	})

	t.Run("wrong type", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ConfigFileName)
		require.NoError(t, os.WriteFile(path, []byte("stream:\n  port: lots\n"), 0644))

		_, err := Load(path)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
	})
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })
}

func TestFind(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0644))

		found, err := Find(path)
		require.NoError(t, err)
		assert.Equal(t, path, found)
	})

	t.Run("explicit path missing", func(t *testing.T) {
		_, err := Find(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
	})

	t.Run("current directory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("version: 1\n"), 0644))
		chdir(t, dir)

		found, err := Find("")
		require.NoError(t, err)
		assert.Equal(t, ConfigFileName, filepath.Base(found))
	})

	t.Run("parent directory", func(t *testing.T) {
		root := t.TempDir()
		child := filepath.Join(root, "a", "b")
		require.NoError(t, os.MkdirAll(child, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "a", ConfigFileName), []byte("version: 1\n"), 0644))
		chdir(t, child)

		found, err := Find("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("a", ConfigFileName), filepath.Join(filepath.Base(filepath.Dir(found)), filepath.Base(found)))
	})

	t.Run("stops at git root", func(t *testing.T) {
		root := t.TempDir()
		repo := filepath.Join(root, "repo")
		child := filepath.Join(repo, "sub")
		require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0755))
		require.NoError(t, os.MkdirAll(child, 0755))
		// above the git root, must not be picked up
		require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("version: 1\n"), 0644))
		t.Setenv("HOME", t.TempDir())
		chdir(t, child)

		found, err := Find("")
		require.NoError(t, err)
		assert.Empty(t, found)
	})
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0755))
	chdir(t, dir)

	cfg, path, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestExpandTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		in       string
		expected string
	}{
		{"", ""},
		{"~", home},
		{"~/logs/sw.log", filepath.Join(home, "logs", "sw.log")},
		{"/abs/path", "/abs/path"},
		{"~other/path", "~other/path"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExpandTilde(tt.in))
		})
	}
}
