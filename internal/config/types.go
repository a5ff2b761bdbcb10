package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .streamwatch.yaml configuration file.
type Config struct {
	Version   int             `yaml:"version" mapstructure:"version"`
	Stream    StreamConfig    `yaml:"stream" mapstructure:"stream"`
	History   HistoryConfig   `yaml:"history" mapstructure:"history"`
	Chart     ChartConfig     `yaml:"chart" mapstructure:"chart"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Simulator SimulatorConfig `yaml:"simulator" mapstructure:"simulator"`
}

// StreamConfig says where the metrics stream lives and how to stay attached.
type StreamConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`

	// Path is the sub-path both transports hang off ("/ws" serves
	// /ws/websocket and /ws/poll).
	Path string `yaml:"path" mapstructure:"path"`

	// Transports are tried in order on every connection attempt.
	// Known values: "websocket", "polling".
	Transports []string `yaml:"transports" mapstructure:"transports"`

	// ReconnectAttempts is the retry budget after a transport failure.
	ReconnectAttempts int `yaml:"reconnect_attempts" mapstructure:"reconnect_attempts"`

	// ReconnectDelay is the fixed wait between attempts.
	ReconnectDelay time.Duration `yaml:"reconnect_delay" mapstructure:"reconnect_delay"`

	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`

	// PollTimeout is how long one long-poll request may wait for frames.
	PollTimeout time.Duration `yaml:"poll_timeout" mapstructure:"poll_timeout"`
}

// HistoryConfig sizes the rolling sample window.
type HistoryConfig struct {
	Capacity int `yaml:"capacity" mapstructure:"capacity"`
}

// ChartConfig is the canvas the chart is laid out on. Terminal rendering
// scales it to the window; exports use it as-is.
type ChartConfig struct {
	Width        int          `yaml:"width" mapstructure:"width"`
	Height       int          `yaml:"height" mapstructure:"height"`
	Margin       MarginConfig `yaml:"margin" mapstructure:"margin"`
	LatencyColor string       `yaml:"latency_color" mapstructure:"latency_color"`
	UsersColor   string       `yaml:"users_color" mapstructure:"users_color"`
}

// MarginConfig reserves room around the plot for the axes.
type MarginConfig struct {
	Top    int `yaml:"top" mapstructure:"top"`
	Right  int `yaml:"right" mapstructure:"right"`
	Bottom int `yaml:"bottom" mapstructure:"bottom"`
	Left   int `yaml:"left" mapstructure:"left"`
}

// OutputConfig controls terminal output formatting.
type OutputConfig struct {
	// Color mode: "auto", "always", or "never".
	// "auto" disables color when output is piped.
	Color string `yaml:"color" mapstructure:"color"`
}

// SimulatorConfig drives the built-in development producer.
type SimulatorConfig struct {
	Listen   string        `yaml:"listen" mapstructure:"listen"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// AnomalyZScore flags a sample whose latency is this many standard
	// deviations from the recent mean.
	AnomalyZScore float64 `yaml:"anomaly_zscore" mapstructure:"anomaly_zscore"`

	// AnomalyWindow is how many recent samples the mean is taken over.
	AnomalyWindow int `yaml:"anomaly_window" mapstructure:"anomaly_window"`

	// HistorySize caps the producer's own sample history.
	HistorySize int `yaml:"history_size" mapstructure:"history_size"`

	Redis  RedisConfig  `yaml:"redis" mapstructure:"redis"`
	SQLite SQLiteConfig `yaml:"sqlite" mapstructure:"sqlite"`
}

// RedisConfig mirrors the producer's history into a Redis list.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	Key      string `yaml:"key" mapstructure:"key"`
}

// SQLiteConfig persists the producer's history in a local database file.
// An empty Path keeps history in memory. Redis takes precedence when both
// are configured.
type SQLiteConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// Color modes accepted by output.color.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Stream: StreamConfig{
			Host:              "localhost",
			Port:              8000,
			Path:              "/ws",
			Transports:        []string{"websocket", "polling"},
			ReconnectAttempts: 5,
			ReconnectDelay:    time.Second,
			DialTimeout:       5 * time.Second,
			PollTimeout:       25 * time.Second,
		},
		History: HistoryConfig{
			Capacity: 100,
		},
		Chart: ChartConfig{
			Width:        800,
			Height:       400,
			Margin:       MarginConfig{Top: 20, Right: 30, Bottom: 30, Left: 60},
			LatencyColor: "#4682b4",
			UsersColor:   "#ff0000",
		},
		Output: OutputConfig{
			Color: ColorAuto,
		},
		Simulator: SimulatorConfig{
			Listen:        ":8000",
			Interval:      time.Second,
			AnomalyZScore: 2.0,
			AnomalyWindow: 60,
			HistorySize:   1000,
			Redis: RedisConfig{
				Enabled: false,
				Addr:    "localhost:6379",
				DB:      0,
				Key:     "metrics_history",
			},
		},
	}
}
