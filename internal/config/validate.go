package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rileyhilliard/streamwatch/internal/errors"
)

// KnownTransports lists the transport names stream.transports accepts.
var KnownTransports = map[string]bool{
	"websocket": true,
	"polling":   true,
}

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but streamwatch only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Grab the latest streamwatch release.")
	}

	if err := validateStream(cfg.Stream); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'stream' section in your .streamwatch.yaml.")
	}

	if cfg.History.Capacity < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("history.capacity must be at least 1, got %d", cfg.History.Capacity),
			"The dashboard keeps the last 100 samples by default.")
	}

	if err := validateChart(cfg.Chart); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'chart' section in your .streamwatch.yaml.")
	}

	if err := validateOutput(cfg.Output); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'output' section in your .streamwatch.yaml.")
	}

	if err := validateSimulator(cfg.Simulator); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'simulator' section in your .streamwatch.yaml.")
	}

	return nil
}

func validateStream(s StreamConfig) error {
	if strings.TrimSpace(s.Host) == "" {
		return fmt.Errorf("stream.host is empty")
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("stream.port %d is outside 1-65535", s.Port)
	}
	if !strings.HasPrefix(s.Path, "/") {
		return fmt.Errorf("stream.path %q must start with '/'", s.Path)
	}
	if len(s.Transports) == 0 {
		return fmt.Errorf("stream.transports is empty; list at least one of websocket, polling")
	}
	for _, name := range s.Transports {
		if !KnownTransports[name] {
			return fmt.Errorf("unknown transport %q (expected websocket or polling)", name)
		}
	}
	if s.ReconnectAttempts < 0 {
		return fmt.Errorf("stream.reconnect_attempts can't be negative, got %d", s.ReconnectAttempts)
	}
	if s.ReconnectDelay <= 0 {
		return fmt.Errorf("stream.reconnect_delay must be positive, got %s", s.ReconnectDelay)
	}
	if s.DialTimeout < 0 {
		return fmt.Errorf("stream.dial_timeout can't be negative, got %s", s.DialTimeout)
	}
	if s.PollTimeout < 0 {
		return fmt.Errorf("stream.poll_timeout can't be negative, got %s", s.PollTimeout)
	}
	return nil
}

func validateChart(c ChartConfig) error {
	if c.Margin.Top < 0 || c.Margin.Right < 0 || c.Margin.Bottom < 0 || c.Margin.Left < 0 {
		return fmt.Errorf("chart.margin values can't be negative")
	}
	if c.Width <= c.Margin.Left+c.Margin.Right {
		return fmt.Errorf("chart.width %d leaves no room inside the left and right margins", c.Width)
	}
	if c.Height <= c.Margin.Top+c.Margin.Bottom {
		return fmt.Errorf("chart.height %d leaves no room inside the top and bottom margins", c.Height)
	}
	if !hexColor.MatchString(c.LatencyColor) {
		return fmt.Errorf("chart.latency_color %q is not a hex color like #4682b4", c.LatencyColor)
	}
	if !hexColor.MatchString(c.UsersColor) {
		return fmt.Errorf("chart.users_color %q is not a hex color like #ff0000", c.UsersColor)
	}
	return nil
}

func validateOutput(o OutputConfig) error {
	switch o.Color {
	case ColorAuto, ColorAlways, ColorNever:
		return nil
	}
	return fmt.Errorf("output.color %q is not one of auto, always, never", o.Color)
}

func validateSimulator(s SimulatorConfig) error {
	if s.Interval <= 0 {
		return fmt.Errorf("simulator.interval must be positive, got %s", s.Interval)
	}
	if s.AnomalyZScore <= 0 {
		return fmt.Errorf("simulator.anomaly_zscore must be positive, got %g", s.AnomalyZScore)
	}
	if s.AnomalyWindow < 2 {
		return fmt.Errorf("simulator.anomaly_window must be at least 2, got %d", s.AnomalyWindow)
	}
	if s.HistorySize < 1 {
		return fmt.Errorf("simulator.history_size must be at least 1, got %d", s.HistorySize)
	}
	if s.Redis.Enabled {
		if s.Redis.Addr == "" {
			return fmt.Errorf("simulator.redis.addr is required when redis is enabled")
		}
		if s.Redis.Key == "" {
			return fmt.Errorf("simulator.redis.key is required when redis is enabled")
		}
	}
	return nil
}
