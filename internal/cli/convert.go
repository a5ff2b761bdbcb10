package cli

import (
	"github.com/rileyhilliard/streamwatch/internal/chart"
	"github.com/rileyhilliard/streamwatch/internal/config"
	"github.com/rileyhilliard/streamwatch/internal/dashboard"
	"github.com/rileyhilliard/streamwatch/internal/errors"
	"github.com/rileyhilliard/streamwatch/internal/logger"
	"github.com/rileyhilliard/streamwatch/internal/simulator"
	"github.com/rileyhilliard/streamwatch/internal/stream"
)

// endpointFor is where the config says the stream lives.
func endpointFor(s config.StreamConfig) stream.Endpoint {
	return stream.Endpoint{Host: s.Host, Port: s.Port, Path: s.Path}
}

func layoutFor(c config.ChartConfig) chart.Layout {
	layout := chart.DefaultLayout()
	layout.Width = float64(c.Width)
	layout.Height = float64(c.Height)
	layout.Margin = chart.Margin{
		Top:    float64(c.Margin.Top),
		Right:  float64(c.Margin.Right),
		Bottom: float64(c.Margin.Bottom),
		Left:   float64(c.Margin.Left),
	}
	layout.LatencyColor = c.LatencyColor
	layout.UsersColor = c.UsersColor
	return layout
}

// newComposer wires a manager for the configured endpoint into a composer.
func newComposer(cfg *config.Config, ep stream.Endpoint, log logger.Logger) (*dashboard.Composer, error) {
	s := cfg.Stream
	dialers, err := stream.NewDialers(ep, s.Transports, s.DialTimeout, s.PollTimeout)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid stream transports",
			"Use any of: websocket, polling")
	}

	opts := stream.DefaultOptions(dialers...)
	opts.ReconnectAttempts = s.ReconnectAttempts
	opts.ReconnectDelay = s.ReconnectDelay
	opts.Logger = log

	return dashboard.NewComposer(stream.NewManager(opts), cfg.History.Capacity, layoutFor(cfg.Chart), log), nil
}

func simulatorOptions(s config.SimulatorConfig, path string, log logger.Logger) simulator.Options {
	return simulator.Options{
		Path:          path,
		Interval:      s.Interval,
		AnomalyZScore: s.AnomalyZScore,
		AnomalyWindow: s.AnomalyWindow,
		HistorySize:   s.HistorySize,
		Logger:        log,
	}
}
