package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Marshal renders cfg as commented YAML. Durations are written in Go
// duration syntax ("1s") so the file reads the way users type it.
func Marshal(cfg *Config) ([]byte, error) {
	s := cfg.Stream
	c := cfg.Chart
	sim := cfg.Simulator

	transports := seq()
	for _, name := range s.Transports {
		transports.Content = append(transports.Content, str(name))
	}

	root := mapping(
		"version", intNode(cfg.Version),
		"stream", withComment(mapping(
			"host", str(s.Host),
			"port", intNode(s.Port),
			"path", str(s.Path),
			"transports", transports,
			"reconnect_attempts", intNode(s.ReconnectAttempts),
			"reconnect_delay", str(s.ReconnectDelay.String()),
			"dial_timeout", str(s.DialTimeout.String()),
			"poll_timeout", str(s.PollTimeout.String()),
		), "Where the metrics stream lives. Transports are tried in order."),
		"history", mapping(
			"capacity", intNode(cfg.History.Capacity),
		),
		"chart", mapping(
			"width", intNode(c.Width),
			"height", intNode(c.Height),
			"margin", flow(mapping(
				"top", intNode(c.Margin.Top),
				"right", intNode(c.Margin.Right),
				"bottom", intNode(c.Margin.Bottom),
				"left", intNode(c.Margin.Left),
			)),
			"latency_color", quoted(c.LatencyColor),
			"users_color", quoted(c.UsersColor),
		),
		"output", mapping(
			"color", withLineComment(str(cfg.Output.Color), "auto | always | never"),
		),
		"simulator", withComment(mapping(
			"listen", quoted(sim.Listen),
			"interval", str(sim.Interval.String()),
			"anomaly_zscore", floatNode(sim.AnomalyZScore),
			"anomaly_window", intNode(sim.AnomalyWindow),
			"history_size", intNode(sim.HistorySize),
			"redis", mapping(
				"enabled", boolNode(sim.Redis.Enabled),
				"addr", str(sim.Redis.Addr),
				"password", quoted(sim.Redis.Password),
				"db", intNode(sim.Redis.DB),
				"key", str(sim.Redis.Key),
			),
		), "Development producer started by 'streamwatch simulate'."),
	)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes cfg to path, refusing to clobber an existing file unless
// overwrite is set.
func Save(path string, cfg *Config, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func mapping(kv ...interface{}) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i := 0; i+1 < len(kv); i += 2 {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: kv[i].(string)}
		val := kv[i+1].(*yaml.Node)
		// Comments on the value render above the key.
		key.HeadComment, val.HeadComment = val.HeadComment, ""
		n.Content = append(n.Content, key, val)
	}
	return n
}

func seq() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
}

func str(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func quoted(v string) *yaml.Node {
	n := str(v)
	n.Style = yaml.DoubleQuotedStyle
	return n
}

func intNode(v int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(v)}
}

func floatNode(v float64) *yaml.Node {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: s}
}

func boolNode(v bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}
}

func flow(n *yaml.Node) *yaml.Node {
	n.Style = yaml.FlowStyle
	return n
}

func withComment(n *yaml.Node, comment string) *yaml.Node {
	n.HeadComment = comment
	return n
}

func withLineComment(n *yaml.Node, comment string) *yaml.Node {
	n.LineComment = comment
	return n
}
