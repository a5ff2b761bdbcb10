package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/streamwatch/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = ".streamwatch.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/streamwatch"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix namespaces environment overrides (STREAMWATCH_STREAM_HOST).
	EnvPrefix = "STREAMWATCH"
)

// Load reads config from the specified path. An empty path yields the
// defaults with environment overrides applied.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found",
					"Run 'streamwatch init' to create a config file, or specify one with --config")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML")
		}
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .streamwatch.yaml in current directory
// 3. .streamwatch.yaml in parent directories (stops at git root or home)
// 4. ~/.config/streamwatch/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		explicit = ExpandTilde(explicit)
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	home, _ := os.UserHomeDir()
	dir := cwd
	for !isGitRoot(dir) {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		if home != "" && parent == home {
			// Don't go above home directory
			break
		}
		dir = parent

		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	if home != "" {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", nil
}

// LoadOrDefault finds and loads the config, falling back to defaults when
// no file exists. The explicit path, if set, must exist.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		where := "your environment overrides"
		if path != "" {
			where = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax and value types in "+where)
	}

	return cfg, nil
}

// setDefaults registers every key so environment overrides reach it.
// AutomaticEnv only consults keys viper already knows about.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("stream.host", d.Stream.Host)
	v.SetDefault("stream.port", d.Stream.Port)
	v.SetDefault("stream.path", d.Stream.Path)
	v.SetDefault("stream.transports", d.Stream.Transports)
	v.SetDefault("stream.reconnect_attempts", d.Stream.ReconnectAttempts)
	v.SetDefault("stream.reconnect_delay", d.Stream.ReconnectDelay)
	v.SetDefault("stream.dial_timeout", d.Stream.DialTimeout)
	v.SetDefault("stream.poll_timeout", d.Stream.PollTimeout)

	v.SetDefault("history.capacity", d.History.Capacity)

	v.SetDefault("chart.width", d.Chart.Width)
	v.SetDefault("chart.height", d.Chart.Height)
	v.SetDefault("chart.margin.top", d.Chart.Margin.Top)
	v.SetDefault("chart.margin.right", d.Chart.Margin.Right)
	v.SetDefault("chart.margin.bottom", d.Chart.Margin.Bottom)
	v.SetDefault("chart.margin.left", d.Chart.Margin.Left)
	v.SetDefault("chart.latency_color", d.Chart.LatencyColor)
	v.SetDefault("chart.users_color", d.Chart.UsersColor)

	v.SetDefault("output.color", d.Output.Color)

	v.SetDefault("simulator.listen", d.Simulator.Listen)
	v.SetDefault("simulator.interval", d.Simulator.Interval)
	v.SetDefault("simulator.anomaly_zscore", d.Simulator.AnomalyZScore)
	v.SetDefault("simulator.anomaly_window", d.Simulator.AnomalyWindow)
	v.SetDefault("simulator.history_size", d.Simulator.HistorySize)
	v.SetDefault("simulator.redis.enabled", d.Simulator.Redis.Enabled)
	v.SetDefault("simulator.redis.addr", d.Simulator.Redis.Addr)
	v.SetDefault("simulator.redis.password", d.Simulator.Redis.Password)
	v.SetDefault("simulator.redis.db", d.Simulator.Redis.DB)
	v.SetDefault("simulator.redis.key", d.Simulator.Redis.Key)
	v.SetDefault("simulator.sqlite.path", d.Simulator.SQLite.Path)
}

// isGitRoot checks if a directory is a git repository root.
func isGitRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	if err != nil {
		return false
	}
	return info.IsDir()
}

// ExpandTilde replaces ~ or ~/path with the user's home directory.
// Does not support ~username syntax - just ~ for the current user.
func ExpandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
