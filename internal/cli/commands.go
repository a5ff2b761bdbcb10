package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/streamwatch/internal/errors"
)

// Command-specific flags
var (
	watchHostFlag      string
	watchPortFlag      int
	watchExportDirFlag string

	renderHostFlag    string
	renderPortFlag    int
	renderSamples     int
	renderTimeoutFlag string
	renderFormatFlag  string
	renderOutputFlag  string
	renderColsFlag    int
	renderRowsFlag    int

	simulateListenFlag   string
	simulateIntervalFlag string
	simulateRedisFlag    bool
	simulateSQLiteFlag   string
	simulateSeedFlag     uint64

	initHostFlag       string
	initPortFlag       int
	initForce          bool
	initNonInteractive bool
)

// watchCmd opens the live dashboard
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live metrics dashboard",
	Long: `Connect to the metrics stream and show a live dashboard: summary
tiles, a latency and active-users chart over the rolling window, and an
alert banner while the producer reports an anomaly.

The connection tries each configured transport in order and retries a
fixed number of times after a failure. Press r to reconnect once it
gives up.

Keyboard shortcuts:
  q / Ctrl+C  Quit
  r           Reconnect and clear the window
  e           Export the chart to SVG
  ?           Show help

Examples:
  streamwatch watch
  streamwatch watch --host metrics.internal --port 9000
  streamwatch watch --log-file /tmp/streamwatch.log`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchCommand(watchOptions{
			Host:      watchHostFlag,
			Port:      watchPortFlag,
			ExportDir: watchExportDirFlag,
		})
	},
}

// renderCmd collects samples headlessly and writes one chart
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Collect samples and write a chart without the dashboard",
	Long: `Connect to the metrics stream, collect samples until the window holds
--samples of them or --timeout passes, then write the chart once.

Formats:
  text  Braille chart on stdout (default)
  svg   SVG image
  png   PNG image

Examples:
  streamwatch render
  streamwatch render --samples 60 --format svg --output latency.svg
  streamwatch render --format png --timeout 2m > chart.png`,
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, err := parseDurationFlag("timeout", renderTimeoutFlag)
		if err != nil {
			return err
		}
		return renderCommand(cmd.Context(), renderOptions{
			Host:    renderHostFlag,
			Port:    renderPortFlag,
			Samples: renderSamples,
			Timeout: timeout,
			Format:  renderFormatFlag,
			Output:  renderOutputFlag,
			Cols:    renderColsFlag,
			Rows:    renderRowsFlag,
		})
	},
}

// simulateCmd runs the development producer
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a development metrics producer",
	Long: `Serve a synthetic metrics stream the dashboard can attach to.

One sample is generated per interval: latency around 100ms, a Poisson
count of buffering events and roughly 1000 users. Latency is scored
against a rolling window and an anomaly signal follows every sample.

Endpoints:
  GET /                 banner
  GET /health           liveness
  GET /metrics          current averages and recent history
  GET /metrics/history  recent history
  GET /prometheus       Prometheus exposition
  <path>/websocket      websocket transport
  <path>/poll           long-polling transport

Examples:
  streamwatch simulate
  streamwatch simulate --listen :9000 --interval 250ms
  streamwatch simulate --redis`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var interval time.Duration
		if simulateIntervalFlag != "" {
			parsed, err := parseDurationFlag("interval", simulateIntervalFlag)
			if err != nil {
				return err
			}
			if parsed < 10*time.Millisecond {
				return errors.New(errors.ErrConfig,
					"Interval too short",
					"Minimum interval is 10ms")
			}
			interval = parsed
		}
		return simulateCommand(cmd.Context(), simulateOptions{
			Listen:   simulateListenFlag,
			Interval: interval,
			Redis:    simulateRedisFlag,
			SQLite:   simulateSQLiteFlag,
			Seed:     simulateSeedFlag,
		})
	},
}

// initCmd creates a new .streamwatch.yaml configuration
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .streamwatch.yaml configuration",
	Long: `Write a starter .streamwatch.yaml in the current directory.

Prompts for the stream host, port and transports unless
--non-interactive is set.

Examples:
  streamwatch init
  streamwatch init --host metrics.internal --port 9000 --non-interactive
  streamwatch init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Init(InitOptions{
			Host:           initHostFlag,
			Port:           initPortFlag,
			Overwrite:      initForce,
			NonInteractive: initNonInteractive,
		})
	},
}

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for streamwatch.

Examples:
  # Bash
  streamwatch completion bash > /etc/bash_completion.d/streamwatch

  # Zsh
  streamwatch completion zsh > "${fpath[1]}/_streamwatch"

  # Fish
  streamwatch completion fish > ~/.config/fish/completions/streamwatch.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(os.Stdout)
		default:
			return errors.New(errors.ErrExec,
				"Unknown shell: "+args[0],
				"Supported shells: bash, zsh, fish, powershell")
		}
	},
}

func init() {
	// watch command flags
	watchCmd.Flags().StringVar(&watchHostFlag, "host", "", "stream host (overrides stream.host)")
	watchCmd.Flags().IntVar(&watchPortFlag, "port", 0, "stream port (overrides stream.port)")
	watchCmd.Flags().StringVar(&watchExportDirFlag, "export-dir", ".", "directory SVG exports are written to")

	// render command flags
	renderCmd.Flags().StringVar(&renderHostFlag, "host", "", "stream host (overrides stream.host)")
	renderCmd.Flags().IntVar(&renderPortFlag, "port", 0, "stream port (overrides stream.port)")
	renderCmd.Flags().IntVar(&renderSamples, "samples", 30, "samples to collect before rendering")
	renderCmd.Flags().StringVar(&renderTimeoutFlag, "timeout", "1m", "give up collecting after this long (e.g., 30s, 2m)")
	renderCmd.Flags().StringVarP(&renderFormatFlag, "format", "f", formatText, "output format: text, svg, png")
	renderCmd.Flags().StringVarP(&renderOutputFlag, "output", "o", "", "write to this file instead of stdout")
	renderCmd.Flags().IntVar(&renderColsFlag, "cols", 100, "text chart width in cells")
	renderCmd.Flags().IntVar(&renderRowsFlag, "rows", 24, "text chart height in cells")

	// simulate command flags
	simulateCmd.Flags().StringVar(&simulateListenFlag, "listen", "", "listen address (overrides simulator.listen)")
	simulateCmd.Flags().StringVar(&simulateIntervalFlag, "interval", "", "time between samples (overrides simulator.interval)")
	simulateCmd.Flags().BoolVar(&simulateRedisFlag, "redis", false, "mirror history into Redis (overrides simulator.redis.enabled)")
	simulateCmd.Flags().StringVar(&simulateSQLiteFlag, "sqlite", "", "persist history in this SQLite file (overrides simulator.sqlite.path)")
	simulateCmd.Flags().Uint64Var(&simulateSeedFlag, "seed", 0, "seed for reproducible samples (0 picks one at random)")

	// init command flags
	initCmd.Flags().StringVar(&initHostFlag, "host", "", "pre-specify the stream host")
	initCmd.Flags().IntVar(&initPortFlag, "port", 0, "pre-specify the stream port")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing config")
	initCmd.Flags().BoolVar(&initNonInteractive, "non-interactive", false, "skip prompts and use defaults")

	// Register all commands
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(completionCmd)
}
