package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/streamwatch/internal/config"
	"github.com/rileyhilliard/streamwatch/internal/errors"
	"github.com/rileyhilliard/streamwatch/internal/logger"
)

// Global flags
var (
	cfgFile string
	verbose bool
	noColor bool
	logFile string
)

var rootCmd = &cobra.Command{
	Use:   "streamwatch",
	Short: "Real-time dashboard for streaming performance metrics",
	Long: `streamwatch attaches to a metrics stream and charts latency and
active users over a rolling window, raising a banner when the producer
flags an anomaly.

Run 'streamwatch simulate' in one terminal and 'streamwatch watch' in
another to see it work without a real producer.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			_ = os.Setenv(logger.DebugEnv, "1")
		}
		if noColor || os.Getenv("NO_COLOR") != "" {
			lipgloss.SetColorProfile(termenv.Ascii)
		}
	},
}

// Execute runs the root command and exits non-zero on failure. Interrupts
// cancel the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .streamwatch.yaml, then ~/.config/streamwatch/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs here while the dashboard is open")
}

// loadConfig finds, loads and validates the config, then applies its
// color mode.
func loadConfig() (*config.Config, error) {
	cfg, _, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	applyColorMode(cfg.Output.Color)
	return cfg, nil
}

// applyColorMode sets the lipgloss color profile. --no-color always wins.
func applyColorMode(mode string) {
	if noColor || os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	switch mode {
	case config.ColorNever:
		lipgloss.SetColorProfile(termenv.Ascii)
	case config.ColorAlways:
		if lipgloss.ColorProfile() == termenv.Ascii {
			lipgloss.SetColorProfile(termenv.ANSI256)
		}
	}
}

// redirectLogs sends the standard logger to --log-file, or drops it, so
// nothing writes over the dashboard. The returned func restores stderr.
func redirectLogs() (func(), error) {
	if logFile == "" {
		log.SetOutput(io.Discard)
		return func() { log.SetOutput(os.Stderr) }, nil
	}

	f, err := tea.LogToFile(config.ExpandTilde(logFile), "streamwatch")
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot open log file "+logFile,
			"Check the directory exists and is writable")
	}
	return func() {
		_ = f.Close()
		log.SetOutput(os.Stderr)
	}, nil
}
