package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/rileyhilliard/streamwatch/internal/config"
	"github.com/rileyhilliard/streamwatch/internal/errors"
	"github.com/rileyhilliard/streamwatch/internal/ui"
)

// InitOptions holds options for the init command.
type InitOptions struct {
	Host           string // Pre-specified stream host
	Port           int    // Pre-specified stream port
	Dir            string // Directory to write into (default: current)
	Overwrite      bool   // Overwrite existing config without asking
	NonInteractive bool   // Skip prompts, use defaults
}

// transportChoices are the orders offered by the prompt, keyed by the
// value stored in the form.
var transportChoices = map[string][]string{
	"websocket,polling": {"websocket", "polling"},
	"polling,websocket": {"polling", "websocket"},
	"websocket":         {"websocket"},
	"polling":           {"polling"},
}

// Init creates a new .streamwatch.yaml configuration file.
func Init(opts InitOptions) error {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	configPath := filepath.Join(dir, config.ConfigFileName)

	// Check for existing config
	if _, err := os.Stat(configPath); err == nil && !opts.Overwrite {
		var overwrite bool

		if opts.NonInteractive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", configPath),
				"Use --force to overwrite")
		}

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", config.ConfigFileName)).
					Value(&overwrite),
			),
		)

		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}

		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	defaults := config.DefaultConfig()
	host := opts.Host
	if host == "" {
		host = defaults.Stream.Host
	}
	port := strconv.Itoa(defaults.Stream.Port)
	if opts.Port != 0 {
		port = strconv.Itoa(opts.Port)
	}
	transports := strings.Join(defaults.Stream.Transports, ",")

	if !opts.NonInteractive {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Stream host").
					Description("Where the metrics producer is listening").
					Placeholder("localhost").
					Value(&host).
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" {
							return fmt.Errorf("host is required")
						}
						return nil
					}),
				huh.NewInput().
					Title("Stream port").
					Placeholder("8000").
					Value(&port).
					Validate(func(s string) error {
						_, err := parsePort(s)
						return err
					}),
			),
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Transports").
					Description("Tried in this order on every connection attempt").
					Options(
						huh.NewOption("websocket, then long-polling", "websocket,polling"),
						huh.NewOption("long-polling, then websocket", "polling,websocket"),
						huh.NewOption("websocket only", "websocket"),
						huh.NewOption("long-polling only", "polling"),
					).
					Value(&transports),
			),
		)

		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Check terminal compatibility or use --non-interactive flag")
		}
	}

	cfg, err := buildInitConfig(host, port, transports)
	if err != nil {
		return err
	}

	if err := config.Save(configPath, cfg, true); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to write config file: %s", configPath),
			"Check directory permissions")
	}

	fmt.Println(ui.Success("Created " + configPath))
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  streamwatch simulate  - Start a development producer")
	fmt.Println("  streamwatch watch     - Open the dashboard")
	fmt.Println("  streamwatch render    - Write a chart without the dashboard")

	return nil
}

// buildInitConfig turns the answers into a validated config.
func buildInitConfig(host, port, transports string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	cfg.Stream.Host = strings.TrimSpace(host)
	p, err := parsePort(port)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Invalid port %q", port),
			"Use a port between 1 and 65535")
	}
	cfg.Stream.Port = p

	order, ok := transportChoices[transports]
	if !ok {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown transport order %q", transports),
			"Use websocket, polling, or both separated by a comma")
	}
	cfg.Stream.Transports = append([]string(nil), order...)

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("port must be a number")
	}
	if p < 1 || p > 65535 {
		return 0, fmt.Errorf("port must be between 1 and 65535")
	}
	return p, nil
}
