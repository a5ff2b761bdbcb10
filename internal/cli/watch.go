package cli

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/rileyhilliard/streamwatch/internal/config"
	"github.com/rileyhilliard/streamwatch/internal/dashboard"
	"github.com/rileyhilliard/streamwatch/internal/errors"
	"github.com/rileyhilliard/streamwatch/internal/logger"
)

type watchOptions struct {
	Host      string
	Port      int
	ExportDir string
}

// watchCommand starts the TUI dashboard.
func watchCommand(opts watchOptions) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New(errors.ErrExec,
			"watch needs an interactive terminal",
			"Use 'streamwatch render' to write a chart when output is piped.")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := overrideStream(&cfg.Stream, opts.Host, opts.Port); err != nil {
		return err
	}

	restore, err := redirectLogs()
	if err != nil {
		return err
	}
	defer restore()

	ep := endpointFor(cfg.Stream)
	composer, err := newComposer(cfg, ep, logger.NewEnvLogger("[stream]"))
	if err != nil {
		return err
	}

	exportDir := opts.ExportDir
	if exportDir == "" {
		exportDir = "."
	}
	model := dashboard.NewModel(composer, ep.String(), config.ExpandTilde(exportDir))

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()

	// Quitting with q already stops the composer; this covers other exits.
	composer.Stop()

	if err != nil {
		return errors.WrapWithCode(err, errors.ErrExec,
			"Dashboard exited unexpectedly",
			"Re-run with --log-file to capture what happened")
	}
	return nil
}
