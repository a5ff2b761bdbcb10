package dashboard

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/streamwatch/internal/chart"
	"github.com/rileyhilliard/streamwatch/internal/errors"
	"github.com/rileyhilliard/streamwatch/internal/stream"
)

// statusInterval refreshes the "last update" age in the status line.
const statusInterval = time.Second

// Model is the Bubble Tea model for the streaming dashboard.
type Model struct {
	composer  *Composer
	endpoint  string
	exportDir string
	now       func() time.Time

	width    int
	height   int
	quitting bool
	showHelp bool
	notice   string

	spinner spinner.Model
	help    viewport.Model
}

// eventMsg carries one event from the manager's channels.
type eventMsg struct {
	event stream.Event
}

// tickMsg refreshes the status line.
type tickMsg time.Time

// exportedMsg reports the result of an SVG export.
type exportedMsg struct {
	path string
	err  error
}

// NewModel creates a dashboard for composer. endpoint is only displayed;
// exports are written to exportDir.
func NewModel(composer *Composer, endpoint, exportDir string) Model {
	help := viewport.New(56, 14)
	help.SetContent(helpContent())

	return Model{
		composer:  composer,
		endpoint:  endpoint,
		exportDir: exportDir,
		now:       time.Now,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(SpinnerStyle),
		),
		help: help,
	}
}

// Init starts the composer and the loops that feed Update.
func (m Model) Init() tea.Cmd {
	m.composer.Start()
	manager := m.composer.Manager()
	return tea.Batch(
		waitCmd(manager.Samples()),
		waitCmd(manager.Anomalies()),
		m.tickCmd(),
		m.spinner.Tick,
	)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.composer.Dispatch(msg.event)
		ch := m.composer.Manager().Samples()
		if msg.event.Kind == stream.KindAnomaly {
			ch = m.composer.Manager().Anomalies()
		}
		return m, waitCmd(ch)

	case tea.KeyMsg:
		if handled, cmd := m.HandleKeyMsg(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = min(64, max(msg.Width-8, 20))
		m.help.Height = min(16, max(msg.Height-6, 4))

	case tickMsg:
		return m, m.tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case exportedMsg:
		if msg.err != nil {
			m.notice = "export failed: " + errorSummary(msg.err)
		} else {
			m.notice = "saved " + msg.path
		}
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	return m.renderDashboard()
}

// Composer exposes the model's composer.
func (m Model) Composer() *Composer {
	return m.composer
}

// waitCmd blocks for the next event on ch.
func waitCmd(ch <-chan stream.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg{event: ev}
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(statusInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// exportCmd writes the scene as it is right now. The scene is an immutable
// value, so the write can happen off the Update loop.
func (m Model) exportCmd() tea.Cmd {
	scene := m.composer.Scene()
	name := fmt.Sprintf("streamwatch-%s%s", m.now().Format("20060102-150405"), chart.FormatSVG.Extension())
	path := filepath.Join(m.exportDir, name)

	return func() tea.Msg {
		return exportedMsg{path: path, err: writeExport(path, scene)}
	}
}

// errorSummary is the one-line form of err for the notice line.
func errorSummary(err error) string {
	var swErr *errors.Error
	if stderrors.As(err, &swErr) {
		return swErr.Message
	}
	return err.Error()
}

func writeExport(path string, scene chart.Scene) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := chart.Export(f, scene, chart.FormatSVG); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}
