package dashboard

import tea "github.com/charmbracelet/bubbletea"

// Key bindings as constants for consistency.
const (
	KeyQuit       = "q"
	KeyQuitAlt    = "ctrl+c"
	KeyReconnect  = "r"
	KeyExport     = "e"
	KeyToggleHelp = "?"
	KeyClose      = "esc"
)

// HandleKeyMsg processes keyboard input and returns updated model state and command.
// Returns true if the key was handled, false otherwise.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	if key == KeyToggleHelp {
		m.showHelp = !m.showHelp
		if m.showHelp {
			m.help.GotoTop()
		}
		return true, nil
	}

	if m.showHelp && key == KeyClose {
		m.showHelp = false
		return true, nil
	}

	switch key {
	case KeyQuit, KeyQuitAlt:
		m.quitting = true
		m.composer.Stop()
		return true, tea.Quit

	case KeyReconnect:
		m.notice = ""
		m.composer.Reconnect()
		return true, nil

	case KeyExport:
		return true, m.exportCmd()
	}

	// Let the help viewport scroll while it is open.
	if m.showHelp {
		var cmd tea.Cmd
		m.help, cmd = m.help.Update(msg)
		return true, cmd
	}

	return false, nil
}
