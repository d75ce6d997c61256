package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"session_tracker/internal/session"
)

// Update handles incoming messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m = m.updateListSizes()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case refreshMsg:
		m.status = m.controller.Status()
		return m, m.refreshCmd()

	case eventMsg:
		m = m.handleEvent(session.Event(msg))
		return m, m.waitForEventCmd()

	case errMsg:
		m.notice = msg.Error()
		m.status = m.controller.Status()
		return m, m.waitForErrorCmd()

	case configChangeMsg:
		cfg := msg.cfg
		m.controller.SetThreshold(cfg.IdleThreshold())
		m.controller.SetInterval(cfg.CheckInterval())
		// The delegate shares this pointer, so the list re-themes too
		*m.styles = NewStyles(cfg.Theme)
		if cfg.UI.LogHeight > 0 {
			m.logHeight = cfg.UI.LogHeight
		}
		if cfg.UI.SummaryHeight > 0 {
			m.summaryHeight = cfg.UI.SummaryHeight
		}
		m = m.updateListSizes()
		m.notice = ""
		return m, m.waitForConfigCmd()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Start):
		m.controller.StartSession()
		m.status = m.controller.Status()
		return m, nil

	case key.Matches(msg, m.keys.End):
		m.controller.EndSession()
		m.status = m.controller.Status()
		return m, nil

	case key.Matches(msg, m.keys.Hide):
		m.controller.ToggleVisibility()
		return m, nil

	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		if m.hidden {
			return m, nil
		}
		var cmd tea.Cmd
		m.logList, cmd = m.logList.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleEvent(ev session.Event) Model {
	m.status = ev.Status

	switch ev.Type {
	case session.EventLogLoaded, session.EventSessionClosed:
		m = m.setLog(ev.Log)
		if ev.Type == session.EventSessionClosed {
			m.logList.Select(0)
		}
	case session.EventVisibilityToggled:
		m.hidden = !m.hidden
	}
	return m
}
