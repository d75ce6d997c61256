package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"session_tracker/internal/config"
	"session_tracker/internal/session"
)

// refreshInterval drives the live duration display
const refreshInterval = time.Second

// Options wires the UI to the running tracker
type Options struct {
	Controller    *session.Controller
	Theme         string
	StartHidden   bool
	LogHeight     int
	SummaryHeight int

	// Optional sources; nil channels are never ready
	ConfigChanges <-chan *config.Config
	PersistErrors <-chan error
}

// Model represents the application state
type Model struct {
	// Core state
	controller *session.Controller
	status     session.Status
	log        []session.Record
	days       []session.DailySummary
	hidden     bool

	// UI components
	logList  list.Model
	delegate *recordDelegate
	styles   *Styles
	keys     keyMap
	help     help.Model

	logHeight     int
	summaryHeight int

	configChanges <-chan *config.Config
	persistErrors <-chan error

	// UI dimensions
	width  int
	height int

	// Last error shown under the help line
	notice string
}

// NewModel creates a new Model with initialized state
func NewModel(opts Options) Model {
	styles := NewStyles(opts.Theme)
	delegate := newRecordDelegate(&styles)

	if opts.LogHeight <= 0 {
		opts.LogHeight = 5
	}
	if opts.SummaryHeight <= 0 {
		opts.SummaryHeight = 8
	}

	m := Model{
		controller:    opts.Controller,
		status:        opts.Controller.Status(),
		hidden:        opts.StartHidden,
		delegate:      delegate,
		styles:        &styles,
		keys:          defaultKeyMap(),
		help:          help.New(),
		logHeight:     opts.LogHeight,
		summaryHeight: opts.SummaryHeight,
		configChanges: opts.ConfigChanges,
		persistErrors: opts.PersistErrors,
	}

	m.logList = list.New([]list.Item{}, delegate, 0, opts.LogHeight)
	m.logList.SetShowTitle(false)
	m.logList.SetShowHelp(false)
	m.logList.SetShowStatusBar(false)
	m.logList.SetShowPagination(false)
	m.logList.SetFilteringEnabled(false)
	m.logList.DisableQuitKeybindings()

	return m.setLog(opts.Controller.Log())
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.waitForEventCmd(),
		m.waitForErrorCmd(),
		m.waitForConfigCmd(),
		m.refreshCmd(),
	)
}

// Message types
type (
	refreshMsg      time.Time
	eventMsg        session.Event
	errMsg          struct{ error }
	configChangeMsg struct{ cfg *config.Config }
)

// waitForEventCmd blocks until the controller publishes an event
func (m Model) waitForEventCmd() tea.Cmd {
	events := m.controller.Events
	return func() tea.Msg {
		return eventMsg(<-events)
	}
}

// waitForErrorCmd blocks until the controller or the record writer reports an error
func (m Model) waitForErrorCmd() tea.Cmd {
	controllerErrs := m.controller.Errors
	persistErrs := m.persistErrors
	return func() tea.Msg {
		select {
		case err := <-controllerErrs:
			return errMsg{err}
		case err := <-persistErrs:
			return errMsg{err}
		}
	}
}

// waitForConfigCmd blocks until the config file is reloaded
func (m Model) waitForConfigCmd() tea.Cmd {
	if m.configChanges == nil {
		return nil
	}
	changes := m.configChanges
	return func() tea.Msg {
		cfg, ok := <-changes
		if !ok {
			return nil
		}
		return configChangeMsg{cfg}
	}
}

// refreshCmd ticks once a second to refresh the live duration
func (m Model) refreshCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// setLog replaces the log and recomputes the daily totals
func (m Model) setLog(log []session.Record) Model {
	m.log = log
	m.days = session.SortedDays(session.Summarize(log))

	items := make([]list.Item, len(log))
	for i, r := range log {
		items[i] = recordItem{record: r}
	}
	m.logList.SetItems(items)
	return m
}

// updateListSizes updates list dimensions based on terminal size
func (m Model) updateListSizes() Model {
	listWidth := m.width - 4
	if listWidth < 20 {
		listWidth = 20
	}

	m.delegate.SetWidth(listWidth)
	m.logList.SetSize(listWidth, m.logHeight)
	m.help.Width = m.width
	return m
}

// Status returns the status currently displayed
func (m Model) Status() session.Status {
	return m.status
}

// Hidden reports whether the UI is minimized to its compact line
func (m Model) Hidden() bool {
	return m.hidden
}
