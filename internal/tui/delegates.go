package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"session_tracker/internal/session"
)

// recordItem wraps a Record for the list component
type recordItem struct {
	record session.Record
}

func (i recordItem) FilterValue() string { return i.record.Date() }
func (i recordItem) Title() string       { return session.FormatLogLine(i.record) }
func (i recordItem) Description() string { return i.record.Weekday }

// recordDelegate renders one session per line
type recordDelegate struct {
	styles *Styles
	width  int
}

func newRecordDelegate(styles *Styles) *recordDelegate {
	return &recordDelegate{styles: styles}
}

// SetWidth sets the render width
func (d *recordDelegate) SetWidth(w int) { d.width = w }

func (d *recordDelegate) Height() int                             { return 1 }
func (d *recordDelegate) Spacing() int                            { return 0 }
func (d *recordDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d *recordDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(recordItem)
	if !ok {
		return
	}

	style := d.styles.Row
	if i.record.Malformed {
		style = d.styles.Malformed
	}
	if index == m.Index() {
		style = d.styles.SelectedRow
	}

	line := truncate(session.FormatLogLine(i.record), d.width)
	fmt.Fprint(w, style.Render(line))
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if maxLen < 4 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
