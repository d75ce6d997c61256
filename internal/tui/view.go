package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"session_tracker/internal/session"
)

// Daily totals column widths
const (
	DayDateWidth     = 10
	DayWeekdayWidth  = 9
	DayTotalWidth    = 10
	DaySessionsWidth = 8
)

// View renders the UI based on the model state
func (m Model) View() string {
	if m.hidden {
		return m.renderCompact()
	}
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")

	b.WriteString(m.renderButtons())
	b.WriteString("\n\n")

	b.WriteString(m.styles.SectionHeader.Render("Daily Totals"))
	b.WriteString("\n")
	b.WriteString(m.renderDailyTotals())
	b.WriteString("\n\n")

	b.WriteString(m.styles.SectionHeader.Render("Session Log"))
	b.WriteString("\n")
	if len(m.log) == 0 {
		b.WriteString(m.styles.Muted.Render("  No sessions recorded yet"))
	} else {
		b.WriteString(m.logList.View())
	}

	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render("Error: " + m.notice))
	}

	return b.String()
}

// renderCompact renders the minimized one-line status
func (m Model) renderCompact() string {
	return fmt.Sprintf("%s %s  %s",
		m.indicator(),
		m.styles.Value.Render(session.FormatElapsed(m.status.Elapsed)),
		m.styles.Help.Render("m:restore | q:quit"))
}

// renderHeader renders the title and tracking details
func (m Model) renderHeader() string {
	title := m.styles.Title.Render("Session Tracker")

	details := fmt.Sprintf("idle after %s", m.status.Threshold)
	if !m.status.AutoStartEnabled {
		details += " | auto-start off"
	}
	if !m.status.SamplerOK {
		details += " | idle detection unavailable"
	}
	status := m.styles.Status.Render(details)

	spacing := m.width - lipgloss.Width(title) - lipgloss.Width(status) - 4
	if spacing < 1 {
		spacing = 1
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, title, strings.Repeat(" ", spacing), status)
}

// indicator renders the green/red running dot
func (m Model) indicator() string {
	if m.status.Running {
		return m.styles.Running.Render("●")
	}
	return m.styles.Stopped.Render("●")
}

// renderStatus renders the live session status
func (m Model) renderStatus() string {
	start := "-"
	if m.status.Running {
		start = m.status.Start.Format("15:04:05")
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.indicator(), " ",
		m.styles.Label.Render("Start Time: "), m.styles.Value.Render(start),
		"   ",
		m.styles.Label.Render("Duration: "), m.styles.Value.Render(session.FormatElapsed(m.status.Elapsed)),
	)
}

// renderButtons renders the start/end actions, dimming the one that does nothing
func (m Model) renderButtons() string {
	startStyle, endStyle := m.styles.Button, m.styles.ButtonOff
	if m.status.Running {
		startStyle, endStyle = m.styles.ButtonOff, m.styles.Button
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		startStyle.Render("[s] Start Session"),
		" ",
		endStyle.Render("[e] End Session"),
	)
}

// renderDailyTotals renders the newest days of the summary table
func (m Model) renderDailyTotals() string {
	header := fmt.Sprintf("%s  %s  %s  %s",
		padRight("Date", DayDateWidth),
		padRight("Weekday", DayWeekdayWidth),
		padLeft("Total Time", DayTotalWidth),
		padLeft("Sessions", DaySessionsWidth))

	lines := []string{m.styles.ColumnHeader.Render(header)}
	if len(m.days) == 0 {
		lines = append(lines, m.styles.Muted.Render("No data"))
		return strings.Join(lines, "\n")
	}

	for i, d := range m.days {
		if i >= m.summaryHeight {
			break
		}
		row := fmt.Sprintf("%s  %s  %s  %s",
			padRight(d.Date, DayDateWidth),
			padRight(d.Weekday, DayWeekdayWidth),
			padLeft(session.FormatDuration(d.Total()), DayTotalWidth),
			padLeft(fmt.Sprintf("%d", d.SessionCount), DaySessionsWidth))
		lines = append(lines, m.styles.Row.Render(row))
	}
	if hidden := len(m.days) - m.summaryHeight; hidden > 0 {
		lines = append(lines, m.styles.Muted.Render(fmt.Sprintf("… %d earlier days", hidden)))
	}
	return strings.Join(lines, "\n")
}

// padRight pads a string with spaces on the right to reach target width
func padRight(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// padLeft pads a string with spaces on the left to reach target width
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}
