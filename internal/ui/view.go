package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/marina/internal/notify"
	"github.com/five82/marina/internal/records"
)

// View implements tea.Model.
func (m Model) View() string {
	var body string
	if m.mode == modeLogs {
		body = m.logs.View()
	} else {
		body = m.table.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderStatusLine(),
		m.renderCommandBar(),
	)
}

// renderHeader renders the top bar: filter, counts, busy state and errors.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	rs := m.grid.ResultSet()
	sep := "  "

	parts := []string{
		styles.Logo.Render("marina"),
		styles.MutedText.Render("type ") + styles.Text.Render(m.typeName(rs.Key)),
	}

	switch {
	case rs.Err != nil:
		parts = append(parts, styles.DangerText.Render("fetch failed: "+records.MessageOf(rs.Err)))
	case rs.Loaded():
		parts = append(parts, styles.Text.Render(fmt.Sprintf("%d boats", len(rs.Records))))
	default:
		parts = append(parts, styles.FaintText.Render("no results"))
	}

	if n := len(m.grid.Drafts()); n > 0 {
		parts = append(parts, styles.PendingText.Render(fmt.Sprintf("%d pending", n)))
	}
	if id := m.grid.Selected(); id != "" {
		parts = append(parts, styles.MutedText.Render("selected ")+styles.AccentText.Render(truncate(id, 12)))
	}
	if m.busy {
		parts = append(parts, styles.WarningText.Render(m.spinner.View()+"loading"))
	}
	if !rs.FetchedAt.IsZero() {
		parts = append(parts, styles.FaintText.Render(rs.FetchedAt.Format("15:04:05")))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, sep))
}

// renderStatusLine shows the active prompt, otherwise the latest toast.
func (m Model) renderStatusLine() string {
	styles := m.theme.Styles()
	switch m.mode {
	case modeFilter, modeEdit:
		return m.input.View()
	case modeLogs:
		return styles.MutedText.Render("log " + m.logPath)
	}
	if m.toast == nil {
		return ""
	}
	title := styles.SuccessText
	if m.toast.Severity == notify.SeverityError {
		title = styles.DangerText
	}
	return title.Render(m.toast.Title) + " " + styles.Text.Render(m.toast.Message)
}

// renderCommandBar renders key hints for the current mode.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles()
	switch m.mode {
	case modeFilter, modeEdit:
		return styles.Footer.Width(m.width).Render(m.help.ShortHelpView(
			[]key.Binding{m.keys.Confirm, m.keys.Cancel}))
	case modeLogs:
		return styles.Footer.Width(m.width).Render(m.help.ShortHelpView(
			[]key.Binding{m.keys.Up, m.keys.Down, m.keys.Refresh, m.keys.Cancel}))
	}
	bar := m.help.View(m.keys)
	theme := styles.AccentText.Render("T") + styles.MutedText.Render(":") + styles.FaintText.Render(m.theme.Name)
	return styles.Footer.Width(m.width).Render(bar + "  " + theme)
}

func (m Model) typeName(key records.FilterKey) string {
	if key == "" {
		return "All"
	}
	for _, bt := range m.types {
		if records.FilterKey(bt.ID) == key {
			return bt.Name
		}
	}
	return truncate(string(key), 12)
}

// truncate shortens s to max runes with an ellipsis.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}
