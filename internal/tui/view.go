package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const maxCellWidth = 24

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Padding(0, 1).Reverse(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	labelStyle    = lipgloss.NewStyle().Bold(true)
)

// View renders the table, bounded by the visible row count, under a single
// header inferred from the first cached record. Extra columns on later
// records are unreachable in this view: the cost of a schema-less table
// rendered under one header.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("tabula"))
	b.WriteString("\n\n")

	switch {
	case !m.loaded:
		b.WriteString(mutedStyle.Render("loading records..."))
		b.WriteString("\n")
	case len(m.records) == 0:
		b.WriteString(mutedStyle.Render("no records. upload a CSV with `tabula upload`."))
		b.WriteString("\n")
	default:
		m.renderTable(&b)
	}

	if m.mode == modeEditing && m.session != nil {
		b.WriteString("\n")
		m.renderEditForm(&b)
	}
	if m.mode == modeConfirmDelete {
		b.WriteString("\n")
		b.WriteString(noticeStyle.Render("delete this record? (y/n)"))
		b.WriteString("\n")
	}

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(m.helpLine()))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderTable(b *strings.Builder) {
	cols := m.records[0].Columns()
	n := m.visibleRowCount()

	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = lipgloss.Width(truncate(c))
	}
	for _, rec := range m.records[:n] {
		for i, c := range cols {
			v, _ := rec.Get(c)
			if w := lipgloss.Width(truncate(v)); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		widths[i] += 2 // cell padding
	}

	for i, c := range cols {
		b.WriteString(headerStyle.Width(widths[i]).Render(truncate(c)))
	}
	b.WriteString("\n")

	total := 0
	for _, w := range widths {
		total += w
	}
	b.WriteString(mutedStyle.Render(strings.Repeat("-", total)))
	b.WriteString("\n")

	for r, rec := range m.records[:n] {
		style := cellStyle
		if r == m.cursor && m.mode != modeEditing {
			style = selectedStyle
		}
		for i, c := range cols {
			v, _ := rec.Get(c)
			b.WriteString(style.Width(widths[i]).Render(truncate(v)))
		}
		b.WriteString("\n")
	}

	b.WriteString(mutedStyle.Render(
		fmt.Sprintf("showing %d of %d records", n, len(m.records))))
	b.WriteString("\n")
}

func (m Model) renderEditForm(b *strings.Builder) {
	b.WriteString(labelStyle.Render("editing record"))
	b.WriteString("\n")
	for i, f := range m.session.fields {
		b.WriteString(labelStyle.Render(fmt.Sprintf("  %s: ", f)))
		b.WriteString(m.session.inputs[i].View())
		b.WriteString("\n")
	}
}

func (m Model) helpLine() string {
	switch m.mode {
	case modeEditing:
		return "tab: next field • enter: save • esc: cancel"
	case modeConfirmDelete:
		return "y: confirm delete • n: keep record"
	default:
		return "↑/↓: select • e: edit • d: delete • +/-: rows shown • r: refresh • q: quit"
	}
}

// truncate caps a cell for display.
func truncate(s string) string {
	if lipgloss.Width(s) <= maxCellWidth {
		return s
	}
	r := []rune(s)
	if len(r) > maxCellWidth-1 {
		r = r[:maxCellWidth-1]
	}
	return string(r) + "…"
}
