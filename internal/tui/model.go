// Package tui is the terminal client for browsing and editing records.
//
// The view controller is a Bubble Tea model: one immutable state value
// transformed by discrete messages (records fetched, save succeeded, delete
// succeeded, ...). At most one record is ever in an edit session; edits touch
// only the session's draft inputs until save, and a failed save keeps the
// session alive so no draft is lost. Saving replaces the cached row wholesale
// with the server's canonical record, so the cache never drifts from
// server-computed values.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/agentic-research/tabula/api"
	"github.com/agentic-research/tabula/internal/client"
)

// DefaultVisibleCount is how many rows render until the user asks for more.
const DefaultVisibleCount = 10

// DefaultEditableFields is the stock whitelist of editable columns. Anything
// not named here is read-only in the UI, though the server would accept it.
var DefaultEditableFields = []string{
	"Status",
	"Joining Date",
	"Duration",
	"Internship Type",
	"Timing",
	"Offer letter Send",
	"Accepted Offer Letter",
	"Candidates Enrolled",
}

type mode int

const (
	modeViewing mode = iota
	modeEditing
	modeConfirmDelete
)

// editSession holds the single in-progress edit: which record, and one draft
// input per editable field present on that record, in the record's own order.
type editSession struct {
	id     string
	fields []string
	inputs []textinput.Model
	focus  int
}

// recordsFetchedMsg carries a fresh full listing from the server.
type recordsFetchedMsg []api.Record

// saveDoneMsg carries the server's canonical record after a successful save.
type saveDoneMsg struct{ rec api.Record }

// deleteDoneMsg reports server-confirmed deletion of one identifier.
type deleteDoneMsg struct{ id string }

// errMsg reports a failed call; op tells the state machine whether the edit
// session must be preserved.
type errMsg struct {
	op  string
	err error
}

// Model is the client view controller state.
type Model struct {
	api      *client.Client
	editable map[string]struct{}

	mode    mode
	records []api.Record // nil until the first fetch lands
	loaded  bool
	cursor  int // index into the visible slice
	visible int

	session   *editSession
	confirmID string

	notice string
	width  int
}

// New builds a Model talking to api. editableFields nil means the stock
// whitelist.
func New(api *client.Client, editableFields []string) Model {
	if editableFields == nil {
		editableFields = DefaultEditableFields
	}
	editable := make(map[string]struct{}, len(editableFields))
	for _, f := range editableFields {
		editable[f] = struct{}{}
	}
	return Model{
		api:      api,
		editable: editable,
		visible:  DefaultVisibleCount,
		width:    80,
	}
}

// Init fetches the initial listing.
func (m Model) Init() tea.Cmd {
	return m.fetchCmd()
}

// Update is the state machine. Every transition returns a new model value.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case recordsFetchedMsg:
		m.records = msg
		m.loaded = true
		m.clampCursor()
		return m, nil

	case saveDoneMsg:
		// Replace the cache entry wholesale with the canonical record.
		for i := range m.records {
			if m.records[i].ID == msg.rec.ID {
				m.records[i] = msg.rec
				break
			}
		}
		m.mode = modeViewing
		m.session = nil
		m.notice = "saved"
		return m, nil

	case deleteDoneMsg:
		kept := m.records[:0]
		for _, r := range m.records {
			if r.ID != msg.id {
				kept = append(kept, r)
			}
		}
		m.records = kept
		m.mode = modeViewing
		m.confirmID = ""
		m.clampCursor()
		m.notice = "record deleted"
		return m, nil

	case errMsg:
		m.notice = msg.err.Error()
		// A failed save keeps the session (and its drafts) alive; a failed
		// delete just falls back to viewing.
		if msg.op != "save" {
			m.mode = modeViewing
			m.confirmID = ""
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeEditing:
			return m.updateEditing(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		default:
			return m.updateViewing(msg)
		}
	}
	return m, nil
}

func (m Model) updateViewing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.notice = "refreshing"
		return m, m.fetchCmd()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < m.visibleRowCount()-1 {
			m.cursor++
		}
	case "+", "=":
		m.visible++
	case "-", "_":
		if m.visible > 1 {
			m.visible--
		}
		m.clampCursor()
	case "e":
		return m.startEdit()
	case "d":
		if rec, ok := m.selected(); ok {
			m.mode = modeConfirmDelete
			m.confirmID = rec.ID
		}
	}
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		id := m.confirmID
		m.notice = "deleting"
		return m, m.deleteCmd(id)
	case "n", "N", "esc":
		m.mode = modeViewing
		m.confirmID = ""
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		// Cancel: drop the drafts, the cache still holds the last known-good
		// values.
		m.mode = modeViewing
		m.session = nil
		m.notice = "edit cancelled"
		return m, nil
	case "enter":
		return m.saveEdit()
	case "tab", "down":
		m.session.setFocus(m.session.focus + 1)
		return m, nil
	case "shift+tab", "up":
		m.session.setFocus(m.session.focus - 1)
		return m, nil
	}

	var cmd tea.Cmd
	m.session.inputs[m.session.focus], cmd = m.session.inputs[m.session.focus].Update(msg)
	return m, cmd
}

// startEdit copies the selected row's editable field values into fresh draft
// inputs. Rows without any editable field cannot enter an edit session.
func (m Model) startEdit() (tea.Model, tea.Cmd) {
	rec, ok := m.selected()
	if !ok {
		return m, nil
	}

	sess := &editSession{id: rec.ID}
	for _, col := range rec.Columns() {
		if _, ok := m.editable[col]; !ok {
			continue
		}
		val, _ := rec.Get(col)
		ti := textinput.New()
		ti.SetValue(val)
		ti.CharLimit = 256
		ti.Width = 32
		sess.fields = append(sess.fields, col)
		sess.inputs = append(sess.inputs, ti)
	}
	if len(sess.fields) == 0 {
		m.notice = "no editable fields on this record"
		return m, nil
	}

	m.mode = modeEditing
	m.session = sess
	m.notice = ""
	return m, sess.inputs[0].Focus()
}

// saveEdit fires the update call with the draft fields. The session stays
// alive until the server confirms.
func (m Model) saveEdit() (tea.Model, tea.Cmd) {
	patch := make(map[string]string, len(m.session.fields))
	for i, f := range m.session.fields {
		patch[f] = m.session.inputs[i].Value()
	}
	m.notice = "saving"
	return m, m.saveCmd(m.session.id, patch)
}

func (s *editSession) setFocus(i int) {
	if len(s.inputs) == 0 {
		return
	}
	i = (i + len(s.inputs)) % len(s.inputs)
	s.inputs[s.focus].Blur()
	s.focus = i
	s.inputs[s.focus].Focus()
}

// selected returns the record under the cursor.
func (m Model) selected() (api.Record, bool) {
	if m.cursor >= m.visibleRowCount() {
		return api.Record{}, false
	}
	return m.records[m.cursor], true
}

// visibleRowCount applies the display bound to the cache.
func (m Model) visibleRowCount() int {
	if len(m.records) < m.visible {
		return len(m.records)
	}
	return m.visible
}

func (m *Model) clampCursor() {
	if n := m.visibleRowCount(); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		records, err := m.api.List(context.Background())
		if err != nil {
			return errMsg{op: "fetch", err: fmt.Errorf("fetching records: %w", err)}
		}
		return recordsFetchedMsg(records)
	}
}

func (m Model) saveCmd(id string, patch map[string]string) tea.Cmd {
	return func() tea.Msg {
		rec, err := m.api.Update(context.Background(), id, patch)
		if err != nil {
			return errMsg{op: "save", err: fmt.Errorf("saving record: %w", err)}
		}
		return saveDoneMsg{rec: rec}
	}
}

func (m Model) deleteCmd(id string) tea.Cmd {
	return func() tea.Msg {
		if err := m.api.Delete(context.Background(), id); err != nil {
			return errMsg{op: "delete", err: fmt.Errorf("deleting record: %w", err)}
		}
		return deleteDoneMsg{id: id}
	}
}
