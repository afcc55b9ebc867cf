package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/tui/components/eventlist"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.eventList.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case eventlist.ShowWeekMsg:
		m.report(m.desk.GoTo(context.Background(), msg.Date), "")
		m.tab = tabWeek
		m.cursor = 0
		m.refresh()
		return m, nil

	case eventlist.DeleteEventMsg:
		m.confirmDeleteID = msg.ID
		return m, nil

	case tea.KeyMsg:
		if m.confirmDeleteID != "" {
			return m.updateConfirmDelete(msg)
		}
		if m.tab == tabEvents && m.eventList.Filtering() {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			m.desk.CancelResize()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.tab = (m.tab + 1) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.tab = (m.tab - 1 + tabCount) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
		if m.tab == tabWeek {
			return m.updateWeek(msg)
		}
	}

	if m.tab == tabEvents {
		var cmd tea.Cmd
		m.eventList, cmd = m.eventList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateWeek(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	bg := context.Background()

	switch {
	case key.Matches(msg, m.keys.Up):
		m.cancelResize()
		if m.cursor > 0 {
			m.cursor--
		}
		m.syncSelection()

	case key.Matches(msg, m.keys.Down):
		m.cancelResize()
		if m.cursor < len(m.occ)-1 {
			m.cursor++
		}
		m.syncSelection()

	case key.Matches(msg, m.keys.NextWeek):
		m.cancelResize()
		m.report(m.desk.NextWeek(bg), "")
		m.cursor = 0
		m.refresh()

	case key.Matches(msg, m.keys.PrevWeek):
		m.cancelResize()
		m.report(m.desk.PrevWeek(bg), "")
		m.cursor = 0
		m.refresh()

	case key.Matches(msg, m.keys.Today):
		m.cancelResize()
		m.report(m.desk.Today(bg), "")
		m.cursor = 0
		m.refresh()

	case key.Matches(msg, m.keys.Grow):
		m.resize(constants.ResizeStepMin)

	case key.Matches(msg, m.keys.Shrink):
		m.resize(-constants.ResizeStepMin)

	case key.Matches(msg, m.keys.Commit):
		m.resizeDelta = 0
		changed, err := m.desk.CommitResize(bg)
		if changed || err != nil {
			m.report(err, "✓ Duration saved")
		}
		m.refresh()

	case key.Matches(msg, m.keys.Cancel):
		m.cancelResize()

	case key.Matches(msg, m.keys.MoveLater):
		m.move(1)

	case key.Matches(msg, m.keys.MoveEarlier):
		m.move(-1)

	case key.Matches(msg, m.keys.Delete):
		if o, ok := m.selected(); ok {
			m.cancelResize()
			m.confirmDeleteID = o.Event.ID
		}
	}
	return m, nil
}

// resize moves the pending resize of the selected event by step minutes,
// starting one when none is in progress.
func (m *Model) resize(step int) {
	o, ok := m.selected()
	if !ok {
		return
	}
	if r := m.desk.State().Resize; r == nil || r.EventID != o.Event.ID {
		if !m.desk.BeginResize(o.Event.ID) {
			return
		}
		m.resizeDelta = 0
	}
	m.resizeDelta += step
	m.desk.UpdateResize(m.resizeDelta)
	if r := m.desk.State().Resize; r != nil {
		m.resizeDelta = r.Duration - r.Original
	}
}

func (m *Model) cancelResize() {
	m.resizeDelta = 0
	m.desk.CancelResize()
}

// move shifts the selected event's start by days and keeps the cursor on
// the moved occurrence when it is still in view.
func (m *Model) move(days int) {
	o, ok := m.selected()
	if !ok {
		return
	}
	ev, ok := m.desk.Store().Event(o.Event.ID)
	if !ok || ev.Start.IsZero() {
		return
	}
	m.cancelResize()
	_, err := m.desk.MoveEvent(context.Background(), ev.ID, ev.Start.AddDate(0, 0, days))
	m.report(err, "✓ Moved \""+ev.Title+"\"")

	target := o.Start.AddDate(0, 0, days)
	m.refresh()
	for i, next := range m.occ {
		if next.Event.ID == ev.ID && next.Start.Equal(target) {
			m.cursor = i
			break
		}
	}
	m.syncSelection()
}

func (m Model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	id := m.confirmDeleteID
	switch msg.String() {
	case "y", "Y":
		m.confirmDeleteID = ""
		title := ""
		if ev, ok := m.desk.Store().Event(id); ok {
			title = ev.Title
		}
		_, err := m.desk.DeleteEvent(context.Background(), id)
		m.report(err, "✓ Deleted \""+title+"\"")
		m.refresh()
	case "n", "N", "esc", "q":
		m.confirmDeleteID = ""
		m.status = "Delete cancelled."
	}
	return m, nil
}
