// Package tui is the interactive week browser.
package tui

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/mydesk/internal/desk"
	"github.com/julianstephens/mydesk/internal/logger"
	"github.com/julianstephens/mydesk/internal/models"
	"github.com/julianstephens/mydesk/internal/tui/components/eventlist"
	"github.com/julianstephens/mydesk/internal/validation"
)

type tab int

const (
	tabWeek tab = iota
	tabEvents
	tabCount
)

// Options configures the browser. DayStart and DayEnd are minutes after
// midnight and bound the conflict check.
type Options struct {
	Now      func() time.Time
	DayStart int
	DayEnd   int
}

type Model struct {
	desk      *desk.Desk
	now       func() time.Time
	validator *validation.Validator
	keys      KeyMap
	help      help.Model
	eventList eventlist.Model

	tab    tab
	occ    []models.Occurrence
	cursor int
	// resizeDelta is the offset from the duration the resize began at.
	resizeDelta     int
	confirmDeleteID string
	status          string
	warning         string
	quitting        bool
	width           int
	height          int
}

func NewModel(d *desk.Desk, opts Options) Model {
	if opts.Now == nil {
		opts.Now = models.Now
	}
	m := Model{
		desk:      d,
		now:       opts.Now,
		validator: validation.New(opts.DayStart, opts.DayEnd),
		keys:      DefaultKeyMap(),
		help:      help.New(),
		eventList: eventlist.New(nil, 0, 0),
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

// refresh reloads the displayed week and the event list from the desk.
func (m *Model) refresh() {
	m.occ = m.desk.Week()
	if m.cursor >= len(m.occ) {
		m.cursor = len(m.occ) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.syncSelection()

	events := m.desk.Store().Events()
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
	items := make([]eventlist.Item, len(events))
	for i, ev := range events {
		items[i] = eventlist.Item{Event: ev, TypeName: m.typeName(ev.TypeID)}
	}
	m.eventList.SetItems(items)

	res := m.validator.ValidateWeek(events, m.desk.State().WeekStart)
	m.warning = ""
	if res.HasConflicts() {
		m.warning = fmt.Sprintf("⚠ %d conflict(s) this week, run 'mydesk validate' for details", len(res.Conflicts))
	}
}

func (m *Model) syncSelection() {
	if o, ok := m.selected(); ok {
		m.desk.Select(o.Event.ID)
		return
	}
	m.desk.Select("")
}

func (m Model) selected() (models.Occurrence, bool) {
	if m.cursor < 0 || m.cursor >= len(m.occ) {
		return models.Occurrence{}, false
	}
	return m.occ[m.cursor], true
}

func (m Model) typeName(id string) string {
	if et, ok := m.desk.Store().Type(id); ok && id != "" {
		return et.Name
	}
	return ""
}

// report shows the outcome of a change in the status line.
func (m *Model) report(err error, done string) {
	if err != nil {
		logger.Error("Failed to save change", "error", err)
		m.status = "❌ " + err.Error()
		return
	}
	m.status = done
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	if m.tab == tabWeek {
		keys = append(keys, m.keys.NextWeek, m.keys.PrevWeek, m.keys.Grow, m.keys.Shrink)
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Quit, m.keys.Help}
	if m.tab != tabWeek {
		return [][]key.Binding{global, eventlist.DefaultKeyMap().Bindings()}
	}
	return [][]key.Binding{
		global,
		{m.keys.Up, m.keys.Down, m.keys.NextWeek, m.keys.PrevWeek, m.keys.Today},
		{m.keys.Grow, m.keys.Shrink, m.keys.Commit, m.keys.Cancel, m.keys.MoveLater, m.keys.MoveEarlier, m.keys.Delete},
	}
}
