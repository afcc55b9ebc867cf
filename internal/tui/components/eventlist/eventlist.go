package eventlist

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/models"
)

// ShowWeekMsg asks the parent to display the week containing Date.
type ShowWeekMsg struct {
	Date time.Time
}

type DeleteEventMsg struct {
	ID string
}

type Item struct {
	Event    models.Event
	TypeName string
}

func (i Item) Title() string { return i.Event.Title }

func (i Item) Description() string {
	start := "no start"
	if !i.Event.Start.IsZero() {
		start = i.Event.Start.Format(constants.WallClockFormat)
	}
	desc := fmt.Sprintf("%s | %d min | %s", start, i.Event.Duration, i.Event.Recurrence)
	if i.TypeName != "" {
		desc += " | " + i.TypeName
	}
	return desc
}

func (i Item) FilterValue() string { return i.Event.Title }

type KeyMap struct {
	Show   key.Binding
	Delete key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Show: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "show week"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(items []Item, width, height int) Model {
	l := list.New(toListItems(items), list.NewDefaultDelegate(), width, height)
	l.Title = "Events"
	l.SetShowTitle(false)
	l.SetShowHelp(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Show, keys.Delete}
	}
	return Model{list: l, keys: keys}
}

func toListItems(items []Item) []list.Item {
	out := make([]list.Item, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

func (m *Model) SetItems(items []Item) {
	m.list.SetItems(toListItems(items))
}

func (m Model) Items() int { return len(m.list.Items()) }

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		it, selected := m.list.SelectedItem().(Item)
		switch {
		case key.Matches(msg, m.keys.Show) && selected && !it.Event.Start.IsZero():
			return m, func() tea.Msg { return ShowWeekMsg{Date: it.Event.Start} }
		case key.Matches(msg, m.keys.Delete) && selected:
			return m, func() tea.Msg { return DeleteEventMsg{ID: it.Event.ID} }
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		return "\n  No events yet.\n  Add one with 'mydesk event add'."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}

// Filtering reports whether the filter input has focus.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (k KeyMap) Bindings() []key.Binding {
	return []key.Binding{k.Show, k.Delete}
}
