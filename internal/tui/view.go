package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/mydesk/internal/constants"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch {
	case m.confirmDeleteID != "":
		content = m.viewConfirmDelete()
	case m.tab == tabEvents:
		content = docStyle.Render(m.eventList.View())
	default:
		content = docStyle.Render(m.viewWeek())
	}

	parts := []string{m.viewTabs(), content}
	if m.warning != "" {
		parts = append(parts, warningStyle.Render(m.warning))
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	parts = append(parts, m.help.View(m))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, title := range []string{"Week", "Events"} {
		if m.tab == tab(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewWeek() string {
	state := m.desk.State()
	weekStart := state.WeekStart
	today := m.now()

	var b strings.Builder
	fmt.Fprintf(&b, "Week of %s – %s\n", weekStart.Format("Mon 02 Jan"), weekStart.AddDate(0, 0, 6).Format("Mon 02 Jan 2006"))

	i := 0
	for d := 0; d < 7; d++ {
		day := weekStart.AddDate(0, 0, d)
		label := dayStyle.Render(day.Format("Mon 02"))
		if y, mo, dd := day.Date(); y == today.Year() && mo == today.Month() && dd == today.Day() {
			label = todayStyle.Render(day.Format("Mon 02") + " •")
		}
		b.WriteString("\n" + label + "\n")

		empty := true
		for ; i < len(m.occ) && m.occ[i].Start.Before(day.AddDate(0, 0, 1)); i++ {
			empty = false
			b.WriteString(m.viewOccurrence(i) + "\n")
		}
		if empty {
			b.WriteString(dimStyle.Render("  —") + "\n")
		}
	}
	return b.String()
}

func (m Model) viewOccurrence(i int) string {
	o := m.occ[i]
	end := o.End()
	suffix := ""
	if r := m.desk.State().Resize; r != nil && r.EventID == o.Event.ID && i == m.cursor {
		end = o.Start.Add(time.Duration(r.Duration) * time.Minute)
		suffix = dimStyle.Render(fmt.Sprintf("  (resizing: %d min, enter to apply)", r.Duration))
	}
	swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(o.Event.Color)).Render("■")
	line := fmt.Sprintf("%s–%s  %s", o.Start.Format(constants.TimeFormat), end.Format(constants.TimeFormat), o.Event.Title)
	if i == m.cursor {
		line = selectedStyle.Render(line)
	}
	return "  " + swatch + " " + line + suffix
}

func (m Model) viewConfirmDelete() string {
	title := m.confirmDeleteID
	prompt := "Delete this event?"
	if ev, ok := m.desk.Store().Event(m.confirmDeleteID); ok {
		title = ev.Title
		if ev.IsRecurring() {
			prompt = fmt.Sprintf("Delete this event and all of its %s occurrences?", ev.Recurrence)
		}
	}
	return lipgloss.Place(m.width, max(m.height-4, 5),
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render(prompt),
			title,
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}
