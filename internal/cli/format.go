package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	todayStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
)

// Swatch renders a coloured block for an event or type colour.
func Swatch(color string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("■")
}

// FormatDuration renders minutes as "1h30" or "45m".
func FormatDuration(minutes int) string {
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh%02d", h, m)
}

// FormatEvent renders one event on a single line.
func FormatEvent(ev models.Event, typeName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s  %s  %-6s %s", Swatch(ev.Color), ev.ID[:min(8, len(ev.ID))],
		startLabel(ev.Start), FormatDuration(ev.Duration), ev.Title)
	if ev.IsRecurring() {
		b.WriteString(dimStyle.Render(" (" + string(ev.Recurrence) + ")"))
	}
	if typeName != "" {
		b.WriteString(dimStyle.Render(" [" + typeName + "]"))
	}
	return b.String()
}

func startLabel(t time.Time) string {
	if t.IsZero() {
		return "----------------"
	}
	return t.Format(constants.WallClockFormat)
}

// RenderWeek lays occurrences out day by day.
func RenderWeek(weekStart, today time.Time, occ []models.Occurrence) string {
	var b strings.Builder
	end := weekStart.AddDate(0, 0, 6)
	b.WriteString(headerStyle.Render(fmt.Sprintf("Week of %s – %s",
		weekStart.Format("Mon 02 Jan"), end.Format("Mon 02 Jan 2006"))))
	b.WriteString("\n")

	for i := 0; i < 7; i++ {
		day := weekStart.AddDate(0, 0, i)
		label := day.Format("Mon 02")
		if sameDay(day, today) {
			label = todayStyle.Render(label + " •")
		}
		b.WriteString("\n" + label + "\n")

		n := 0
		for _, o := range occ {
			if !sameDay(o.Start, day) {
				continue
			}
			n++
			fmt.Fprintf(&b, "  %s %s–%s  %s\n", Swatch(o.Event.Color),
				o.Start.Format(constants.TimeFormat), o.End().Format(constants.TimeFormat), o.Event.Title)
		}
		if n == 0 {
			b.WriteString(dimStyle.Render("  —") + "\n")
		}
	}
	return b.String()
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
