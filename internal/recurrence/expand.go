// Package recurrence expands recurring events into concrete weekly occurrences.
package recurrence

import (
	"sort"
	"time"

	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/models"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// StartOfWeek returns Monday 00:00 of the week containing t.
func StartOfWeek(t time.Time) time.Time {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(t.Weekday()) + 6) % 7
	return midnight.AddDate(0, 0, -offset)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// addMonthsClamped steps k months from the anchor, keeping the anchor's time
// of day and clamping the day to the length of the target month.
func addMonthsClamped(anchor time.Time, k int) time.Time {
	first := time.Date(anchor.Year(), anchor.Month()+time.Month(k), 1, 0, 0, 0, 0, time.UTC)
	d := min(anchor.Day(), DaysInMonth(first.Year(), first.Month()))
	return time.Date(first.Year(), first.Month(), d, anchor.Hour(), anchor.Minute(), anchor.Second(), 0, time.UTC)
}

// OccurrencesInWeek materialises ev inside [weekStart, weekStart+7d).
// weekStart is expected to be a Monday 00:00 wall-clock value.
func OccurrencesInWeek(ev models.Event, weekStart time.Time) []models.Occurrence {
	if ev.Duration <= 0 || ev.Start.IsZero() {
		return nil
	}
	weekEnd := weekStart.Add(week)

	switch ev.Recurrence {
	case constants.RecurrenceDaily:
		return walkFixed(ev, weekStart, weekEnd, day)
	case constants.RecurrenceWeekly:
		return walkFixed(ev, weekStart, weekEnd, week)
	case constants.RecurrenceMonthly:
		return walkCalendar(ev, weekStart, weekEnd, 1)
	case constants.RecurrenceYearly:
		return walkCalendar(ev, weekStart, weekEnd, 12)
	default:
		// none, and anything unrecognised, is a single check of the anchor.
		if inWindow(ev.Start, weekStart, weekEnd) {
			return []models.Occurrence{occurrence(ev, ev.Start)}
		}
		return nil
	}
}

func walkFixed(ev models.Event, weekStart, weekEnd time.Time, step time.Duration) []models.Occurrence {
	cur := ev.Start
	if cur.Before(weekStart) {
		// Unix seconds do not saturate the way time.Duration does for
		// anchors centuries back.
		stepDays := int64(step / day)
		gapDays := (weekStart.Unix() - cur.Unix()) / int64(day/time.Second)
		cur = cur.AddDate(0, 0, int(gapDays/stepDays*stepDays))
		for i := 0; i < 2 && cur.Before(weekStart); i++ {
			cur = cur.Add(step)
		}
	}

	var out []models.Occurrence
	for i := 0; i < constants.MaxRecurrenceIterations && cur.Before(weekEnd); i++ {
		if inWindow(cur, weekStart, weekEnd) {
			out = append(out, occurrence(ev, cur))
		}
		cur = cur.Add(step)
	}
	return out
}

func walkCalendar(ev models.Event, weekStart, weekEnd time.Time, monthsPerStep int) []models.Occurrence {
	k := 0
	cur := ev.Start
	for i := 0; i < constants.MaxRecurrenceIterations && cur.Before(weekStart); i++ {
		k++
		cur = addMonthsClamped(ev.Start, k*monthsPerStep)
	}

	var out []models.Occurrence
	for i := 0; i < constants.MaxRecurrenceIterations && cur.Before(weekEnd); i++ {
		if inWindow(cur, weekStart, weekEnd) {
			out = append(out, occurrence(ev, cur))
		}
		k++
		cur = addMonthsClamped(ev.Start, k*monthsPerStep)
	}
	return out
}

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func occurrence(ev models.Event, start time.Time) models.Occurrence {
	return models.Occurrence{Start: start, Duration: ev.Duration, Event: ev}
}

// ExpandWeek returns the occurrences of every event in the week, ordered by
// start time and then by event id.
func ExpandWeek(events []models.Event, weekStart time.Time) []models.Occurrence {
	var out []models.Occurrence
	for _, ev := range events {
		out = append(out, OccurrencesInWeek(ev, weekStart)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].Event.ID < out[j].Event.ID
	})
	return out
}
