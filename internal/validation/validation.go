package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/models"
	"github.com/julianstephens/mydesk/internal/recurrence"
)

// Conflict represents a detected problem in a week of occurrences
type Conflict struct {
	Type        constants.ConflictType
	Description string
	Date        string   // YYYY-MM-DD format (if applicable)
	Items       []string // Event titles involved
	TimeRange   string   // Human-readable time range (if applicable)
	EventIDs    []string
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, c := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", c.Description)
	}
	return b.String()
}

// Validator checks a week of occurrences against the visible day window.
type Validator struct {
	dayStart int // minutes after midnight
	dayEnd   int
}

func New(dayStart, dayEnd int) *Validator {
	return &Validator{dayStart: dayStart, dayEnd: dayEnd}
}

// ValidateWeek reports events without a usable start, overlapping
// occurrences, and occurrences outside the day window for the week starting
// at weekStart.
func (v *Validator) ValidateWeek(events []models.Event, weekStart time.Time) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	for _, ev := range events {
		if ev.Start.IsZero() {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        constants.ConflictInvalidStart,
				Description: fmt.Sprintf("Event \"%s\" has no valid start and is never shown", ev.Title),
				Items:       []string{ev.Title},
				EventIDs:    []string{ev.ID},
			})
		}
	}

	occs := recurrence.ExpandWeek(events, weekStart)

	// Occurrences are sorted by start, so only following entries that start
	// before the current one ends can overlap it.
	for i, a := range occs {
		for _, b := range occs[i+1:] {
			if !b.Start.Before(a.End()) {
				break
			}
			result.Conflicts = append(result.Conflicts, Conflict{
				Type: constants.ConflictOverlappingOccurrences,
				Description: fmt.Sprintf("Events overlap on %s: \"%s\" (%s) and \"%s\" (%s)",
					a.Start.Format(constants.DateFormat), a.Event.Title, timeRange(a), b.Event.Title, timeRange(b)),
				Date:      a.Start.Format(constants.DateFormat),
				Items:     []string{a.Event.Title, b.Event.Title},
				TimeRange: fmt.Sprintf("%s-%s", b.Start.Format(constants.TimeFormat), earliest(a.End(), b.End()).Format(constants.TimeFormat)),
				EventIDs:  []string{a.Event.ID, b.Event.ID},
			})
		}
	}

	for _, o := range occs {
		if v.fitsDay(o) {
			continue
		}
		result.Conflicts = append(result.Conflicts, Conflict{
			Type: constants.ConflictExceedsDayWindow,
			Description: fmt.Sprintf("Event \"%s\" on %s (%s) is outside the day window %s-%s",
				o.Event.Title, o.Start.Format(constants.DateFormat), timeRange(o), clock(v.dayStart), clock(v.dayEnd)),
			Date:      o.Start.Format(constants.DateFormat),
			Items:     []string{o.Event.Title},
			TimeRange: timeRange(o),
			EventIDs:  []string{o.Event.ID},
		})
	}

	return result
}

func (v *Validator) fitsDay(o models.Occurrence) bool {
	midnight := time.Date(o.Start.Year(), o.Start.Month(), o.Start.Day(), 0, 0, 0, 0, time.UTC)
	start := int(o.Start.Sub(midnight).Minutes())
	end := int(o.End().Sub(midnight).Minutes())
	return start >= v.dayStart && end <= v.dayEnd
}

func timeRange(o models.Occurrence) string {
	return fmt.Sprintf("%s-%s", o.Start.Format(constants.TimeFormat), o.End().Format(constants.TimeFormat))
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
