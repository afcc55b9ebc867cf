package models

import (
	"encoding/json"
	"time"

	"github.com/julianstephens/mydesk/internal/constants"
)

// Event is a single schedulable item. Start is the anchor occurrence.
type Event struct {
	ID         string                   `json:"id"`
	Title      string                   `json:"title"`
	Start      time.Time                `json:"start"`
	Duration   int                      `json:"duration"` // minutes
	Recurrence constants.RecurrenceType `json:"recurrence"`
	TypeID     string                   `json:"typeId"`
	Color      string                   `json:"color"`
}

type eventJSON struct {
	ID         string                   `json:"id"`
	Title      string                   `json:"title"`
	Start      string                   `json:"start"`
	Duration   int                      `json:"duration"`
	Recurrence constants.RecurrenceType `json:"recurrence"`
	TypeID     string                   `json:"typeId"`
	Color      string                   `json:"color"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJSON{
		ID:         e.ID,
		Title:      e.Title,
		Start:      FormatWallClock(e.Start),
		Duration:   e.Duration,
		Recurrence: e.Recurrence,
		TypeID:     e.TypeID,
		Color:      e.Color,
	})
}

// UnmarshalJSON decodes the canonical shape. An unparsable start is kept as
// the zero time; loose documents go through the schema package instead.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, _ := ParseWallClock(raw.Start)
	*e = Event{
		ID:         raw.ID,
		Title:      raw.Title,
		Start:      start,
		Duration:   raw.Duration,
		Recurrence: raw.Recurrence,
		TypeID:     raw.TypeID,
		Color:      raw.Color,
	}
	return nil
}

// End returns the wall-clock end of the anchor occurrence.
func (e Event) End() time.Time {
	return e.Start.Add(time.Duration(e.Duration) * time.Minute)
}

// IsRecurring reports whether the event repeats.
func (e Event) IsRecurring() bool {
	return e.Recurrence != constants.RecurrenceNone && e.Recurrence != ""
}

// EventType is a named colour category.
type EventType struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Occurrence is an event materialised on one concrete date. Occurrences are
// derived on demand and never persisted.
type Occurrence struct {
	Start    time.Time
	Duration int
	Event    Event
}

func (o Occurrence) End() time.Time {
	return o.Start.Add(time.Duration(o.Duration) * time.Minute)
}
