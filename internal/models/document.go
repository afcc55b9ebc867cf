package models

import (
	"bytes"
	"encoding/json"
	"slices"
	"time"
)

// Calendar is the in-scope subtree of the persisted document.
type Calendar struct {
	Events        []Event
	Types         []EventType
	LastWeekStart *time.Time
}

type calendarJSON struct {
	Events        []Event     `json:"events"`
	Types         []EventType `json:"types"`
	LastWeekStart *string     `json:"lastWeekStart"`
}

func (c Calendar) MarshalJSON() ([]byte, error) {
	out := calendarJSON{
		Events: c.Events,
		Types:  c.Types,
	}
	if out.Events == nil {
		out.Events = []Event{}
	}
	if out.Types == nil {
		out.Types = []EventType{}
	}
	if c.LastWeekStart != nil && !c.LastWeekStart.IsZero() {
		s := FormatWallClock(*c.LastWeekStart)
		out.LastWeekStart = &s
	}
	return json.Marshal(out)
}

func (c *Calendar) UnmarshalJSON(data []byte) error {
	var raw calendarJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Events = raw.Events
	c.Types = raw.Types
	c.LastWeekStart = nil
	if raw.LastWeekStart != nil {
		if t, err := ParseWallClock(*raw.LastWeekStart); err == nil {
			c.LastWeekStart = &t
		}
	}
	return nil
}

// FindEvent returns the index of the event with the given id, or -1.
func (c Calendar) FindEvent(id string) int {
	for i := range c.Events {
		if c.Events[i].ID == id {
			return i
		}
	}
	return -1
}

// FindType returns the index of the type with the given id, or -1.
func (c Calendar) FindType(id string) int {
	for i := range c.Types {
		if c.Types[i].ID == id {
			return i
		}
	}
	return -1
}

// Document is the persisted root. Only the calendar subtree is interpreted;
// the sibling subtrees and any unknown top-level keys are carried as raw JSON.
type Document struct {
	StoragePath string
	Calendar    Calendar
	Mindmap     json.RawMessage
	Todo        json.RawMessage
	Gantt       json.RawMessage
	Tabs        json.RawMessage
	Extra       map[string]json.RawMessage
}

// Known top-level document keys.
const (
	KeyStoragePath = "storagePath"
	KeyCalendar    = "calendar"
	KeyMindmap     = "mindmap"
	KeyTodo        = "todo"
	KeyGantt       = "gantt"
	KeyTabs        = "tabs"
)

// NewDocument returns an empty document with every subtree defaulted.
func NewDocument() Document {
	return Document{
		Calendar: Calendar{
			Events: []Event{},
			Types:  []EventType{},
		},
		Mindmap: json.RawMessage(`{"maps":[]}`),
		Todo:    json.RawMessage(`{"blocks":[]}`),
		Gantt:   json.RawMessage(`{"tasks":[]}`),
		Tabs:    json.RawMessage(`{}`),
	}
}

// MarshalJSON renders the document with keys in sorted order, so two equal
// documents always produce identical bytes.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.Extra)+6)
	for k, v := range d.Extra {
		out[k] = v
	}

	sp, err := json.Marshal(d.StoragePath)
	if err != nil {
		return nil, err
	}
	out[KeyStoragePath] = sp

	cal, err := json.Marshal(d.Calendar)
	if err != nil {
		return nil, err
	}
	out[KeyCalendar] = cal

	for key, raw := range map[string]json.RawMessage{
		KeyMindmap: d.Mindmap,
		KeyTodo:    d.Todo,
		KeyGantt:   d.Gantt,
		KeyTabs:    d.Tabs,
	} {
		if len(raw) > 0 {
			out[key] = raw
		}
	}
	return json.Marshal(out)
}

// Clone returns a copy that shares no mutable state with d.
func (d Document) Clone() Document {
	c := d
	c.Calendar.Events = slices.Clone(d.Calendar.Events)
	c.Calendar.Types = slices.Clone(d.Calendar.Types)
	if d.Calendar.LastWeekStart != nil {
		t := *d.Calendar.LastWeekStart
		c.Calendar.LastWeekStart = &t
	}
	c.Mindmap = cloneRaw(d.Mindmap)
	c.Todo = cloneRaw(d.Todo)
	c.Gantt = cloneRaw(d.Gantt)
	c.Tabs = cloneRaw(d.Tabs)
	if d.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(d.Extra))
		for k, v := range d.Extra {
			c.Extra[k] = cloneRaw(v)
		}
	}
	return c
}

func cloneRaw(r json.RawMessage) json.RawMessage {
	if r == nil {
		return nil
	}
	return bytes.Clone(r)
}
