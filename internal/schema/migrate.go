// Package schema turns any loaded or imported document into the canonical
// document shape. It never fails: unusable input is repaired or replaced by
// defaults and the repairs are reported as warnings.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/models"
)

// Status tells whether a document needed lossy repairs.
type Status int

const (
	StatusOK Status = iota
	StatusRecovered
)

func (s Status) String() string {
	if s == StatusRecovered {
		return "recovered"
	}
	return "ok"
}

// Result is the outcome of a migration. Status is StatusRecovered exactly
// when Warnings is non-empty.
type Result struct {
	Document models.Document
	Status   Status
	Warnings []string
}

type migrator struct {
	warnings []string
	newID    func() string
}

func (m *migrator) warnf(format string, args ...any) {
	m.warnings = append(m.warnings, fmt.Sprintf(format, args...))
}

func (m *migrator) result(doc models.Document) Result {
	r := Result{Document: doc, Warnings: m.warnings}
	if len(m.warnings) > 0 {
		r.Status = StatusRecovered
	}
	return r
}

// Migrate decodes raw document bytes of any known shape.
func Migrate(data []byte) Result {
	return migrateWith(data, uuid.NewString)
}

// Normalize re-validates an in-memory document.
func Normalize(doc models.Document) Result {
	data, err := json.Marshal(doc)
	if err != nil {
		m := &migrator{newID: uuid.NewString}
		m.warnf("document could not be encoded: %v", err)
		return m.result(models.NewDocument())
	}
	return Migrate(data)
}

func migrateWith(data []byte, newID func() string) Result {
	m := &migrator{newID: newID}
	doc := models.NewDocument()

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil || top == nil {
		if len(bytes.TrimSpace(data)) > 0 {
			m.warnf("document is not a JSON object, using defaults")
		}
		return m.result(doc)
	}

	for key, raw := range top {
		switch key {
		case models.KeyStoragePath:
			doc.StoragePath, _ = stringValue(raw)
		case models.KeyCalendar:
			doc.Calendar = m.calendar(raw)
		case models.KeyMindmap:
			doc.Mindmap = m.mindmap(raw)
		case models.KeyTodo:
			doc.Todo = m.object(key, raw, map[string]string{"blocks": "[]"})
		case models.KeyGantt:
			doc.Gantt = m.object(key, raw, map[string]string{"tasks": "[]"})
		case models.KeyTabs:
			doc.Tabs = m.object(key, raw, nil)
		default:
			if doc.Extra == nil {
				doc.Extra = make(map[string]json.RawMessage)
			}
			doc.Extra[key] = compact(raw)
		}
	}

	return m.result(doc)
}

func (m *migrator) calendar(raw json.RawMessage) models.Calendar {
	cal := models.Calendar{Events: []models.Event{}, Types: []models.EventType{}}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		if !isNull(raw) {
			m.warnf("calendar is not an object, using an empty calendar")
		}
		return cal
	}

	cal.Types = m.types(obj["types"])
	cal.Events = m.events(obj["events"], cal.Types)

	if ws, ok := obj["lastWeekStart"]; ok && !isNull(ws) {
		s, _ := stringValue(ws)
		if t, err := models.ParseWallClock(s); err == nil {
			cal.LastWeekStart = &t
		} else {
			m.warnf("calendar.lastWeekStart %s is not a timestamp, cleared", ws)
		}
	}
	return cal
}

func (m *migrator) array(path string, raw json.RawMessage) []json.RawMessage {
	if raw == nil || isNull(raw) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		m.warnf("%s is not an array, replaced with an empty list", path)
		return nil
	}
	return items
}

func (m *migrator) types(raw json.RawMessage) []models.EventType {
	out := []models.EventType{}
	seen := make(map[string]bool)

	for i, item := range m.array("calendar.types", raw) {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
			m.warnf("calendar.types[%d] is not an object, dropped", i)
			continue
		}

		id, _ := stringValue(obj["id"])
		if id == "" {
			id = m.newID()
		} else if seen[id] {
			m.warnf("calendar.types[%d] duplicates id %q, assigned a new id", i, id)
			id = m.newID()
		}
		seen[id] = true

		name, _ := stringValue(obj["name"])
		name = strings.TrimSpace(name)
		if name == "" {
			name = constants.TypeNamePrefix + " " + strconv.Itoa(len(out)+1)
		}

		color, _ := stringValue(obj["color"])
		c, ok := models.NormalizeColor(color)
		if !ok {
			if color != "" {
				m.warnf("calendar.types[%d] colour %q is invalid, using the default", i, color)
			}
			c = constants.DefaultEventColor
		}

		out = append(out, models.EventType{ID: id, Name: name, Color: c})
	}
	return out
}

func (m *migrator) events(raw json.RawMessage, types []models.EventType) []models.Event {
	out := []models.Event{}
	seen := make(map[string]bool)
	typeColor := make(map[string]string, len(types))
	for _, t := range types {
		typeColor[t.ID] = t.Color
	}

	for i, item := range m.array("calendar.events", raw) {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
			m.warnf("calendar.events[%d] is not an object, dropped", i)
			continue
		}

		id, _ := stringValue(obj["id"])
		if id == "" {
			id = m.newID()
		} else if seen[id] {
			m.warnf("calendar.events[%d] duplicates id %q, assigned a new id", i, id)
			id = m.newID()
		}
		seen[id] = true

		title, _ := stringValue(obj["title"])

		var start time.Time
		if s, _ := stringValue(obj["start"]); s != "" {
			t, err := models.ParseWallClock(s)
			if err != nil {
				m.warnf("calendar.events[%d] start %q is not a timestamp", i, s)
			}
			start = t
		}

		duration := m.duration(i, obj["duration"])

		rec := constants.RecurrenceNone
		if s, _ := stringValue(obj["recurrence"]); s != "" {
			r, ok := models.ParseRecurrence(s)
			if !ok {
				m.warnf("calendar.events[%d] recurrence %q is unknown, treated as none", i, s)
			}
			rec = r
		}

		// Dangling type references are dropped silently.
		typeID, _ := stringValue(obj["typeId"])
		if _, ok := typeColor[typeID]; !ok {
			typeID = ""
		}

		color, _ := stringValue(obj["color"])
		c, ok := models.NormalizeColor(color)
		if !ok {
			if color != "" {
				m.warnf("calendar.events[%d] colour %q is invalid", i, color)
			}
			c = constants.DefaultEventColor
			if tc, ok := typeColor[typeID]; ok {
				c = tc
			}
		}

		out = append(out, models.Event{
			ID:         id,
			Title:      models.NormalizeTitle(title),
			Start:      start,
			Duration:   duration,
			Recurrence: rec,
			TypeID:     typeID,
			Color:      c,
		})
	}
	return out
}

func (m *migrator) duration(i int, raw json.RawMessage) int {
	if raw == nil {
		return constants.DefaultDurationMin
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		v = nil
	}
	d := models.NormalizeDuration(v)

	if n, ok := v.(json.Number); ok {
		if f, err := n.Float64(); err == nil && f > 0 {
			return d
		}
	}
	if s, ok := v.(string); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && f > 0 {
			return d
		}
	}
	m.warnf("calendar.events[%d] duration %s is not a positive number, using %d", i, raw, d)
	return d
}

// object keeps a sibling subtree that must be a JSON object, adding any of
// the default keys it lacks.
func (m *migrator) object(key string, raw json.RawMessage, defaults map[string]string) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		if !isNull(raw) {
			m.warnf("%s is not an object, using defaults", key)
		}
		obj = make(map[string]json.RawMessage)
	}
	for k, v := range defaults {
		if _, ok := obj[k]; !ok {
			obj[k] = json.RawMessage(v)
		}
	}
	return encodeObject(obj)
}

// mindmap upgrades the single-map shape {nodes, links} to the multi-map
// shape {maps:[...], activeMapId}.
func (m *migrator) mindmap(raw json.RawMessage) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		if !isNull(raw) {
			m.warnf("mindmap is not an object, using defaults")
		}
		return json.RawMessage(`{"maps":[]}`)
	}

	if maps, ok := obj["maps"]; ok {
		var list []json.RawMessage
		if err := json.Unmarshal(maps, &list); err != nil {
			m.warnf("mindmap.maps is not an array, replaced with an empty list")
			obj["maps"] = json.RawMessage(`[]`)
		}
		return encodeObject(obj)
	}

	_, hasNodes := obj["nodes"]
	_, hasLinks := obj["links"]
	if !hasNodes && !hasLinks {
		obj["maps"] = json.RawMessage(`[]`)
		return encodeObject(obj)
	}

	single := obj
	if !hasNodes {
		single["nodes"] = json.RawMessage(`[]`)
	}
	if !hasLinks {
		single["links"] = json.RawMessage(`[]`)
	}
	id := m.newID()
	idJSON, _ := json.Marshal(id)
	nameJSON, _ := json.Marshal(constants.DefaultMapName)
	single["id"] = idJSON
	single["name"] = nameJSON

	return encodeObject(map[string]json.RawMessage{
		"maps":        json.RawMessage("[" + string(encodeObject(single)) + "]"),
		"activeMapId": idJSON,
	})
}

func encodeObject(obj map[string]json.RawMessage) json.RawMessage {
	for k, v := range obj {
		obj[k] = compact(v)
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}

// compact canonicalises nested JSON so repeated migrations are byte-stable.
func compact(raw json.RawMessage) json.RawMessage {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return json.RawMessage(`null`)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`null`)
	}
	return data
}

// stringValue reads a JSON string, or a number rendered as a string.
func stringValue(raw json.RawMessage) (string, bool) {
	if raw == nil {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

func isNull(raw json.RawMessage) bool {
	return raw == nil || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
