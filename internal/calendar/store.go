// Package calendar holds the canonical events and event types of a session.
package calendar

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/models"
)

// ChangeKind identifies what a mutation touched.
type ChangeKind string

const (
	EventCreated ChangeKind = "event_created"
	EventUpdated ChangeKind = "event_updated"
	EventDeleted ChangeKind = "event_deleted"
	TypeCreated  ChangeKind = "type_created"
	TypeUpdated  ChangeKind = "type_updated"
	TypeDeleted  ChangeKind = "type_deleted"
	Replaced     ChangeKind = "replaced"
)

// Change is delivered to subscribers after every successful mutation.
type Change struct {
	Kind ChangeKind
	ID   string
}

// EventInput carries raw form values for a new event. Every field is
// optional; missing or unusable values are replaced by defaults.
type EventInput struct {
	Title      string
	Start      string
	Duration   string
	Recurrence string
	TypeID     string
	Color      string
}

// EventPatch carries the fields to change on an existing event. Nil fields
// are left untouched.
type EventPatch struct {
	Title      *string
	Start      *string
	Duration   *string
	Recurrence *string
	TypeID     *string
	Color      *string
}

// Store is the in-memory source of truth for calendar data. Operations on
// unknown ids are no-ops.
type Store struct {
	mu  sync.Mutex
	cal models.Calendar

	subMu   sync.Mutex
	subs    map[int]func(Change)
	nextSub int

	newID func() string
	now   func() time.Time
}

// New creates a store holding a copy of cal.
func New(cal models.Calendar) *Store {
	s := &Store{
		subs:  make(map[int]func(Change)),
		newID: uuid.NewString,
		now:   models.Now,
	}
	s.cal = cloneCalendar(cal)
	return s
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(c Change) {
	s.subMu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// Snapshot returns a copy of the current calendar.
func (s *Store) Snapshot() models.Calendar {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCalendar(s.cal)
}

// Replace swaps the whole calendar, as a full-document import does.
func (s *Store) Replace(cal models.Calendar) {
	s.mu.Lock()
	s.cal = cloneCalendar(cal)
	s.mu.Unlock()
	s.notify(Change{Kind: Replaced})
}

// Events returns a copy of all events.
func (s *Store) Events() []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Event{}, s.cal.Events...)
}

// Types returns a copy of all event types.
func (s *Store) Types() []models.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.EventType{}, s.cal.Types...)
}

func (s *Store) Event(id string) (models.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.cal.FindEvent(id); i >= 0 {
		return s.cal.Events[i], true
	}
	return models.Event{}, false
}

func (s *Store) Type(id string) (models.EventType, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.cal.FindType(id); i >= 0 {
		return s.cal.Types[i], true
	}
	return models.EventType{}, false
}

// SetLastWeekStart records the week the user was last looking at.
func (s *Store) SetLastWeekStart(weekStart time.Time) {
	s.mu.Lock()
	ws := weekStart
	s.cal.LastWeekStart = &ws
	s.mu.Unlock()
}

// CreateEvent appends a new event built from in. Color resolves as explicit
// colour, then the type's colour, then the default.
func (s *Store) CreateEvent(in EventInput) models.Event {
	s.mu.Lock()
	start, err := models.ParseWallClock(in.Start)
	if err != nil {
		start = s.now().Truncate(time.Hour)
	}
	rec, _ := models.ParseRecurrence(in.Recurrence)

	ev := models.Event{
		ID:         s.newID(),
		Title:      models.NormalizeTitle(in.Title),
		Start:      start,
		Duration:   models.NormalizeDuration(in.Duration),
		Recurrence: rec,
		Color:      constants.DefaultEventColor,
	}
	if i := s.cal.FindType(strings.TrimSpace(in.TypeID)); i >= 0 {
		ev.TypeID = s.cal.Types[i].ID
		ev.Color = s.cal.Types[i].Color
	}
	if c, ok := models.NormalizeColor(in.Color); ok {
		ev.Color = c
	}

	s.cal.Events = append(s.cal.Events, ev)
	s.mu.Unlock()

	s.notify(Change{Kind: EventCreated, ID: ev.ID})
	return ev
}

// UpdateEvent merges p into the event with the given id. Unusable values in
// p are corrected the same way CreateEvent corrects them, except that an
// unparsable start keeps the current one.
func (s *Store) UpdateEvent(id string, p EventPatch) (models.Event, bool) {
	s.mu.Lock()
	i := s.cal.FindEvent(id)
	if i < 0 {
		s.mu.Unlock()
		return models.Event{}, false
	}
	ev := s.cal.Events[i]

	if p.Title != nil {
		ev.Title = models.NormalizeTitle(*p.Title)
	}
	if p.Start != nil {
		if start, err := models.ParseWallClock(*p.Start); err == nil {
			ev.Start = start
		}
	}
	if p.Duration != nil {
		ev.Duration = models.NormalizeDuration(*p.Duration)
	}
	if p.Recurrence != nil {
		ev.Recurrence, _ = models.ParseRecurrence(*p.Recurrence)
	}
	if p.TypeID != nil {
		ev.TypeID = ""
		if ti := s.cal.FindType(strings.TrimSpace(*p.TypeID)); ti >= 0 {
			ev.TypeID = s.cal.Types[ti].ID
			ev.Color = s.cal.Types[ti].Color
		}
	}
	if p.Color != nil {
		if c, ok := models.NormalizeColor(*p.Color); ok {
			ev.Color = c
		}
	}

	s.cal.Events[i] = ev
	s.mu.Unlock()

	s.notify(Change{Kind: EventUpdated, ID: id})
	return ev, true
}

// MoveEvent sets a new anchor start, as a drag does.
func (s *Store) MoveEvent(id string, start time.Time) bool {
	s.mu.Lock()
	i := s.cal.FindEvent(id)
	if i < 0 || start.IsZero() {
		s.mu.Unlock()
		return false
	}
	s.cal.Events[i].Start = start
	s.mu.Unlock()

	s.notify(Change{Kind: EventUpdated, ID: id})
	return true
}

// ResizeEvent sets a new duration in minutes, as a resize does.
func (s *Store) ResizeEvent(id string, minutes int) bool {
	s.mu.Lock()
	i := s.cal.FindEvent(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.cal.Events[i].Duration = models.NormalizeDuration(minutes)
	s.mu.Unlock()

	s.notify(Change{Kind: EventUpdated, ID: id})
	return true
}

// DeleteEvent removes the event. Types are unaffected.
func (s *Store) DeleteEvent(id string) bool {
	s.mu.Lock()
	i := s.cal.FindEvent(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.cal.Events = append(s.cal.Events[:i], s.cal.Events[i+1:]...)
	s.mu.Unlock()

	s.notify(Change{Kind: EventDeleted, ID: id})
	return true
}

// CreateType appends a new event type. A blank name becomes "Type N" and an
// invalid colour becomes the default.
func (s *Store) CreateType(name, color string) models.EventType {
	s.mu.Lock()
	et := models.EventType{
		ID:    s.newID(),
		Name:  typeName(name, len(s.cal.Types)),
		Color: constants.DefaultEventColor,
	}
	if c, ok := models.NormalizeColor(color); ok {
		et.Color = c
	}
	s.cal.Types = append(s.cal.Types, et)
	s.mu.Unlock()

	s.notify(Change{Kind: TypeCreated, ID: et.ID})
	return et
}

func (s *Store) RenameType(id, name string) bool {
	s.mu.Lock()
	i := s.cal.FindType(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.cal.Types[i].Name = typeName(name, i)
	s.mu.Unlock()

	s.notify(Change{Kind: TypeUpdated, ID: id})
	return true
}

// RecolorType changes a type's colour and carries the change over to linked
// events still showing the previous colour. Events whose colour was changed
// independently keep it.
func (s *Store) RecolorType(id, color string) bool {
	c, ok := models.NormalizeColor(color)
	if !ok {
		return false
	}

	s.mu.Lock()
	i := s.cal.FindType(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	prev := s.cal.Types[i].Color
	s.cal.Types[i].Color = c
	for j := range s.cal.Events {
		if s.cal.Events[j].TypeID == id && s.cal.Events[j].Color == prev {
			s.cal.Events[j].Color = c
		}
	}
	s.mu.Unlock()

	s.notify(Change{Kind: TypeUpdated, ID: id})
	return true
}

// DeleteType removes a type and clears it from every referencing event.
// Event colours are kept as they are.
func (s *Store) DeleteType(id string) bool {
	s.mu.Lock()
	i := s.cal.FindType(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.cal.Types = append(s.cal.Types[:i], s.cal.Types[i+1:]...)
	for j := range s.cal.Events {
		if s.cal.Events[j].TypeID == id {
			s.cal.Events[j].TypeID = ""
		}
	}
	s.mu.Unlock()

	s.notify(Change{Kind: TypeDeleted, ID: id})
	return true
}

// typeName trims name, falling back to the 1-based positional placeholder.
func typeName(name string, index int) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return constants.TypeNamePrefix + " " + strconv.Itoa(index+1)
	}
	return name
}

func cloneCalendar(cal models.Calendar) models.Calendar {
	out := models.Calendar{
		Events: append([]models.Event{}, cal.Events...),
		Types:  append([]models.EventType{}, cal.Types...),
	}
	if cal.LastWeekStart != nil {
		ws := *cal.LastWeekStart
		out.LastWeekStart = &ws
	}
	return out
}
