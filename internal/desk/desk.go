// Package desk wires the event store, the session state and the persistence
// gateway into one application service. Every mutation updates the store and
// then saves the whole document.
package desk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/mydesk/internal/calendar"
	"github.com/julianstephens/mydesk/internal/logger"
	"github.com/julianstephens/mydesk/internal/models"
	"github.com/julianstephens/mydesk/internal/persist"
	"github.com/julianstephens/mydesk/internal/recurrence"
	"github.com/julianstephens/mydesk/internal/schema"
	"github.com/julianstephens/mydesk/internal/session"
	"github.com/julianstephens/mydesk/internal/storage"
)

// ErrInvalidImport is returned when imported bytes are not a JSON object.
var ErrInvalidImport = errors.New("imported file is not a valid document")

// ImportMode selects how an imported document is combined with the current one.
type ImportMode string

const (
	// ModeReplace swaps the whole document.
	ModeReplace ImportMode = "replace"
	// ModeMerge appends the imported events and types.
	ModeMerge ImportMode = "merge"
)

// ParseImportMode accepts "merge" or "replace", case-insensitively.
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeReplace:
		return ModeReplace, nil
	case ModeMerge, "":
		return ModeMerge, nil
	}
	return "", fmt.Errorf("unknown import mode %q (want merge or replace)", s)
}

// Options configures Open.
type Options struct {
	// Now returns the current wall-clock time. Defaults to models.Now.
	Now func() time.Time
	// BeforeReplace receives the current document before an import or
	// restore replaces it. A non-nil error aborts the replacement.
	BeforeReplace func(models.Document) error
}

// Desk is the application service behind every command.
type Desk struct {
	gw    *persist.Gateway
	store *calendar.Store
	opts  Options

	mu    sync.Mutex
	doc   models.Document
	state session.State

	source   persist.Source
	warnings []string
	unsub    func()
}

// Open loads the document through gw and starts a session on the last
// viewed week.
func Open(ctx context.Context, gw *persist.Gateway, opts Options) (*Desk, error) {
	if opts.Now == nil {
		opts.Now = models.Now
	}
	res, err := gw.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	d := &Desk{
		gw:       gw,
		store:    calendar.New(res.Document.Calendar),
		opts:     opts,
		doc:      res.Document,
		state:    session.New(opts.Now(), res.Document.Calendar.LastWeekStart),
		source:   res.Source,
		warnings: res.Warnings,
	}
	d.unsub = d.store.Subscribe(d.onChange)
	logger.Debug("desk opened", "source", res.Source, "events", len(res.Document.Calendar.Events))
	return d, nil
}

func (d *Desk) onChange(c calendar.Change) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch c.Kind {
	case calendar.EventDeleted:
		d.state = d.state.Forget(c.ID)
	case calendar.Replaced:
		d.state = d.state.ClearSelection().CancelResize()
	}
}

// Store exposes the event store for read access.
func (d *Desk) Store() *calendar.Store { return d.store }

// Source reports where the document was loaded from.
func (d *Desk) Source() persist.Source { return d.source }

// Warnings returns the repairs made to the loaded document.
func (d *Desk) Warnings() []string { return append([]string(nil), d.warnings...) }

// Document returns the full document with the current calendar.
func (d *Desk) Document() models.Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.documentLocked()
}

func (d *Desk) documentLocked() models.Document {
	doc := d.doc.Clone()
	doc.Calendar = d.store.Snapshot()
	return doc
}

func (d *Desk) save(ctx context.Context) error {
	return d.gw.Save(ctx, d.Document())
}

// State returns the current session state.
func (d *Desk) State() session.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Week returns the occurrences of the displayed week.
func (d *Desk) Week() []models.Occurrence {
	return recurrence.ExpandWeek(d.store.Events(), d.State().WeekStart)
}

func (d *Desk) navigate(ctx context.Context, fn func(session.State) session.State) error {
	d.mu.Lock()
	d.state = fn(d.state)
	ws := d.state.WeekStart
	d.mu.Unlock()

	d.store.SetLastWeekStart(ws)
	return d.save(ctx)
}

func (d *Desk) NextWeek(ctx context.Context) error {
	return d.navigate(ctx, session.State.NextWeek)
}

func (d *Desk) PrevWeek(ctx context.Context) error {
	return d.navigate(ctx, session.State.PrevWeek)
}

// Today shows the week containing the current time.
func (d *Desk) Today(ctx context.Context) error {
	now := d.opts.Now()
	return d.navigate(ctx, func(s session.State) session.State { return s.Today(now) })
}

// GoTo shows the week containing date.
func (d *Desk) GoTo(ctx context.Context, date time.Time) error {
	return d.navigate(ctx, func(s session.State) session.State { return s.GoTo(date) })
}

func (d *Desk) CreateEvent(ctx context.Context, in calendar.EventInput) (models.Event, error) {
	ev := d.store.CreateEvent(in)
	return ev, d.save(ctx)
}

// UpdateEvent reports false without saving when id is unknown.
func (d *Desk) UpdateEvent(ctx context.Context, id string, p calendar.EventPatch) (models.Event, bool, error) {
	ev, ok := d.store.UpdateEvent(id, p)
	if !ok {
		return ev, false, nil
	}
	return ev, true, d.save(ctx)
}

func (d *Desk) MoveEvent(ctx context.Context, id string, start time.Time) (bool, error) {
	if !d.store.MoveEvent(id, start) {
		return false, nil
	}
	return true, d.save(ctx)
}

func (d *Desk) DeleteEvent(ctx context.Context, id string) (bool, error) {
	if !d.store.DeleteEvent(id) {
		return false, nil
	}
	return true, d.save(ctx)
}

func (d *Desk) CreateType(ctx context.Context, name, color string) (models.EventType, error) {
	et := d.store.CreateType(name, color)
	return et, d.save(ctx)
}

func (d *Desk) RenameType(ctx context.Context, id, name string) (bool, error) {
	if !d.store.RenameType(id, name) {
		return false, nil
	}
	return true, d.save(ctx)
}

func (d *Desk) RecolorType(ctx context.Context, id, color string) (bool, error) {
	if !d.store.RecolorType(id, color) {
		return false, nil
	}
	return true, d.save(ctx)
}

func (d *Desk) DeleteType(ctx context.Context, id string) (bool, error) {
	if !d.store.DeleteType(id) {
		return false, nil
	}
	return true, d.save(ctx)
}

// Select marks an event as selected. Unknown ids clear the selection.
func (d *Desk) Select(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.store.Event(id); !ok {
		d.state = d.state.ClearSelection()
		return
	}
	d.state = d.state.Select(id)
}

// BeginResize starts resizing the event. It reports false for unknown ids.
func (d *Desk) BeginResize(id string) bool {
	ev, ok := d.store.Event(id)
	if !ok {
		return false
	}
	d.mu.Lock()
	d.state = d.state.BeginResize(ev)
	d.mu.Unlock()
	return true
}

// UpdateResize moves the pending resize by delta minutes.
func (d *Desk) UpdateResize(delta int) {
	d.mu.Lock()
	d.state = d.state.UpdateResize(delta)
	d.mu.Unlock()
}

// CommitResize applies the pending resize. It reports false when nothing
// changed.
func (d *Desk) CommitResize(ctx context.Context) (bool, error) {
	d.mu.Lock()
	next, id, duration, ok := d.state.CommitResize()
	d.state = next
	d.mu.Unlock()

	if !ok || !d.store.ResizeEvent(id, duration) {
		return false, nil
	}
	return true, d.save(ctx)
}

func (d *Desk) CancelResize() {
	d.mu.Lock()
	d.state = d.state.CancelResize()
	d.mu.Unlock()
}

// Import combines data with the current document. Replace keeps nothing of
// the current document; merge keeps everything and appends the imported
// events and types, re-keying colliding ids.
func (d *Desk) Import(ctx context.Context, data []byte, mode ImportMode) (schema.Result, error) {
	if !isObject(data) {
		return schema.Result{}, ErrInvalidImport
	}
	incoming := schema.Migrate(data)
	for _, w := range incoming.Warnings {
		logger.Warn("import repaired", "warning", w)
	}

	switch mode {
	case ModeReplace:
		if err := d.replace(ctx, incoming.Document); err != nil {
			return incoming, err
		}
		return incoming, nil
	case ModeMerge:
		return d.merge(ctx, incoming.Document)
	}
	return incoming, fmt.Errorf("unknown import mode %q", mode)
}

func (d *Desk) merge(ctx context.Context, in models.Document) (schema.Result, error) {
	d.mu.Lock()
	cur := d.documentLocked()
	types, events := rekeyTypes(cur.Calendar.Types, in.Calendar.Types, in.Calendar.Events)
	cur.Calendar.Events = append(cur.Calendar.Events, events...)
	cur.Calendar.Types = append(cur.Calendar.Types, types...)
	if cur.StoragePath == "" {
		cur.StoragePath = in.StoragePath
	}
	merged := schema.Normalize(cur)
	d.doc = merged.Document
	d.mu.Unlock()

	for _, w := range merged.Warnings {
		logger.Info("merge adjusted", "warning", w)
	}
	d.store.Replace(merged.Document.Calendar)
	logger.Info("merged import", "events", len(in.Calendar.Events), "types", len(in.Calendar.Types))
	return merged, d.save(ctx)
}

// rekeyTypes gives incoming types whose id is already taken a fresh id and
// points the incoming events at it, so they keep their own type.
func rekeyTypes(current, types []models.EventType, events []models.Event) ([]models.EventType, []models.Event) {
	taken := make(map[string]bool, len(current)+len(types))
	for _, et := range current {
		taken[et.ID] = true
	}
	types = append([]models.EventType(nil), types...)
	events = append([]models.Event(nil), events...)

	renamed := map[string]string{}
	for i, et := range types {
		if et.ID != "" && taken[et.ID] {
			id := uuid.NewString()
			renamed[et.ID] = id
			types[i].ID = id
			logger.Info("re-keyed imported type", "name", et.Name, "from", et.ID, "to", id)
		}
		taken[types[i].ID] = true
	}
	if len(renamed) == 0 {
		return types, events
	}
	for i, ev := range events {
		if id, ok := renamed[ev.TypeID]; ok {
			events[i].TypeID = id
		}
	}
	return types, events
}

// Restore replaces the document with doc, as a backup restore does.
func (d *Desk) Restore(ctx context.Context, doc models.Document) error {
	return d.replace(ctx, doc)
}

func (d *Desk) replace(ctx context.Context, doc models.Document) error {
	if d.opts.BeforeReplace != nil {
		if err := d.opts.BeforeReplace(d.Document()); err != nil {
			return fmt.Errorf("failed to back up before replacing: %w", err)
		}
	}

	doc = doc.Clone()
	now := d.opts.Now()
	d.mu.Lock()
	d.doc = doc
	d.mu.Unlock()

	d.store.Replace(doc.Calendar)

	d.mu.Lock()
	d.state = session.New(now, doc.Calendar.LastWeekStart)
	ws := d.state.WeekStart
	d.mu.Unlock()
	d.store.SetLastWeekStart(ws)

	logger.Info("replaced document", "events", len(doc.Calendar.Events))
	return d.save(ctx)
}

// LinkFolder grants f as the external store, records its name as the
// storage path and writes the current document to it.
func (d *Desk) LinkFolder(ctx context.Context, f storage.Folder) error {
	if err := d.gw.LinkFolder(ctx, f); err != nil {
		return err
	}
	d.mu.Lock()
	d.doc.StoragePath = filepath.Base(f.Path())
	d.mu.Unlock()
	if err := d.save(ctx); err != nil {
		return err
	}
	return d.gw.Flush(ctx)
}

// UnlinkFolder stops writing to the external folder.
func (d *Desk) UnlinkFolder(ctx context.Context) error {
	return d.gw.UnlinkFolder(ctx)
}

// Close writes any pending change and detaches from the store.
func (d *Desk) Close(ctx context.Context) error {
	if d.unsub != nil {
		d.unsub()
		d.unsub = nil
	}
	return d.gw.Close(ctx)
}

func isObject(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '{' && json.Valid(data)
}
