package desk

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/mydesk/internal/calendar"
	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/models"
	"github.com/julianstephens/mydesk/internal/persist"
	"github.com/julianstephens/mydesk/internal/schema"
	"github.com/julianstephens/mydesk/internal/storage/memory"
)

var (
	fixedNow  = time.Date(2026, 10, 15, 10, 30, 0, 0, time.UTC)
	thisWeek  = time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	nextWeek  = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	ctxBg     = context.Background()
	clockFunc = func() time.Time { return fixedNow }
)

func openDesk(t *testing.T, cache *memory.Cache, opts Options) *Desk {
	t.Helper()
	if opts.Now == nil {
		opts.Now = clockFunc
	}
	gw := persist.New(cache, persist.Options{QuietPeriod: time.Hour})
	d, err := Open(ctxBg, gw, opts)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = d.Close(ctxBg) })
	return d
}

func cached(t *testing.T, cache *memory.Cache) models.Document {
	t.Helper()
	data, err := cache.Get(ctxBg, constants.DataKey)
	if err != nil {
		t.Fatalf("document not cached: %v", err)
	}
	return schema.Migrate(data).Document
}

func seed(t *testing.T, cache *memory.Cache, raw string) {
	t.Helper()
	if err := cache.Set(ctxBg, constants.DataKey, []byte(raw)); err != nil {
		t.Fatal(err)
	}
}

func TestOpenStartsOnCurrentWeek(t *testing.T) {
	d := openDesk(t, memory.NewCache(), Options{})

	if got := d.State().WeekStart; !got.Equal(thisWeek) {
		t.Errorf("WeekStart = %v, want %v", got, thisWeek)
	}
	if d.Source() != persist.SourceDefaults {
		t.Errorf("Source = %s, want defaults", d.Source())
	}
}

func TestOpenResumesLastWeek(t *testing.T) {
	cache := memory.NewCache()
	seed(t, cache, `{"calendar":{"events":[],"types":[],"lastWeekStart":"2026-03-04T00:00"}}`)
	d := openDesk(t, cache, Options{})

	want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if got := d.State().WeekStart; !got.Equal(want) {
		t.Errorf("WeekStart = %v, want %v", got, want)
	}
}

func TestMutationsSaveWholeDocument(t *testing.T) {
	cache := memory.NewCache()
	seed(t, cache, `{"storagePath":"Desk","calendar":{"events":[]},"todo":{"blocks":[{"id":"b1","title":"keep me"}]}}`)
	d := openDesk(t, cache, Options{})

	ev, err := d.CreateEvent(ctxBg, calendar.EventInput{Title: "Standup", Start: "2026-10-13T09:00", Duration: "30"})
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}

	doc := cached(t, cache)
	if len(doc.Calendar.Events) != 1 || doc.Calendar.Events[0].ID != ev.ID {
		t.Fatalf("cached events = %+v", doc.Calendar.Events)
	}
	if doc.StoragePath != "Desk" {
		t.Errorf("StoragePath = %q, want Desk", doc.StoragePath)
	}
	if !strings.Contains(string(doc.Todo), "keep me") {
		t.Errorf("todo subtree lost: %s", doc.Todo)
	}

	et, err := d.CreateType(ctxBg, "Meetings", "#112233")
	if err != nil {
		t.Fatal(err)
	}
	typeID := et.ID
	if _, ok, err := d.UpdateEvent(ctxBg, ev.ID, calendar.EventPatch{TypeID: &typeID}); !ok || err != nil {
		t.Fatalf("UpdateEvent() = %v, %v", ok, err)
	}
	if ok, err := d.DeleteType(ctxBg, et.ID); !ok || err != nil {
		t.Fatalf("DeleteType() = %v, %v", ok, err)
	}

	doc = cached(t, cache)
	if len(doc.Calendar.Types) != 0 {
		t.Errorf("types = %+v, want none", doc.Calendar.Types)
	}
	got := doc.Calendar.Events[0]
	if got.TypeID != "" || got.Color != "#112233" {
		t.Errorf("event after type delete = %+v, want cleared type and kept colour", got)
	}
}

func TestUnknownIDsDoNotSave(t *testing.T) {
	cache := memory.NewCache()
	d := openDesk(t, cache, Options{})

	title := "x"
	if _, ok, err := d.UpdateEvent(ctxBg, "missing", calendar.EventPatch{Title: &title}); ok || err != nil {
		t.Errorf("UpdateEvent(missing) = %v, %v", ok, err)
	}
	if ok, _ := d.DeleteEvent(ctxBg, "missing"); ok {
		t.Error("DeleteEvent(missing) reported success")
	}
	if ok, _ := d.RenameType(ctxBg, "missing", "y"); ok {
		t.Error("RenameType(missing) reported success")
	}
	if ok, _ := d.MoveEvent(ctxBg, "missing", fixedNow); ok {
		t.Error("MoveEvent(missing) reported success")
	}
	if _, err := cache.Get(ctxBg, constants.DataKey); err == nil {
		t.Error("no-op mutations should not save")
	}
}

func TestNavigationPersistsWeek(t *testing.T) {
	cache := memory.NewCache()
	d := openDesk(t, cache, Options{})

	if err := d.NextWeek(ctxBg); err != nil {
		t.Fatal(err)
	}
	doc := cached(t, cache)
	if doc.Calendar.LastWeekStart == nil || !doc.Calendar.LastWeekStart.Equal(nextWeek) {
		t.Errorf("lastWeekStart = %v, want %v", doc.Calendar.LastWeekStart, nextWeek)
	}

	if err := d.PrevWeek(ctxBg); err != nil {
		t.Fatal(err)
	}
	if err := d.PrevWeek(ctxBg); err != nil {
		t.Fatal(err)
	}
	if got := d.State().WeekStart; !got.Equal(thisWeek.AddDate(0, 0, -7)) {
		t.Errorf("WeekStart = %v", got)
	}

	if err := d.Today(ctxBg); err != nil {
		t.Fatal(err)
	}
	if got := d.State().WeekStart; !got.Equal(thisWeek) {
		t.Errorf("Today() WeekStart = %v, want %v", got, thisWeek)
	}

	if err := d.GoTo(ctxBg, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	if got := d.State().WeekStart; !got.Equal(time.Date(2026, 12, 28, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("GoTo() WeekStart = %v", got)
	}
}

func TestWeekExpandsRecurringEvents(t *testing.T) {
	d := openDesk(t, memory.NewCache(), Options{})
	if _, err := d.CreateEvent(ctxBg, calendar.EventInput{Title: "Gym", Start: "2026-09-01T18:00", Recurrence: "daily"}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.CreateEvent(ctxBg, calendar.EventInput{Title: "Later", Start: "2026-12-01T18:00"}); err != nil {
		t.Fatal(err)
	}

	occ := d.Week()
	if len(occ) != 7 {
		t.Fatalf("got %d occurrences, want 7", len(occ))
	}
	if !occ[0].Start.Equal(thisWeek.Add(18 * time.Hour)) {
		t.Errorf("first occurrence = %v", occ[0].Start)
	}
}

func TestDeleteClearsSelectionAndResize(t *testing.T) {
	d := openDesk(t, memory.NewCache(), Options{})
	ev, _ := d.CreateEvent(ctxBg, calendar.EventInput{Title: "a"})

	d.Select(ev.ID)
	d.BeginResize(ev.ID)
	if d.State().Selected != ev.ID || d.State().Resize == nil {
		t.Fatalf("state = %+v", d.State())
	}

	if ok, err := d.DeleteEvent(ctxBg, ev.ID); !ok || err != nil {
		t.Fatalf("DeleteEvent() = %v, %v", ok, err)
	}
	if s := d.State(); s.Selected != "" || s.Resize != nil {
		t.Errorf("state after delete = %+v", s)
	}

	d.Select("missing")
	if d.State().Selected != "" {
		t.Error("selecting an unknown id should clear the selection")
	}
}

func TestResize(t *testing.T) {
	cache := memory.NewCache()
	d := openDesk(t, cache, Options{})
	ev, _ := d.CreateEvent(ctxBg, calendar.EventInput{Title: "a", Duration: "60"})

	if !d.BeginResize(ev.ID) {
		t.Fatal("BeginResize() = false")
	}
	d.UpdateResize(5)
	d.UpdateResize(20)
	ok, err := d.CommitResize(ctxBg)
	if !ok || err != nil {
		t.Fatalf("CommitResize() = %v, %v", ok, err)
	}
	if got := cached(t, cache).Calendar.Events[0].Duration; got != 75 {
		t.Errorf("duration = %d, want 75", got)
	}

	d.BeginResize(ev.ID)
	d.UpdateResize(-400)
	if ok, _ := d.CommitResize(ctxBg); !ok {
		t.Fatal("shrinking resize not committed")
	}
	got, _ := d.Store().Event(ev.ID)
	if got.Duration != constants.MinDurationMin {
		t.Errorf("duration = %d, want floor %d", got.Duration, constants.MinDurationMin)
	}

	d.BeginResize(ev.ID)
	d.UpdateResize(4)
	if ok, _ := d.CommitResize(ctxBg); ok {
		t.Error("an unchanged resize should not commit")
	}

	d.BeginResize(ev.ID)
	d.UpdateResize(60)
	d.CancelResize()
	if ok, _ := d.CommitResize(ctxBg); ok {
		t.Error("a cancelled resize should not commit")
	}
}

func TestImportMerge(t *testing.T) {
	cache := memory.NewCache()
	seed(t, cache, `{"storagePath":"Mine","calendar":{"events":[{"id":"e1","title":"Mine","start":"2026-10-12T09:00","duration":60}]}}`)
	d := openDesk(t, cache, Options{
		BeforeReplace: func(models.Document) error {
			t.Error("merge must not take a replace backup")
			return nil
		},
	})

	res, err := d.Import(ctxBg, []byte(`{"storagePath":"Theirs","calendar":{"events":[
		{"id":"e1","title":"Theirs","start":"2026-10-13T09:00","duration":45,"typeId":"gone"},
		{"id":"e2","title":"Other","start":"2026-10-14T09:00","duration":30}
	]}}`), ModeMerge)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(res.Warnings) == 0 {
		t.Error("re-keying a colliding id should be reported")
	}

	doc := cached(t, cache)
	if doc.StoragePath != "Mine" {
		t.Errorf("StoragePath = %q, want Mine", doc.StoragePath)
	}
	evs := doc.Calendar.Events
	if len(evs) != 3 {
		t.Fatalf("got %d events, want 3", len(evs))
	}
	seen := map[string]bool{}
	for _, ev := range evs {
		if seen[ev.ID] {
			t.Errorf("duplicate id %s", ev.ID)
		}
		seen[ev.ID] = true
		if ev.TypeID != "" {
			t.Errorf("dangling typeId kept on %s", ev.Title)
		}
	}
	if evs[0].ID != "e1" || evs[0].Title != "Mine" {
		t.Errorf("existing event should keep its id, got %+v", evs[0])
	}
}

func TestImportMergeCollidingTypeIDs(t *testing.T) {
	cache := memory.NewCache()
	seed(t, cache, `{"calendar":{
		"types":[{"id":"t1","name":"Work","color":"#111111"}],
		"events":[{"id":"e1","title":"Standup","start":"2026-10-12T09:00","duration":15,"typeId":"t1"}]}}`)
	d := openDesk(t, cache, Options{})

	_, err := d.Import(ctxBg, []byte(`{"calendar":{
		"types":[{"id":"t1","name":"Sport","color":"#222222"}],
		"events":[{"id":"e9","title":"Run","start":"2026-10-13T07:00","duration":45,"typeId":"t1"}]}}`), ModeMerge)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	typeName := func(title string) string {
		t.Helper()
		for _, ev := range d.Store().Events() {
			if ev.Title == title {
				et, ok := d.Store().Type(ev.TypeID)
				if !ok {
					t.Fatalf("%s has dangling typeId %q", title, ev.TypeID)
				}
				return et.Name
			}
		}
		t.Fatalf("event %s missing", title)
		return ""
	}
	if got := typeName("Standup"); got != "Work" {
		t.Errorf("Standup linked to %q, want Work", got)
	}
	if got := typeName("Run"); got != "Sport" {
		t.Errorf("Run linked to %q, want Sport", got)
	}
	if n := len(d.Store().Types()); n != 2 {
		t.Fatalf("got %d types, want 2", n)
	}

	if _, err := d.DeleteType(ctxBg, "t1"); err != nil {
		t.Fatal(err)
	}
	if got := typeName("Run"); got != "Sport" {
		t.Errorf("deleting Work changed Run's type to %q", got)
	}
	for _, ev := range cached(t, cache).Calendar.Events {
		if ev.Title == "Run" && ev.Color != "#222222" {
			t.Errorf("Run color = %s, want #222222", ev.Color)
		}
	}
}

func TestImportReplace(t *testing.T) {
	cache := memory.NewCache()
	seed(t, cache, `{"calendar":{"events":[{"id":"old","title":"Old","start":"2026-10-12T09:00","duration":60}]},"todo":{"blocks":[{"id":"b1"}]}}`)

	var backedUp models.Document
	d := openDesk(t, cache, Options{
		BeforeReplace: func(doc models.Document) error {
			backedUp = doc
			return nil
		},
	})
	d.Select("old")

	_, err := d.Import(ctxBg, []byte(`{"calendar":{"events":[{"id":"new","title":"New","start":"2026-05-06T09:00","duration":60}],"lastWeekStart":"2026-05-04T00:00"}}`), ModeReplace)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if len(backedUp.Calendar.Events) != 1 || backedUp.Calendar.Events[0].ID != "old" {
		t.Errorf("backup got %+v", backedUp.Calendar.Events)
	}
	doc := cached(t, cache)
	if len(doc.Calendar.Events) != 1 || doc.Calendar.Events[0].ID != "new" {
		t.Errorf("events = %+v", doc.Calendar.Events)
	}
	if strings.Contains(string(doc.Todo), "b1") {
		t.Error("replace should not keep the old todo subtree")
	}
	if want := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC); !d.State().WeekStart.Equal(want) {
		t.Errorf("WeekStart = %v, want %v", d.State().WeekStart, want)
	}
	if d.State().Selected != "" {
		t.Error("replace should clear the selection")
	}
}

func TestImportReplaceWithoutWeekUsesToday(t *testing.T) {
	cache := memory.NewCache()
	seed(t, cache, `{"calendar":{"events":[],"lastWeekStart":"2025-01-06T00:00"}}`)
	d := openDesk(t, cache, Options{})

	if _, err := d.Import(ctxBg, []byte(`{"calendar":{"events":[]}}`), ModeReplace); err != nil {
		t.Fatal(err)
	}
	if !d.State().WeekStart.Equal(thisWeek) {
		t.Errorf("WeekStart = %v, want %v", d.State().WeekStart, thisWeek)
	}
}

func TestImportRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		opts Options
		want error
	}{
		{name: "not json", data: "hello", want: ErrInvalidImport},
		{name: "array root", data: "[]", want: ErrInvalidImport},
		{name: "empty", data: "  ", want: ErrInvalidImport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := openDesk(t, memory.NewCache(), tt.opts)
			if _, err := d.Import(ctxBg, []byte(tt.data), ModeReplace); !errors.Is(err, tt.want) {
				t.Errorf("Import() error = %v, want %v", err, tt.want)
			}
		})
	}

	t.Run("backup failure aborts replace", func(t *testing.T) {
		cache := memory.NewCache()
		d := openDesk(t, cache, Options{BeforeReplace: func(models.Document) error { return errors.New("disk full") }})
		if _, err := d.CreateEvent(ctxBg, calendar.EventInput{Title: "keep"}); err != nil {
			t.Fatal(err)
		}
		if _, err := d.Import(ctxBg, []byte(`{}`), ModeReplace); err == nil {
			t.Fatal("Import() should fail when the backup fails")
		}
		if len(d.Store().Events()) != 1 {
			t.Error("document replaced despite failed backup")
		}
	})
}

func TestParseImportMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ImportMode
		wantErr bool
	}{
		{"", ModeMerge, false},
		{"merge", ModeMerge, false},
		{" Replace ", ModeReplace, false},
		{"overwrite", "", true},
	}
	for _, tt := range tests {
		got, err := ParseImportMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseImportMode(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestLinkFolder(t *testing.T) {
	cache := memory.NewCache()
	d := openDesk(t, cache, Options{})
	if _, err := d.CreateEvent(ctxBg, calendar.EventInput{Title: "a"}); err != nil {
		t.Fatal(err)
	}

	folder := memory.NewFolder()
	if err := d.LinkFolder(ctxBg, folder); err != nil {
		t.Fatalf("LinkFolder() error = %v", err)
	}

	writes := folder.Writes()
	if len(writes) != 1 || writes[0].Name != constants.DataFileName {
		t.Fatalf("writes = %d, want one %s", len(writes), constants.DataFileName)
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(writes[0].Data, &top); err != nil {
		t.Fatal(err)
	}
	if string(top["storagePath"]) != `"folder"` {
		t.Errorf("storagePath = %s, want \"folder\"", top["storagePath"])
	}
	if path, err := persist.GrantedPath(ctxBg, cache); err != nil || path != folder.Path() {
		t.Errorf("GrantedPath() = %q, %v", path, err)
	}

	if err := d.UnlinkFolder(ctxBg); err != nil {
		t.Fatal(err)
	}
	if _, err := d.CreateEvent(ctxBg, calendar.EventInput{Title: "b"}); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(ctxBg); err != nil {
		t.Fatal(err)
	}
	if len(folder.Writes()) != 1 {
		t.Error("unlinked folder should not be written")
	}
}
