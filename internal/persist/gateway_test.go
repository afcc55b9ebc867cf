package persist

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/models"
	"github.com/julianstephens/mydesk/internal/storage"
	"github.com/julianstephens/mydesk/internal/storage/memory"
)

type statusLog struct {
	mu   sync.Mutex
	seen []Status
}

func (l *statusLog) record(s Status) {
	l.mu.Lock()
	l.seen = append(l.seen, s)
	l.mu.Unlock()
}

func (l *statusLog) kinds() []StatusKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []StatusKind
	for _, s := range l.seen {
		out = append(out, s.Kind)
	}
	return out
}

func newTestGateway(t *testing.T, quiet time.Duration) (*Gateway, *memory.Cache, *statusLog) {
	t.Helper()
	cache := memory.NewCache()
	log := &statusLog{}
	g := New(cache, Options{QuietPeriod: quiet, OnStatus: log.record})
	return g, cache, log
}

func docWithTitle(title string) models.Document {
	doc := models.NewDocument()
	doc.Calendar.Events = []models.Event{{
		ID:         "e1",
		Title:      title,
		Start:      time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Duration:   60,
		Recurrence: constants.RecurrenceNone,
		Color:      constants.DefaultEventColor,
	}}
	return doc
}

func encode(t *testing.T, doc models.Document) []byte {
	t.Helper()
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("failed to encode document: %v", err)
	}
	return data
}

func TestLoadDefaultsWhenEmpty(t *testing.T) {
	g, _, _ := newTestGateway(t, time.Hour)

	res, err := g.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Source != SourceDefaults {
		t.Errorf("Source = %s, want %s", res.Source, SourceDefaults)
	}
	if len(res.Document.Calendar.Events) != 0 {
		t.Errorf("expected no events, got %d", len(res.Document.Calendar.Events))
	}
}

func TestLoadPrefersFolder(t *testing.T) {
	ctx := context.Background()
	g, cache, _ := newTestGateway(t, time.Hour)

	if err := cache.Set(ctx, constants.DataKey, encode(t, docWithTitle("from cache"))); err != nil {
		t.Fatal(err)
	}
	folder := memory.NewFolder()
	external := docWithTitle("from folder")
	external.Calendar.Types = []models.EventType{{ID: "t1", Name: "Lab", Color: "#112233"}}
	folder.Put(constants.DataFileName, encode(t, external))
	g.SetFolder(folder)

	res, err := g.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Source != SourceFolder {
		t.Fatalf("Source = %s, want %s", res.Source, SourceFolder)
	}
	events := res.Document.Calendar.Events
	if len(events) != 1 || events[0].Title != "from folder" {
		t.Errorf("events = %+v, want the folder document only", events)
	}
	if len(res.Document.Calendar.Types) != 1 {
		t.Errorf("types = %+v, want the folder types", res.Document.Calendar.Types)
	}

	// The cache now mirrors the folder document.
	cached, err := cache.Get(ctx, constants.DataKey)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(cached), "from folder") {
		t.Errorf("cache = %s, want the folder document", cached)
	}
}

func TestLoadFallsBackToCache(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(f *memory.Folder)
	}{
		{name: "file missing", setup: func(*memory.Folder) {}},
		{name: "file corrupt", setup: func(f *memory.Folder) {
			f.Put(constants.DataFileName, []byte("{not json"))
		}},
		{name: "file unreadable", setup: func(f *memory.Folder) {
			f.Put(constants.DataFileName, []byte("{}"))
			f.ReadErr = errors.New("disk gone")
		}},
		{name: "permission refused", setup: func(f *memory.Folder) {
			f.Put(constants.DataFileName, []byte("{}"))
			f.Revoke()
			f.Grantable = false
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, cache, _ := newTestGateway(t, time.Hour)
			if err := cache.Set(ctx, constants.DataKey, encode(t, docWithTitle("from cache"))); err != nil {
				t.Fatal(err)
			}
			folder := memory.NewFolder()
			tt.setup(folder)
			g.SetFolder(folder)

			res, err := g.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if res.Source != SourceCache {
				t.Fatalf("Source = %s, want %s", res.Source, SourceCache)
			}
			if got := res.Document.Calendar.Events[0].Title; got != "from cache" {
				t.Errorf("title = %q, want %q", got, "from cache")
			}
		})
	}
}

func TestLoadCorruptCacheGivesDefaults(t *testing.T) {
	ctx := context.Background()
	g, cache, _ := newTestGateway(t, time.Hour)
	if err := cache.Set(ctx, constants.DataKey, []byte("][")); err != nil {
		t.Fatal(err)
	}

	res, err := g.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Source != SourceDefaults {
		t.Errorf("Source = %s, want %s", res.Source, SourceDefaults)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a warning about the corrupt cache")
	}
}

func TestLoadRevokedPermissionForgetsGrant(t *testing.T) {
	ctx := context.Background()
	g, cache, log := newTestGateway(t, time.Hour)

	folder := memory.NewFolder()
	if err := g.LinkFolder(ctx, folder); err != nil {
		t.Fatalf("LinkFolder() error = %v", err)
	}
	folder.Revoke()
	folder.Grantable = false

	if _, err := g.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if g.Folder() != nil {
		t.Error("folder should be detached after a refused permission request")
	}
	if _, err := GrantedPath(ctx, cache); !IsNotLinked(err) {
		t.Errorf("GrantedPath() error = %v, want not found", err)
	}
	if kinds := log.kinds(); len(kinds) == 0 || kinds[0] != StatusInfo {
		t.Errorf("status kinds = %v, want an info signal", kinds)
	}
}

func TestLoadRequestsPermissionAgain(t *testing.T) {
	ctx := context.Background()
	g, _, _ := newTestGateway(t, time.Hour)

	folder := memory.NewFolder()
	folder.Put(constants.DataFileName, encode(t, docWithTitle("regranted")))
	folder.Revoke()
	g.SetFolder(folder)

	res, err := g.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Source != SourceFolder {
		t.Errorf("Source = %s, want %s", res.Source, SourceFolder)
	}
}

func TestSaveWritesCacheImmediately(t *testing.T) {
	ctx := context.Background()
	g, cache, _ := newTestGateway(t, time.Hour)
	folder := memory.NewFolder()
	g.SetFolder(folder)

	if err := g.Save(ctx, docWithTitle("now")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	cached, err := cache.Get(ctx, constants.DataKey)
	if err != nil {
		t.Fatalf("cache.Get() error = %v", err)
	}
	if !strings.Contains(string(cached), `"now"`) {
		t.Errorf("cache = %s", cached)
	}
	if n := len(folder.Writes()); n != 0 {
		t.Errorf("folder writes = %d before the quiet period, want 0", n)
	}
	if !g.Pending() {
		t.Error("expected a pending folder write")
	}
}

func TestSaveCoalescesWrites(t *testing.T) {
	ctx := context.Background()
	quiet := 50 * time.Millisecond
	g, _, _ := newTestGateway(t, quiet)
	folder := memory.NewFolder()
	g.SetFolder(folder)

	for i := 1; i <= 5; i++ {
		if err := g.Save(ctx, docWithTitle("edit "+string(rune('0'+i)))); err != nil {
			t.Fatalf("Save(%d) error = %v", i, err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(folder.Writes()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(3 * quiet)

	writes := folder.Writes()
	if len(writes) != 1 {
		t.Fatalf("folder writes = %d, want 1", len(writes))
	}
	if !strings.Contains(string(writes[0].Data), `"edit 5"`) {
		t.Errorf("written document = %s, want the fifth save", writes[0].Data)
	}
	if writes[0].Name != constants.DataFileName {
		t.Errorf("written file = %q, want %q", writes[0].Name, constants.DataFileName)
	}
}

func TestFlushWritesPendingNow(t *testing.T) {
	ctx := context.Background()
	g, _, log := newTestGateway(t, time.Hour)
	folder := memory.NewFolder()
	g.SetFolder(folder)

	for i := 0; i < 5; i++ {
		if err := g.Save(ctx, docWithTitle("draft")); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.Save(ctx, docWithTitle("final")); err != nil {
		t.Fatal(err)
	}
	if err := g.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	writes := folder.Writes()
	if len(writes) != 1 {
		t.Fatalf("folder writes = %d, want 1", len(writes))
	}
	data := string(writes[0].Data)
	if !strings.Contains(data, `"final"`) {
		t.Errorf("written document = %s", data)
	}
	if !strings.Contains(data, "\n  \"calendar\"") {
		t.Errorf("folder file should be indented with two spaces:\n%s", data)
	}
	if g.Pending() {
		t.Error("nothing should be pending after Flush")
	}

	kinds := log.kinds()
	if len(kinds) == 0 || kinds[len(kinds)-1] != StatusSuccess {
		t.Errorf("status kinds = %v, want success last", kinds)
	}
}

func TestWriteFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	g, cache, log := newTestGateway(t, time.Hour)
	folder := memory.NewFolder()
	folder.WriteErr = errors.New("quota exceeded")
	g.SetFolder(folder)

	if err := g.Save(ctx, docWithTitle("kept")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := g.Flush(ctx); err == nil {
		t.Fatal("Flush() should report the write failure")
	}

	cached, err := cache.Get(ctx, constants.DataKey)
	if err != nil || !strings.Contains(string(cached), `"kept"`) {
		t.Errorf("cache = %s, %v; want the saved document", cached, err)
	}
	kinds := log.kinds()
	if len(kinds) == 0 || kinds[len(kinds)-1] != StatusError {
		t.Errorf("status kinds = %v, want error last", kinds)
	}

	// The next save is a fresh attempt.
	folder.WriteErr = nil
	if err := g.Save(ctx, docWithTitle("retry")); err != nil {
		t.Fatal(err)
	}
	if err := g.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if n := len(folder.Writes()); n != 1 {
		t.Errorf("folder writes = %d, want 1", n)
	}
}

func TestWriteWithRevokedPermission(t *testing.T) {
	ctx := context.Background()
	g, _, _ := newTestGateway(t, time.Hour)
	folder := memory.NewFolder()
	g.SetFolder(folder)

	if err := g.Save(ctx, docWithTitle("x")); err != nil {
		t.Fatal(err)
	}
	folder.Revoke()
	err := g.Flush(ctx)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Flush() error = %v, want %v", err, ErrPermissionDenied)
	}
}

func TestSaveCacheFailure(t *testing.T) {
	g, cache, log := newTestGateway(t, time.Hour)
	cache.FailWrites = true

	if err := g.Save(context.Background(), docWithTitle("x")); err == nil {
		t.Fatal("Save() should fail when the cache rejects writes")
	}
	if kinds := log.kinds(); len(kinds) != 1 || kinds[0] != StatusError {
		t.Errorf("status kinds = %v, want one error", kinds)
	}
}

func TestSaveWithoutFolder(t *testing.T) {
	g, _, _ := newTestGateway(t, time.Hour)
	if err := g.Save(context.Background(), docWithTitle("x")); err != nil {
		t.Fatal(err)
	}
	if g.Pending() {
		t.Error("no folder write should be scheduled without a folder")
	}
}

func TestUnlinkDropsPendingWrite(t *testing.T) {
	ctx := context.Background()
	g, _, _ := newTestGateway(t, time.Hour)
	folder := memory.NewFolder()
	if err := g.LinkFolder(ctx, folder); err != nil {
		t.Fatal(err)
	}
	if err := g.Save(ctx, docWithTitle("x")); err != nil {
		t.Fatal(err)
	}
	if err := g.UnlinkFolder(ctx); err != nil {
		t.Fatal(err)
	}
	if err := g.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if n := len(folder.Writes()); n != 0 {
		t.Errorf("folder writes = %d, want 0", n)
	}
}

func TestCloseRejectsSaves(t *testing.T) {
	ctx := context.Background()
	g, _, _ := newTestGateway(t, time.Hour)
	folder := memory.NewFolder()
	g.SetFolder(folder)

	if err := g.Save(ctx, docWithTitle("last")); err != nil {
		t.Fatal(err)
	}
	if err := g.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if n := len(folder.Writes()); n != 1 {
		t.Errorf("folder writes = %d, want the pending write flushed", n)
	}
	if err := g.Save(ctx, docWithTitle("late")); !errors.Is(err, ErrClosed) {
		t.Errorf("Save() after Close error = %v, want %v", err, ErrClosed)
	}
}

func TestLinkFolderRefused(t *testing.T) {
	ctx := context.Background()
	g, cache, _ := newTestGateway(t, time.Hour)
	folder := memory.NewFolder()
	folder.Revoke()
	folder.Grantable = false

	if err := g.LinkFolder(ctx, folder); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("LinkFolder() error = %v, want %v", err, ErrPermissionDenied)
	}
	if _, err := cache.Get(ctx, constants.FolderGrantKey); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("grant should not be stored, got %v", err)
	}
}

func TestGrantedPath(t *testing.T) {
	ctx := context.Background()
	g, cache, _ := newTestGateway(t, time.Hour)
	folder := memory.NewFolder()
	if err := g.LinkFolder(ctx, folder); err != nil {
		t.Fatal(err)
	}
	path, err := GrantedPath(ctx, cache)
	if err != nil {
		t.Fatalf("GrantedPath() error = %v", err)
	}
	if path != folder.Path() {
		t.Errorf("GrantedPath() = %q, want %q", path, folder.Path())
	}
}
