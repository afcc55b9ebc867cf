package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/julianstephens/mydesk/internal/storage"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "mydesk.db"))
	if err := s.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range map[string]*Store{"file": setupTestStore(t), "memory": NewMemory()} {
		t.Run(name, func(t *testing.T) {
			if err := s.Load(); err != nil {
				t.Fatalf("Load: %v", err)
			}

			if _, err := s.Get(ctx, "mydesk-data"); !errors.Is(err, storage.ErrNotFound) {
				t.Fatalf("Get on empty cache: %v, want ErrNotFound", err)
			}

			if err := s.Set(ctx, "mydesk-data", []byte(`{"a":1}`)); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := s.Set(ctx, "mydesk-data", []byte(`{"a":2}`)); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			got, err := s.Get(ctx, "mydesk-data")
			if err != nil || string(got) != `{"a":2}` {
				t.Fatalf("Get = %s, %v", got, err)
			}

			if err := s.Delete(ctx, "mydesk-data"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Get(ctx, "mydesk-data"); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("Get after delete: %v", err)
			}
			if err := s.Delete(ctx, "missing"); err != nil {
				t.Errorf("Delete of missing key: %v", err)
			}
			s.Close()
		})
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "mydesk.db")

	s := NewStore(path)
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := s.Set(ctx, "data-folder", []byte("/tmp/desk")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s.Close()

	reopened := NewStore(path)
	if err := reopened.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "data-folder")
	if err != nil || string(got) != "/tmp/desk" {
		t.Errorf("Get = %q, %v", got, err)
	}
}

func TestStore_LoadRequiresInit(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "absent.db"))
	if err := s.Load(); err == nil {
		t.Error("expected an error loading an uninitialised cache")
	}
}

func TestStore_SchemaVersion(t *testing.T) {
	s := setupTestStore(t)
	current, latest, err := s.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if current != latest || latest < 1 {
		t.Errorf("current %d latest %d", current, latest)
	}
	if s.GetDB() == nil {
		t.Error("GetDB returned nil after Init")
	}
}

func TestStore_InitIsRepeatable(t *testing.T) {
	s := setupTestStore(t)
	path := s.GetConfigPath()
	s.Close()

	again := NewStore(path)
	if err := again.Init(); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	again.Close()
}
