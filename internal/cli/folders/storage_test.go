package folders

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/julianstephens/mydesk/internal/calendar"
	"github.com/julianstephens/mydesk/internal/cli/clitest"
	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/persist"
	"github.com/julianstephens/mydesk/internal/storage/memory"
)

func TestStorageLinkCmd(t *testing.T) {
	ctx, out := clitest.New(t, "")
	ctx.Desk.CreateEvent(context.Background(), calendar.EventInput{Title: "Linked"})
	dir := filepath.Join(t.TempDir(), "Desk")

	if err := (&StorageLinkCmd{Path: dir}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, constants.DataFileName))
	if err != nil {
		t.Fatalf("data file not written: %v", err)
	}
	var doc struct {
		StoragePath string `json:"storagePath"`
		Calendar    struct {
			Events []json.RawMessage `json:"events"`
		} `json:"calendar"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.StoragePath != "Desk" || len(doc.Calendar.Events) != 1 {
		t.Errorf("unexpected folder document: %+v", doc)
	}

	granted, err := persist.GrantedPath(context.Background(), ctx.Cache)
	if err != nil || granted != dir {
		t.Errorf("GrantedPath() = %q, %v; want %q", granted, err, dir)
	}
	if !strings.Contains(out.String(), "Linked "+dir) {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestStorageLinkSurvivesReopen(t *testing.T) {
	cache := memory.NewCache()
	ctx, _ := clitest.Open(t, cache, "")
	dir := t.TempDir()
	if err := (&StorageLinkCmd{Path: dir}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := ctx.Close(context.Background()); err != nil {
		t.Fatal(err)
	}

	reopened, _ := clitest.Open(t, cache, "")
	if reopened.Gateway.Folder() == nil || reopened.Gateway.Folder().Path() != dir {
		t.Errorf("folder not restored on open")
	}
	if reopened.Desk.Source() != persist.SourceFolder {
		t.Errorf("Source() = %v, want folder", reopened.Desk.Source())
	}
}

func TestStorageUnlinkCmd(t *testing.T) {
	ctx, out := clitest.New(t, "")
	if err := (&StorageUnlinkCmd{}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "No folder is linked") {
		t.Errorf("unexpected output: %q", out.String())
	}

	dir := t.TempDir()
	if err := (&StorageLinkCmd{Path: dir}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := (&StorageUnlinkCmd{}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ctx.Gateway.Folder() != nil {
		t.Error("folder still attached after unlink")
	}
	if _, err := persist.GrantedPath(context.Background(), ctx.Cache); !persist.IsNotLinked(err) {
		t.Errorf("GrantedPath() error = %v, want not linked", err)
	}
	if !strings.Contains(out.String(), "Unlinked "+dir) {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestStorageStatusCmd(t *testing.T) {
	ctx, out := clitest.New(t, "")
	if err := (&StorageStatusCmd{}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "Folder:        not linked") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	dir := t.TempDir()
	if err := (&StorageLinkCmd{Path: dir}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := (&StorageStatusCmd{}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	s := out.String()
	for _, want := range []string{"Folder:        " + dir, "✓ granted", "Data file:     " + constants.DataFileName} {
		if !strings.Contains(s, want) {
			t.Errorf("status missing %q:\n%s", want, s)
		}
	}
}
