package transfer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/julianstephens/mydesk/internal/calendar"
	"github.com/julianstephens/mydesk/internal/cli/clitest"
)

const importDoc = `{
  "calendar": {
    "events": [
      {"id": "imp-1", "title": "Seminar", "start": "2026-10-14T13:00", "duration": 120, "recurrence": "none", "color": "#aa00aa", "typeId": "t-1"}
    ],
    "types": [{"id": "t-1", "name": "Seminars", "color": "#aa00aa"}],
    "lastWeekStart": "2026-11-02T00:00"
  },
  "storagePath": "Shared"
}`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "import.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImportCmdMerge(t *testing.T) {
	ctx, out := clitest.New(t, "")
	ctx.Desk.CreateEvent(context.Background(), calendar.EventInput{Title: "Existing"})

	cmd := &ImportCmd{File: writeFile(t, importDoc), Mode: "merge"}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n := len(ctx.Desk.Store().Events()); n != 2 {
		t.Errorf("got %d events, want 2", n)
	}
	if !strings.Contains(out.String(), "now 2 events, 1 types") {
		t.Errorf("unexpected output: %q", out.String())
	}
	backups, _ := ctx.Backups.ListBackups()
	if len(backups) != 0 {
		t.Errorf("merge created %d backups, want 0", len(backups))
	}
}

func TestImportCmdReplace(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		yes      bool
		replaced bool
	}{
		{"confirmed", "y\n", false, true},
		{"skip prompt", "", true, true},
		{"declined", "n\n", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, out := clitest.New(t, tt.input)
			ctx.Desk.CreateEvent(context.Background(), calendar.EventInput{Title: "Existing"})

			cmd := &ImportCmd{File: writeFile(t, importDoc), Mode: "replace", Yes: tt.yes}
			if err := cmd.Run(ctx); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			events := ctx.Desk.Store().Events()
			if !tt.replaced {
				if len(events) != 1 || events[0].Title != "Existing" {
					t.Errorf("declined import changed data: %+v", events)
				}
				if !strings.Contains(out.String(), "Import cancelled") {
					t.Errorf("unexpected output: %q", out.String())
				}
				return
			}
			if len(events) != 1 || events[0].ID != "imp-1" {
				t.Fatalf("events after replace = %+v", events)
			}
			if got := ctx.Desk.State().WeekStart.Format("2006-01-02"); got != "2026-11-02" {
				t.Errorf("week = %s, want imported week", got)
			}
			backups, _ := ctx.Backups.ListBackups()
			if len(backups) != 1 {
				t.Errorf("got %d backups, want 1", len(backups))
			}
		})
	}
}

func TestImportCmdInvalid(t *testing.T) {
	tests := []struct {
		name, content string
	}{
		{"not json", "hello"},
		{"array", "[1, 2]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := clitest.New(t, "")
			cmd := &ImportCmd{File: writeFile(t, tt.content), Mode: "merge"}
			if err := cmd.Run(ctx); err == nil {
				t.Error("Run() should fail")
			}
		})
	}
}

func TestExportCmdJSON(t *testing.T) {
	ctx, out := clitest.New(t, "")
	ctx.Desk.CreateEvent(context.Background(), calendar.EventInput{Title: "Exported", Start: "2026-10-13T08:00"})

	if err := (&ExportCmd{}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var doc struct {
		Calendar struct {
			Events []struct {
				Title string `json:"title"`
				Start string `json:"start"`
			} `json:"events"`
		} `json:"calendar"`
	}
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if len(doc.Calendar.Events) != 1 || doc.Calendar.Events[0].Start != "2026-10-13T08:00" {
		t.Errorf("unexpected export: %+v", doc)
	}
}

func TestExportCmdRoundTrip(t *testing.T) {
	src, _ := clitest.New(t, "")
	bg := context.Background()
	et, _ := src.Desk.CreateType(bg, "Lab", "#00ff00")
	src.Desk.CreateEvent(bg, calendar.EventInput{Title: "Chemistry", Start: "2026-10-13T08:00", TypeID: et.ID, Recurrence: "weekly"})

	path := filepath.Join(t.TempDir(), "export.json")
	if err := (&ExportCmd{File: path}).Run(src); err != nil {
		t.Fatalf("Export error = %v", err)
	}

	dst, _ := clitest.New(t, "")
	if err := (&ImportCmd{File: path, Mode: "replace", Yes: true}).Run(dst); err != nil {
		t.Fatalf("Import error = %v", err)
	}
	got := dst.Desk.Store().Events()
	if len(got) != 1 || got[0].Title != "Chemistry" || got[0].TypeID != et.ID {
		t.Errorf("round trip lost data: %+v", got)
	}
}

func TestExportCmdICS(t *testing.T) {
	ctx, out := clitest.New(t, "")
	ctx.Desk.CreateEvent(context.Background(), calendar.EventInput{Title: "Lecture", Start: "2026-10-13T08:00", Recurrence: "weekly"})

	if err := (&ExportCmd{ICS: true}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	s := out.String()
	for _, want := range []string{"BEGIN:VCALENDAR", "SUMMARY:Lecture", "RRULE:FREQ=WEEKLY"} {
		if !strings.Contains(s, want) {
			t.Errorf("ICS missing %q:\n%s", want, s)
		}
	}
}
