package system

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/julianstephens/mydesk/internal/calendar"
	"github.com/julianstephens/mydesk/internal/cli"
	"github.com/julianstephens/mydesk/internal/cli/clitest"
	"github.com/julianstephens/mydesk/internal/config"
	"github.com/julianstephens/mydesk/internal/keyring"
	"github.com/julianstephens/mydesk/internal/storage/sqlite"
)

func TestInitCmd(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Cache = filepath.Join(dir, "mydesk.db")
	configPath := filepath.Join(dir, "config.yaml")

	store := sqlite.NewStore(cfg.Cache)
	ctx := cli.NewContext(cfg, configPath, store)
	var out strings.Builder
	ctx.Out = &out
	defer store.Close()

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, path := range []string{configPath, cfg.Cache} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s not created: %v", path, err)
		}
	}
	loaded, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	if loaded.Cache != cfg.Cache {
		t.Errorf("saved cache = %q, want %q", loaded.Cache, cfg.Cache)
	}
	if !strings.Contains(out.String(), "storage link") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestValidateCmd(t *testing.T) {
	tests := []struct {
		name    string
		events  []calendar.EventInput
		wantErr bool
		want    string
	}{
		{
			name:   "clean week",
			events: []calendar.EventInput{{Title: "a", Start: "2026-10-13T09:00", Duration: "60"}},
			want:   "No conflicts",
		},
		{
			name: "overlap",
			events: []calendar.EventInput{
				{Title: "a", Start: "2026-10-13T09:00", Duration: "90"},
				{Title: "b", Start: "2026-10-13T10:00", Duration: "60"},
			},
			wantErr: true,
			want:    "overlap",
		},
		{
			name:    "before day window",
			events:  []calendar.EventInput{{Title: "early", Start: "2026-10-14T05:00", Duration: "60"}},
			wantErr: true,
			want:    "early",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, out := clitest.New(t, "")
			for _, in := range tt.events {
				ctx.Desk.CreateEvent(context.Background(), in)
			}
			err := (&ValidateCmd{}).Run(ctx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(strings.ToLower(out.String()), strings.ToLower(tt.want)) {
				t.Errorf("report missing %q:\n%s", tt.want, out.String())
			}
		})
	}
}

func TestValidateCmdOtherWeek(t *testing.T) {
	ctx, out := clitest.New(t, "")
	bg := context.Background()
	ctx.Desk.CreateEvent(bg, calendar.EventInput{Title: "a", Start: "2026-10-13T09:00", Duration: "90"})
	ctx.Desk.CreateEvent(bg, calendar.EventInput{Title: "b", Start: "2026-10-13T10:00", Duration: "60"})

	if err := (&ValidateCmd{Week: "2026-10-21"}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "Week of 2026-10-19") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestDoctorCmd(t *testing.T) {
	gokeyring.MockInit()
	ctx, out := clitest.New(t, "")

	if err := (&DoctorCmd{}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v\n%s", err, out.String())
	}
	s := out.String()
	for _, want := range []string{
		"✓ Config valid: OK",
		"✓ Cache reachable: OK",
		"✓ Folder access: OK",
		"⚠ Backups present: WARNING",
		"✓ OS keyring: OK",
		"All diagnostics passed!",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
}

func TestDoctorCmdBadConfig(t *testing.T) {
	gokeyring.MockInit()
	ctx, out := clitest.New(t, "")
	ctx.Config.DayStart, ctx.Config.DayEnd = "20:00", "08:00"

	if err := (&DoctorCmd{}).Run(ctx); err == nil {
		t.Fatal("Run() should fail")
	}
	if !strings.Contains(out.String(), "❌ Config valid: FAIL") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestCredentialsSetCmd(t *testing.T) {
	gokeyring.MockInit()
	ctx, out := clitest.New(t, "")

	cmd := &CredentialsSetCmd{Username: "student", Password: "s3cret"}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got, err := keyring.GetPortalPassword("student")
	if err != nil || got != "s3cret" {
		t.Errorf("GetPortalPassword() = %q, %v", got, err)
	}
	if ctx.Config.Scraper.Username != "student" {
		t.Errorf("username not saved: %q", ctx.Config.Scraper.Username)
	}
	if strings.Contains(out.String(), "s3cret") {
		t.Error("password echoed to output")
	}
}

func TestCredentialsSetCmdNoUser(t *testing.T) {
	gokeyring.MockInit()
	ctx, _ := clitest.New(t, "")
	ctx.Config.Scraper.Username = ""
	if err := (&CredentialsSetCmd{Password: "x"}).Run(ctx); err == nil {
		t.Error("Run() should fail without a username")
	}
}

func TestCredentialsSetDBCmd(t *testing.T) {
	gokeyring.MockInit()
	ctx, _ := clitest.New(t, "")

	dsn := "postgres://desk:pw@db.internal:5432/mydesk"
	if err := (&CredentialsSetDBCmd{ConnString: dsn}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got, err := keyring.GetConnectionString()
	if err != nil || got != dsn {
		t.Errorf("GetConnectionString() = %q, %v", got, err)
	}
	loaded, err := config.Load(ctx.ConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Cache != "keyring" {
		t.Errorf("cache = %q, want keyring", loaded.Cache)
	}

	if err := (&CredentialsSetDBCmd{ConnString: "/tmp/file.db"}).Run(ctx); err == nil {
		t.Error("Run() should reject a file path")
	}
}
