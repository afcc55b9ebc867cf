package system

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/mydesk/internal/cli"
	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/keyring"
	"github.com/julianstephens/mydesk/internal/persist"
	"github.com/julianstephens/mydesk/internal/schema"
	"github.com/julianstephens/mydesk/internal/storage"
	"github.com/julianstephens/mydesk/internal/storage/folder"
)

// versioned is implemented by caches with a migrated schema.
type versioned interface {
	SchemaVersion() (current, latest int, err error)
}

type DoctorCmd struct{}

type check struct {
	name string
	// skip names the failed check this one depends on.
	skip string
	warn bool
	fn   func() error
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	ctx.Println("Running diagnostics...")
	ctx.Println()

	checks := []check{
		{name: "Config valid", fn: func() error { return checkConfig(ctx) }},
		{name: "Cache reachable", fn: func() error { return ctx.Cache.Load() }},
		{name: "Schema version", skip: "Cache reachable", fn: func() error { return checkSchemaVersion(ctx) }},
		{name: "Stored document", skip: "Cache reachable", fn: func() error { return checkDocument(bg, ctx.Cache) }},
		{name: "Folder access", skip: "Cache reachable", fn: func() error { return checkFolder(bg, ctx) }},
		{name: "Backups present", warn: true, fn: func() error { return checkBackupsPresent(ctx) }},
		{name: "OS keyring", warn: true, fn: checkKeyring},
	}

	failed := map[string]bool{}
	hasError := false
	for _, c := range checks {
		if c.skip != "" && failed[c.skip] {
			ctx.Printf("⊘ %s: SKIPPED (%s failed)\n", c.name, c.skip)
			continue
		}
		err := c.fn()
		switch {
		case err == nil:
			ctx.Printf("✓ %s: OK\n", c.name)
		case c.warn:
			ctx.Printf("⚠ %s: WARNING\n", c.name)
			ctx.Printf("   %v\n", err)
		default:
			ctx.Printf("❌ %s: FAIL\n", c.name)
			ctx.Printf("   Error: %v\n", err)
			failed[c.name] = true
			hasError = true
		}
	}

	ctx.Println()
	if hasError {
		ctx.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	ctx.Println("All diagnostics passed!")
	return nil
}

func checkConfig(ctx *cli.Context) error {
	start, end := ctx.Config.DayWindow()
	if start >= end {
		return fmt.Errorf("day window %s-%s is empty", ctx.Config.DayStart, ctx.Config.DayEnd)
	}
	if ctx.Config.QuietPeriodDuration() <= 0 {
		return fmt.Errorf("quiet period must be positive")
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	v, ok := ctx.Cache.(versioned)
	if !ok {
		return nil
	}
	current, latest, err := v.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current > latest {
		return fmt.Errorf("cache schema version (%d) is newer than supported version (%d)", current, latest)
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d", current, latest)
	}
	return nil
}

func checkDocument(ctx context.Context, cache storage.Cache) error {
	data, err := cache.Get(ctx, constants.DataKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	res := schema.Migrate(data)
	if res.Status == schema.StatusRecovered {
		return fmt.Errorf("document needs %d repairs, first: %s", len(res.Warnings), res.Warnings[0])
	}
	return nil
}

func checkFolder(ctx context.Context, c *cli.Context) error {
	path, err := persist.GrantedPath(ctx, c.Cache)
	if persist.IsNotLinked(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !folder.New(path).HasPermission(ctx) {
		return fmt.Errorf("%s is not writable; run 'mydesk storage link' again", path)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	list, err := ctx.Backups.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(list) == 0 {
		return fmt.Errorf("no backups found - consider creating one with 'mydesk backup create'")
	}
	return nil
}

func checkKeyring() error {
	if !keyring.IsAvailable() {
		return fmt.Errorf("not available; portal credentials fall back to %s", constants.CredentialsFile)
	}
	return nil
}
