// Package clitest builds command contexts backed by an in-memory cache.
package clitest

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/mydesk/internal/cli"
	"github.com/julianstephens/mydesk/internal/config"
	"github.com/julianstephens/mydesk/internal/storage/memory"
)

// Now is the fixed clock of every test context: Thursday 2026-10-15 10:00.
var Now = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

// New returns an opened context whose output is captured in the returned
// buffer. Input reads from input.
func New(t *testing.T, input string) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	return Open(t, memory.NewCache(), input)
}

// Open is New over an existing cache, so a test can reopen the same data.
func Open(t *testing.T, cache *memory.Cache, input string) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	ctx := cli.NewContext(config.DefaultConfig(), filepath.Join(dir, "config.yaml"), cache)
	out := &bytes.Buffer{}
	ctx.Out = out
	ctx.In = strings.NewReader(input)
	ctx.Now = func() time.Time { return Now }
	if err := ctx.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = ctx.Close(context.Background()) })
	return ctx, out
}
