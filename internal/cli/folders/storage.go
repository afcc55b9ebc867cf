package folders

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/julianstephens/mydesk/internal/cli"
	"github.com/julianstephens/mydesk/internal/persist"
	"github.com/julianstephens/mydesk/internal/storage"
	"github.com/julianstephens/mydesk/internal/storage/folder"
)

// StorageLinkCmd grants a folder as the external copy of the document.
type StorageLinkCmd struct {
	Path string `arg:"" help:"Folder to keep the data file in (created if missing)." type:"path"`
}

func (c *StorageLinkCmd) Run(ctx *cli.Context) error {
	abs, err := filepath.Abs(c.Path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", c.Path, err)
	}
	f := folder.New(abs)
	if err := ctx.Desk.LinkFolder(context.Background(), f); err != nil {
		return fmt.Errorf("failed to link folder: %w", err)
	}
	ctx.Printf("✓ Linked %s\n", abs)
	ctx.Printf("  Data file: %s\n", filepath.Join(abs, ctx.Gateway.FileName()))
	return nil
}

type StorageUnlinkCmd struct{}

func (c *StorageUnlinkCmd) Run(ctx *cli.Context) error {
	if ctx.Gateway.Folder() == nil {
		ctx.Println("No folder is linked.")
		return nil
	}
	path := ctx.Gateway.Folder().Path()
	if err := ctx.Desk.UnlinkFolder(context.Background()); err != nil {
		return err
	}
	ctx.Printf("✓ Unlinked %s; data stays in the local cache.\n", path)
	return nil
}

type StorageStatusCmd struct{}

func (c *StorageStatusCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	doc := ctx.Desk.Document()

	ctx.Printf("Local cache:   %s\n", ctx.Cache.GetConfigPath())
	ctx.Printf("Loaded from:   %s\n", ctx.Desk.Source())
	if doc.StoragePath != "" {
		ctx.Printf("Storage path:  %s\n", doc.StoragePath)
	}
	ctx.Printf("Events/types:  %d / %d\n", len(doc.Calendar.Events), len(doc.Calendar.Types))

	f := ctx.Gateway.Folder()
	if f == nil {
		path, err := persist.GrantedPath(bg, ctx.Cache)
		if err == nil {
			ctx.Printf("Folder:        %s (not reachable)\n", path)
		} else {
			ctx.Println("Folder:        not linked")
		}
		return nil
	}

	ctx.Printf("Folder:        %s\n", f.Path())
	if !f.HasPermission(bg) {
		ctx.Println("Permission:    ❌ denied")
		return nil
	}
	ctx.Println("Permission:    ✓ granted")

	st, ok := f.(storage.Statter)
	if !ok {
		return nil
	}
	info, err := st.StatNamedFile(bg, ctx.Gateway.FileName())
	switch {
	case err == nil:
		ctx.Printf("Data file:     %s, %s, saved %s\n", info.Name, humanize.Bytes(uint64(info.Size)), humanize.Time(info.ModTime))
	case errors.Is(err, storage.ErrNotFound):
		ctx.Printf("Data file:     %s not written yet\n", ctx.Gateway.FileName())
	default:
		return fmt.Errorf("failed to inspect data file: %w", err)
	}
	return nil
}
