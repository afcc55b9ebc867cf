package persist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/storage"
)

// LinkFolder asks f for access, remembers the grant in the cache and
// attaches the folder.
func (g *Gateway) LinkFolder(ctx context.Context, f storage.Folder) error {
	if !f.HasPermission(ctx) && !f.RequestPermission(ctx) {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, f.Path())
	}
	if err := g.cache.Set(ctx, constants.FolderGrantKey, []byte(f.Path())); err != nil {
		return fmt.Errorf("failed to remember folder: %w", err)
	}
	g.SetFolder(f)
	return nil
}

// UnlinkFolder detaches the folder and forgets the grant.
func (g *Gateway) UnlinkFolder(ctx context.Context) error {
	g.SetFolder(nil)
	if err := g.cache.Delete(ctx, constants.FolderGrantKey); err != nil {
		return fmt.Errorf("failed to forget folder: %w", err)
	}
	return nil
}

// GrantedPath returns the remembered folder path, or storage.ErrNotFound.
func GrantedPath(ctx context.Context, cache storage.Cache) (string, error) {
	data, err := cache.Get(ctx, constants.FolderGrantKey)
	if err != nil {
		return "", err
	}
	path := strings.TrimSpace(string(data))
	if path == "" {
		return "", storage.ErrNotFound
	}
	return path, nil
}

// IsNotLinked reports whether err means no folder has been granted.
func IsNotLinked(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
