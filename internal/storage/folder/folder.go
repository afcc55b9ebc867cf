// Package folder implements storage.Folder on a directory of any afero
// filesystem, normally the user's synced folder on disk.
package folder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/julianstephens/mydesk/internal/storage"
)

type Folder struct {
	fs  afero.Fs
	dir string
}

// New returns a folder rooted at dir on the OS filesystem.
func New(dir string) *Folder {
	return NewWithFs(afero.NewOsFs(), dir)
}

func NewWithFs(fs afero.Fs, dir string) *Folder {
	return &Folder{fs: fs, dir: filepath.Clean(dir)}
}

func (f *Folder) Path() string {
	return f.dir
}

func (f *Folder) file(name string) (string, error) {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return filepath.Join(f.dir, name), nil
}

func (f *Folder) ReadNamedFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := f.file(name)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// WriteNamedFile replaces the file atomically through a temporary sibling.
func (f *Folder) WriteNamedFile(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := f.file(name)
	if err != nil {
		return err
	}

	tmp, err := afero.TempFile(f.fs, f.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = f.fs.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = f.fs.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := f.fs.Rename(tmpName, path); err != nil {
		_ = f.fs.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

// HasPermission reports whether the directory exists and accepts writes.
func (f *Folder) HasPermission(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	info, err := f.fs.Stat(f.dir)
	if err != nil || !info.IsDir() {
		return false
	}
	probe, err := afero.TempFile(f.fs, f.dir, ".mydesk-probe-*")
	if err != nil {
		return false
	}
	probe.Close()
	_ = f.fs.Remove(probe.Name())
	return true
}

// RequestPermission creates the directory when missing, then re-checks access.
func (f *Folder) RequestPermission(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if err := f.fs.MkdirAll(f.dir, 0755); err != nil {
		return false
	}
	return f.HasPermission(ctx)
}

func (f *Folder) StatNamedFile(ctx context.Context, name string) (storage.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return storage.FileInfo{}, err
	}
	path, err := f.file(name)
	if err != nil {
		return storage.FileInfo{}, err
	}
	info, err := f.fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return storage.FileInfo{}, storage.ErrNotFound
		}
		return storage.FileInfo{}, err
	}
	return storage.FileInfo{Name: name, Size: info.Size(), ModTime: info.ModTime()}, nil
}

var (
	_ storage.Folder  = (*Folder)(nil)
	_ storage.Statter = (*Folder)(nil)
)
