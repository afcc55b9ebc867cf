// Package storage defines the two backing stores behind the persistence
// gateway: a local key-value cache and an optional external folder.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key or named file does not exist.
var ErrNotFound = errors.New("not found")

// Cache is the fast local key-value store. It is always available once
// loaded and is the authoritative copy within a session.
type Cache interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// Utils
	GetConfigPath() string
}

// Folder is a user-granted external storage location holding named files.
// Access may be revoked at any time; callers check HasPermission before use
// and may ask again with RequestPermission.
type Folder interface {
	Path() string
	ReadNamedFile(ctx context.Context, name string) ([]byte, error)
	WriteNamedFile(ctx context.Context, name string, data []byte) error
	HasPermission(ctx context.Context) bool
	RequestPermission(ctx context.Context) bool
}

// FileInfo describes a named file in a Folder.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Statter is implemented by folders that can describe their files.
type Statter interface {
	StatNamedFile(ctx context.Context, name string) (FileInfo, error)
}
