// Package memory provides process-local cache and folder backends, used for
// --ephemeral sessions and as test doubles.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/julianstephens/mydesk/internal/storage"
)

// Cache is an in-memory storage.Cache.
type Cache struct {
	mu   sync.Mutex
	data map[string][]byte

	// FailWrites makes every Set fail, to exercise error paths.
	FailWrites bool
}

func NewCache() *Cache {
	return &Cache{data: make(map[string][]byte)}
}

func (c *Cache) Init() error  { return nil }
func (c *Cache) Load() error  { return nil }
func (c *Cache) Close() error { return nil }

func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWrites {
		return fmt.Errorf("failed to write %s: cache is read-only", key)
	}
	c.data[key] = append([]byte(nil), value...)
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *Cache) GetConfigPath() string {
	return "memory"
}

// Folder is an in-memory storage.Folder that records every write.
type Folder struct {
	mu      sync.Mutex
	files   map[string][]byte
	mod     map[string]time.Time
	granted bool
	writes  []Write

	// Grantable controls whether RequestPermission succeeds.
	Grantable bool
	// WriteErr, when set, is returned by every WriteNamedFile.
	WriteErr error
	// ReadErr, when set, is returned by every ReadNamedFile.
	ReadErr error
}

// Write records one WriteNamedFile call.
type Write struct {
	Name string
	Data []byte
}

// NewFolder returns a folder with access already granted.
func NewFolder() *Folder {
	return &Folder{
		files:     make(map[string][]byte),
		mod:       make(map[string]time.Time),
		granted:   true,
		Grantable: true,
	}
}

func (f *Folder) Path() string { return "memory://folder" }

// Revoke withdraws access, as a browser does when a grant expires.
func (f *Folder) Revoke() {
	f.mu.Lock()
	f.granted = false
	f.mu.Unlock()
}

// Put seeds a file without recording a write.
func (f *Folder) Put(name string, data []byte) {
	f.mu.Lock()
	f.files[name] = append([]byte(nil), data...)
	f.mod[name] = time.Now()
	f.mu.Unlock()
}

// Writes returns the recorded writes in call order.
func (f *Folder) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Write(nil), f.writes...)
}

func (f *Folder) ReadNamedFile(_ context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.granted {
		return nil, fmt.Errorf("failed to read %s: permission denied", name)
	}
	if f.ReadErr != nil {
		return nil, f.ReadErr
	}
	data, ok := f.files[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (f *Folder) WriteNamedFile(_ context.Context, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.granted {
		return fmt.Errorf("failed to write %s: permission denied", name)
	}
	if f.WriteErr != nil {
		return f.WriteErr
	}
	f.files[name] = append([]byte(nil), data...)
	f.mod[name] = time.Now()
	f.writes = append(f.writes, Write{Name: name, Data: append([]byte(nil), data...)})
	return nil
}

func (f *Folder) HasPermission(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.granted
}

func (f *Folder) RequestPermission(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Grantable {
		f.granted = true
	}
	return f.granted
}

func (f *Folder) StatNamedFile(_ context.Context, name string) (storage.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[name]
	if !ok {
		return storage.FileInfo{}, storage.ErrNotFound
	}
	return storage.FileInfo{Name: name, Size: int64(len(data)), ModTime: f.mod[name]}, nil
}

var (
	_ storage.Cache   = (*Cache)(nil)
	_ storage.Folder  = (*Folder)(nil)
	_ storage.Statter = (*Folder)(nil)
)
