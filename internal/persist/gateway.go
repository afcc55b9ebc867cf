// Package persist reconciles the local cache with the optional external
// folder file: it loads, migrates and writes documents back.
package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/logger"
	"github.com/julianstephens/mydesk/internal/models"
	"github.com/julianstephens/mydesk/internal/schema"
	"github.com/julianstephens/mydesk/internal/storage"
)

var (
	// ErrClosed is returned by Save after Close.
	ErrClosed = errors.New("persistence gateway is closed")
	// ErrPermissionDenied is returned when a folder refuses access.
	ErrPermissionDenied = errors.New("folder access was not granted")
)

// Source names where a loaded document came from.
type Source string

const (
	SourceFolder   Source = "folder"
	SourceCache    Source = "cache"
	SourceDefaults Source = "defaults"
)

// StatusKind classifies a status signal.
type StatusKind string

const (
	StatusInfo    StatusKind = "info"
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// Status is a user-facing signal about storage activity.
type Status struct {
	Kind    StatusKind
	Message string
	Err     error
}

// LoadResult is the document picked by Load.
type LoadResult struct {
	Document models.Document
	Source   Source
	Warnings []string
}

// Options configures a Gateway. Zero values take the defaults.
type Options struct {
	QuietPeriod  time.Duration
	WriteTimeout time.Duration
	CacheKey     string
	FileName     string
	// OnStatus receives status signals. It may be called from the debounce
	// timer's goroutine.
	OnStatus func(Status)
}

// Gateway owns both backing stores. Every Save lands in the cache before it
// returns; the folder file is written once saves have been quiet for
// QuietPeriod, and only the latest document is written.
type Gateway struct {
	cache storage.Cache
	opts  Options

	mu      sync.Mutex
	idle    *sync.Cond
	folder  storage.Folder
	timer   *time.Timer
	pending []byte
	seq     uint64
	written uint64
	writing int
	closed  bool

	writeMu sync.Mutex
}

func New(cache storage.Cache, opts Options) *Gateway {
	if opts.QuietPeriod <= 0 {
		opts.QuietPeriod = constants.DefaultQuietPeriod
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = constants.ExternalWriteTimeout
	}
	if opts.CacheKey == "" {
		opts.CacheKey = constants.DataKey
	}
	if opts.FileName == "" {
		opts.FileName = constants.DataFileName
	}
	g := &Gateway{cache: cache, opts: opts}
	g.idle = sync.NewCond(&g.mu)
	return g
}

func (g *Gateway) emit(s Status) {
	switch s.Kind {
	case StatusError:
		logger.Error(s.Message, "error", s.Err)
	default:
		logger.Info(s.Message)
	}
	if g.opts.OnStatus != nil {
		g.opts.OnStatus(s)
	}
}

// SetFolder attaches the external folder, or detaches it when f is nil.
// Detaching drops any pending folder write.
func (g *Gateway) SetFolder(f storage.Folder) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.folder = f
	if f == nil {
		g.stopTimerLocked()
		g.pending = nil
	}
}

// Folder returns the attached folder, or nil.
func (g *Gateway) Folder() storage.Folder {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.folder
}

// FileName returns the name of the document file inside the folder.
func (g *Gateway) FileName() string {
	return g.opts.FileName
}

// Load returns the folder document when it is readable, otherwise the cached
// document, otherwise defaults. The folder document replaces the cached one
// entirely. Corrupt JSON in either place counts as absent.
func (g *Gateway) Load(ctx context.Context) (LoadResult, error) {
	if err := ctx.Err(); err != nil {
		return LoadResult{}, err
	}

	var warnings []string

	cached, err := g.cache.Get(ctx, g.opts.CacheKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		cached = nil
	case err != nil:
		warnings = append(warnings, fmt.Sprintf("local cache unreadable: %v", err))
		cached = nil
	case !isDocument(cached):
		warnings = append(warnings, "local cache holds corrupt data, ignored")
		cached = nil
	}

	if data, ok := g.readFolder(ctx, &warnings); ok {
		r := schema.Migrate(data)
		warnings = append(warnings, r.Warnings...)
		if err := g.writeCache(ctx, r.Document); err != nil {
			warnings = append(warnings, fmt.Sprintf("local cache not updated: %v", err))
		}
		g.emit(Status{Kind: StatusSuccess, Message: "Loaded from folder"})
		return g.loaded(r.Document, SourceFolder, warnings), nil
	}

	g.emit(Status{Kind: StatusInfo, Message: "Loaded from the local cache"})
	if cached != nil {
		r := schema.Migrate(cached)
		warnings = append(warnings, r.Warnings...)
		return g.loaded(r.Document, SourceCache, warnings), nil
	}

	return g.loaded(models.NewDocument(), SourceDefaults, warnings), nil
}

func (g *Gateway) loaded(doc models.Document, src Source, warnings []string) LoadResult {
	for _, w := range warnings {
		logger.Warn("document repaired on load", "source", src, "warning", w)
	}
	return LoadResult{Document: doc, Source: src, Warnings: warnings}
}

// readFolder returns the folder document when the folder is attached,
// accessible and holds a well-formed file. A refused permission request
// forgets the folder.
func (g *Gateway) readFolder(ctx context.Context, warnings *[]string) ([]byte, bool) {
	f := g.Folder()
	if f == nil {
		return nil, false
	}

	if !f.HasPermission(ctx) && !f.RequestPermission(ctx) {
		g.emit(Status{Kind: StatusInfo, Message: "Folder access denied, using the local cache"})
		if err := g.UnlinkFolder(ctx); err != nil {
			*warnings = append(*warnings, fmt.Sprintf("folder grant not cleared: %v", err))
		}
		return nil, false
	}

	data, err := f.ReadNamedFile(ctx, g.opts.FileName)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		g.emit(Status{Kind: StatusError, Message: "Could not read the folder file", Err: err})
		return nil, false
	}
	if !isDocument(data) {
		*warnings = append(*warnings, fmt.Sprintf("%s holds corrupt data, ignored", g.opts.FileName))
		return nil, false
	}
	return data, true
}

func (g *Gateway) writeCache(ctx context.Context, doc models.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := g.cache.Set(ctx, g.opts.CacheKey, data); err != nil {
		return fmt.Errorf("failed to write local cache: %w", err)
	}
	return nil
}

// Save writes doc to the cache immediately and schedules the folder write,
// cancelling any write still waiting for its quiet period.
func (g *Gateway) Save(ctx context.Context, doc models.Document) error {
	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if err := g.writeCache(ctx, doc); err != nil {
		g.emit(Status{Kind: StatusError, Message: "Could not save to the local cache", Err: err})
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.folder == nil {
		return nil
	}

	pretty, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	g.stopTimerLocked()
	g.seq++
	seq := g.seq
	g.pending = pretty
	g.timer = time.AfterFunc(g.opts.QuietPeriod, func() { g.fire(seq) })
	return nil
}

func (g *Gateway) stopTimerLocked() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

// fire runs on the timer goroutine. A callback that lost the race against a
// newer Save finds a different sequence number and does nothing.
func (g *Gateway) fire(seq uint64) {
	g.mu.Lock()
	if seq != g.seq || g.pending == nil {
		g.mu.Unlock()
		return
	}
	data, f := g.takeLocked()
	g.mu.Unlock()

	_ = g.write(f, data, seq)
}

// takeLocked claims the pending payload and marks a write in flight.
func (g *Gateway) takeLocked() ([]byte, storage.Folder) {
	data := g.pending
	g.pending = nil
	g.timer = nil
	g.writing++
	return data, g.folder
}

func (g *Gateway) write(f storage.Folder, data []byte, seq uint64) error {
	defer func() {
		g.mu.Lock()
		g.writing--
		g.idle.Broadcast()
		g.mu.Unlock()
	}()

	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	g.mu.Lock()
	stale := seq <= g.written
	g.mu.Unlock()
	if stale || f == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.opts.WriteTimeout)
	defer cancel()

	if !f.HasPermission(ctx) {
		err := fmt.Errorf("%w: %s", ErrPermissionDenied, f.Path())
		g.emit(Status{Kind: StatusError, Message: "Folder access lost, changes kept in the local cache", Err: err})
		return err
	}

	g.emit(Status{Kind: StatusInfo, Message: "Saving to folder..."})
	if err := f.WriteNamedFile(ctx, g.opts.FileName, data); err != nil {
		g.emit(Status{Kind: StatusError, Message: "Folder save failed, changes kept in the local cache", Err: err})
		return err
	}

	g.mu.Lock()
	g.written = seq
	g.mu.Unlock()
	g.emit(Status{Kind: StatusSuccess, Message: "Saved to folder"})
	return nil
}

// Flush writes any pending folder document now and waits for in-flight
// writes to finish. It returns the error of the write it performed.
func (g *Gateway) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	g.stopTimerLocked()
	var (
		data []byte
		f    storage.Folder
		seq  uint64
	)
	if g.pending != nil {
		seq = g.seq
		data, f = g.takeLocked()
	}
	g.mu.Unlock()

	var err error
	if data != nil {
		err = g.write(f, data, seq)
	}

	g.mu.Lock()
	for g.writing > 0 {
		g.idle.Wait()
	}
	g.mu.Unlock()
	return err
}

// Close flushes and refuses further saves.
func (g *Gateway) Close(ctx context.Context) error {
	err := g.Flush(ctx)
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	return err
}

// Pending reports whether a folder write is waiting for its quiet period.
func (g *Gateway) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending != nil
}

// isDocument reports whether data is well-formed JSON with an object root.
func isDocument(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
}
