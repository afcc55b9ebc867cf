// Package migration applies the versioned SQL files that shape the local
// cache tables.
package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// ErrSchemaTooNew means the database was migrated by a newer build.
var ErrSchemaTooNew = errors.New("cache schema is newer than this build supports")

// Driver selects the placeholder style for the runner's own bookkeeping.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Status is where a database stands against the available migrations.
type Status struct {
	Current int
	Latest  int
	Pending []Migration
}

func (s Status) UpToDate() bool { return len(s.Pending) == 0 && s.Current == s.Latest }

// Runner applies migrations to one database. Files are parsed once, when
// the runner is built.
type Runner struct {
	db     *sql.DB
	driver Driver
	files  []Migration
}

func New(db *sql.DB, files fs.FS, driver Driver) (*Runner, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported migration driver %q", driver)
	}
	if db == nil {
		return nil, errors.New("migration runner requires a database connection")
	}
	parsed, err := Load(files)
	if err != nil {
		return nil, err
	}
	return &Runner{db: db, driver: driver, files: parsed}, nil
}

var fileName = regexp.MustCompile(`^(\d+)_(\w+)\.sql$`)

// Load reads the NNN_name.sql files at the root of files, ordered by
// version. Other files are ignored; malformed or repeated versions fail.
func Load(files fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var out []Migration
	seen := map[int]string{}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		m := fileName.FindStringSubmatch(e.Name())
		if m == nil {
			return nil, fmt.Errorf("invalid migration file name %s (want NNN_name.sql)", e.Name())
		}
		version, _ := strconv.Atoi(m[1])
		if version < 1 {
			return nil, fmt.Errorf("invalid migration file name %s: versions start at 1", e.Name())
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %d (%s, %s)", version, prev, e.Name())
		}
		seen[version] = e.Name()

		body, err := fs.ReadFile(files, e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		out = append(out, Migration{Version: version, Name: m[2], SQL: string(body)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Latest is the highest available version, 0 without files.
func (r *Runner) Latest() int {
	if len(r.files) == 0 {
		return 0
	}
	return r.files[len(r.files)-1].Version
}

// Current reads the applied version. A fresh database is at 0.
func (r *Runner) Current(ctx context.Context) (int, error) {
	if _, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return 0, fmt.Errorf("failed to create schema_version: %w", err)
	}
	var v int
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

func (r *Runner) Status(ctx context.Context) (Status, error) {
	current, err := r.Current(ctx)
	if err != nil {
		return Status{}, err
	}
	st := Status{Current: current, Latest: r.Latest()}
	if current > st.Latest {
		return st, fmt.Errorf("%w (database at %d, latest known %d)", ErrSchemaTooNew, current, st.Latest)
	}
	for _, m := range r.files {
		if m.Version > current {
			st.Pending = append(st.Pending, m)
		}
	}
	return st, nil
}

// Check fails when the database was migrated past what this build knows.
func (r *Runner) Check(ctx context.Context) error {
	_, err := r.Status(ctx)
	return err
}

// Up applies every pending migration, each in its own transaction together
// with the version bump. It returns how many were applied.
func (r *Runner) Up(ctx context.Context, logFn func(string)) (int, error) {
	if logFn == nil {
		logFn = func(string) {}
	}
	st, err := r.Status(ctx)
	if err != nil {
		return 0, err
	}
	if len(st.Pending) == 0 {
		logFn(fmt.Sprintf("Cache schema is up to date (version %d)", st.Current))
		return 0, nil
	}

	logFn(fmt.Sprintf("Migrating cache schema %d -> %d", st.Current, st.Latest))
	began := time.Now()
	for i, m := range st.Pending {
		if err := r.apply(ctx, m); err != nil {
			return i, err
		}
		logFn(fmt.Sprintf("  applied %03d_%s", m.Version, m.Name))
	}
	logFn(fmt.Sprintf("Applied %d migration(s) in %v", len(st.Pending), time.Since(began).Round(time.Millisecond)))
	return len(st.Pending), nil
}

func (r *Runner) apply(ctx context.Context, m Migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: %w", m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
	}
	// schema_version holds a single row.
	if _, err := tx.ExecContext(ctx, `DELETE FROM schema_version`); err != nil {
		return fmt.Errorf("migration %d: failed to clear version: %w", m.Version, err)
	}
	if _, err := tx.ExecContext(ctx, r.insertVersionSQL(), m.Version); err != nil {
		return fmt.Errorf("migration %d: failed to record version: %w", m.Version, err)
	}
	return tx.Commit()
}

func (r *Runner) insertVersionSQL() string {
	if r.driver == DriverPostgres {
		return `INSERT INTO schema_version (version) VALUES ($1)`
	}
	return `INSERT INTO schema_version (version) VALUES (?)`
}
