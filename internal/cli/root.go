package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/julianstephens/mydesk/internal/backup"
	"github.com/julianstephens/mydesk/internal/config"
	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/desk"
	"github.com/julianstephens/mydesk/internal/errors"
	"github.com/julianstephens/mydesk/internal/keyring"
	"github.com/julianstephens/mydesk/internal/logger"
	"github.com/julianstephens/mydesk/internal/models"
	"github.com/julianstephens/mydesk/internal/persist"
	"github.com/julianstephens/mydesk/internal/storage"
	"github.com/julianstephens/mydesk/internal/storage/folder"
	"github.com/julianstephens/mydesk/internal/storage/memory"
	"github.com/julianstephens/mydesk/internal/storage/postgres"
	"github.com/julianstephens/mydesk/internal/storage/sqlite"
)

// Context is handed to every command's Run method.
type Context struct {
	Config     *config.Config
	ConfigPath string
	Out        io.Writer
	In         io.Reader
	Now        func() time.Time

	Cache   storage.Cache
	Gateway *persist.Gateway
	Desk    *desk.Desk
	Backups *backup.Manager
}

// NewContext builds a context around an already constructed cache.
func NewContext(cfg *config.Config, configPath string, cache storage.Cache) *Context {
	c := &Context{
		Config:     cfg,
		ConfigPath: configPath,
		Out:        os.Stdout,
		In:         os.Stdin,
		Now:        models.Now,
		Cache:      cache,
	}
	c.Backups = backup.NewManager(c.ConfigDir())
	return c
}

// ConfigDir is the directory holding the config file, logs and backups.
func (c *Context) ConfigDir() string {
	return filepath.Dir(config.ExpandPath(c.ConfigPath))
}

// OpenCache builds the cache named by cfg. Ephemeral sessions keep
// everything in memory.
func OpenCache(cfg *config.Config, ephemeral bool) (storage.Cache, error) {
	if ephemeral {
		return memory.NewCache(), nil
	}

	if dsn := os.Getenv(constants.EnvDBConnection); dsn != "" {
		return postgres.New(dsn), nil
	}

	target := strings.TrimSpace(cfg.Cache)
	if target == "keyring" {
		dsn, err := keyring.GetConnectionString()
		if err != nil {
			return nil, errors.WithHint(fmt.Errorf("failed to read connection string: %w", err),
				"store one with 'mydesk credentials set-db'")
		}
		return postgres.New(dsn), nil
	}

	if postgres.IsConnString(target) || strings.Contains(target, "dbname=") {
		if ok, err := postgres.ValidateConnString(target); !ok {
			return nil, errors.WithHint(err,
				"keep the password out of config.yaml: set "+constants.EnvDBPassword+", use .pgpass, or store the full connection string in the OS keyring")
		}
		return postgres.New(withPassword(target, os.Getenv(constants.EnvDBPassword))), nil
	}

	if target == "" {
		target = config.DefaultConfig().Cache
	}
	return sqlite.NewStore(config.ExpandPath(target)), nil
}

// withPassword adds password to a connection string that has none.
func withPassword(dsn, password string) string {
	if password == "" {
		return dsn
	}
	if postgres.IsConnString(dsn) {
		u, err := url.Parse(dsn)
		if err != nil || u.User == nil {
			return dsn
		}
		u.User = url.UserPassword(u.User.Username(), password)
		return u.String()
	}
	return dsn + " password='" + strings.ReplaceAll(password, "'", `\'`) + "'"
}

// Open loads the cache, reattaches the remembered folder and opens the desk.
func (c *Context) Open(ctx context.Context) error {
	if c.Desk != nil {
		return nil
	}
	if err := c.Cache.Load(); err != nil {
		return errors.WithHint(err, "run 'mydesk init' to create the local cache")
	}

	c.Gateway = persist.New(c.Cache, persist.Options{
		QuietPeriod: c.Config.QuietPeriodDuration(),
		OnStatus:    c.status,
	})

	path, err := persist.GrantedPath(ctx, c.Cache)
	switch {
	case err == nil:
		c.Gateway.SetFolder(folder.New(path))
	case !persist.IsNotLinked(err):
		logger.Warn("Failed to read folder grant", "error", err)
	}

	d, err := desk.Open(ctx, c.Gateway, desk.Options{
		Now:           c.Now,
		BeforeReplace: c.PerformAutomaticBackup,
	})
	if err != nil {
		return err
	}
	c.Desk = d
	return nil
}

// status prints failures, everything else only reaches the log.
func (c *Context) status(s persist.Status) {
	if s.Kind == persist.StatusError {
		fmt.Fprintf(os.Stderr, "⚠ %s\n", s.Message)
	}
}

// PerformAutomaticBackup snapshots doc before it is replaced.
func (c *Context) PerformAutomaticBackup(doc models.Document) error {
	path, err := c.Backups.CreateBackup(doc)
	if err != nil {
		logger.Warn("Automatic backup failed", "error", err)
		return err
	}
	logger.Info("Automatic backup created", "path", path)
	return nil
}

// Close flushes pending writes and releases the cache.
func (c *Context) Close(ctx context.Context) error {
	var firstErr error
	if c.Desk != nil {
		if err := c.Desk.Close(ctx); err != nil {
			firstErr = err
		}
		c.Desk = nil
	}
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Context) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Context) Println(args ...interface{}) {
	fmt.Fprintln(c.Out, args...)
}

// Confirm asks a y/N question on In.
func (c *Context) Confirm(prompt string) (bool, error) {
	c.Printf("%s [y/N]: ", prompt)
	response, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

// ParseDate reads a YYYY-MM-DD date, or "today".
func (c *Context) ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "today") {
		now := c.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(constants.DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}
