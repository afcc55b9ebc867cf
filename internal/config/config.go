// Package config loads and saves the YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/mydesk/internal/constants"
)

// ScraperConfig configures the academic portal import.
type ScraperConfig struct {
	BaseURL     string `yaml:"base_url"`
	Username    string `yaml:"username"`
	Months      int    `yaml:"months"`
	Schedule    string `yaml:"schedule"`
	StoragePath string `yaml:"storage_path"`
	Timeout     string `yaml:"timeout"`
}

// Config is the top-level application configuration.
type Config struct {
	// Cache is a sqlite file path, a postgres:// connection string without a
	// password, or "keyring" for a connection string stored in the OS keyring.
	Cache string `yaml:"cache"`

	// QuietPeriod is how long saves must be quiet before the folder file is
	// written (e.g. "600ms").
	QuietPeriod string `yaml:"quiet_period"`

	// DayStart and DayEnd bound the visible day window (HH:MM).
	DayStart string `yaml:"day_start"`
	DayEnd   string `yaml:"day_end"`

	Scraper ScraperConfig `yaml:"scraper"`
}

// DefaultDir returns the configuration directory, ~/.config/mydesk.
func DefaultDir() string {
	return ExpandPath(constants.DefaultConfigDir)
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), constants.DefaultConfigFile)
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

func DefaultConfig() *Config {
	return &Config{
		Cache:       filepath.Join(constants.DefaultConfigDir, constants.DefaultCacheFile),
		QuietPeriod: constants.DefaultQuietPeriod.String(),
		DayStart:    constants.DefaultDayStart,
		DayEnd:      constants.DefaultDayEnd,
		Scraper: ScraperConfig{
			BaseURL:     constants.DefaultPortalBaseURL,
			Months:      constants.DefaultScrapeMonths,
			Schedule:    constants.DefaultScrapeSchedule,
			StoragePath: constants.DefaultStoragePath,
			Timeout:     constants.DefaultScrapeTimeout,
		},
	}
}

// Normalize fills in missing values and replaces unusable ones with defaults.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if strings.TrimSpace(c.Cache) == "" {
		c.Cache = d.Cache
	}
	if v, err := time.ParseDuration(c.QuietPeriod); err != nil || v <= 0 {
		c.QuietPeriod = d.QuietPeriod
	}

	start, errStart := time.Parse(constants.TimeFormat, c.DayStart)
	end, errEnd := time.Parse(constants.TimeFormat, c.DayEnd)
	if errStart != nil || errEnd != nil || !start.Before(end) {
		c.DayStart, c.DayEnd = d.DayStart, d.DayEnd
	}

	s := &c.Scraper
	if s.BaseURL == "" {
		s.BaseURL = d.Scraper.BaseURL
	}
	s.BaseURL = strings.TrimRight(s.BaseURL, "/")
	if s.Months <= 0 {
		s.Months = d.Scraper.Months
	}
	if s.Schedule == "" {
		s.Schedule = d.Scraper.Schedule
	}
	if s.StoragePath == "" {
		s.StoragePath = d.Scraper.StoragePath
	}
	if v, err := time.ParseDuration(s.Timeout); err != nil || v <= 0 {
		s.Timeout = d.Scraper.Timeout
	}
}

// QuietPeriodDuration returns the parsed quiet period.
func (c *Config) QuietPeriodDuration() time.Duration {
	v, err := time.ParseDuration(c.QuietPeriod)
	if err != nil || v <= 0 {
		return constants.DefaultQuietPeriod
	}
	return v
}

// DayWindow returns the visible day window as minutes after midnight.
func (c *Config) DayWindow() (start, end int) {
	return clockMinutes(c.DayStart, constants.DefaultDayStart), clockMinutes(c.DayEnd, constants.DefaultDayEnd)
}

func clockMinutes(s, fallback string) int {
	t, err := time.Parse(constants.TimeFormat, s)
	if err != nil {
		t, _ = time.Parse(constants.TimeFormat, fallback)
	}
	return t.Hour()*60 + t.Minute()
}

// ScrapeTimeout returns the parsed per-request scraper timeout.
func (c *Config) ScrapeTimeout() time.Duration {
	v, err := time.ParseDuration(c.Scraper.Timeout)
	if err != nil || v <= 0 {
		v, _ = time.ParseDuration(constants.DefaultScrapeTimeout)
	}
	return v
}

// Load reads the configuration at path. A missing file is created with the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	path = ExpandPath(path)
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".mydesk-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
