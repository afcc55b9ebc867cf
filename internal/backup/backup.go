// Package backup keeps rotating JSON snapshots of the document.
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/logger"
	"github.com/julianstephens/mydesk/internal/models"
	"github.com/julianstephens/mydesk/internal/schema"
)

const (
	minuteStamp = "20060102-1504"
	secondStamp = "20060102-150405"
)

// BackupInfo contains information about a backup file
type BackupInfo struct {
	Path      string
	Timestamp time.Time
	Size      int64
	seq       int
}

// Manager handles backup operations
type Manager struct {
	fs        afero.Fs
	backupDir string
	now       func() time.Time
}

// NewManager creates a manager storing snapshots under configDir/backups.
func NewManager(configDir string) *Manager {
	return NewManagerWithFs(afero.NewOsFs(), configDir)
}

func NewManagerWithFs(fs afero.Fs, configDir string) *Manager {
	return &Manager{
		fs:        fs,
		backupDir: filepath.Join(configDir, constants.BackupDirName),
		now:       time.Now,
	}
}

// GetBackupDir returns the backup directory path
func (m *Manager) GetBackupDir() string {
	return m.backupDir
}

// CreateBackup writes doc as a new snapshot and prunes the oldest ones.
func (m *Manager) CreateBackup(doc models.Document) (string, error) {
	if err := m.fs.MkdirAll(m.backupDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	path, err := m.uniquePath()
	if err != nil {
		return "", err
	}
	if err := afero.WriteFile(m.fs, path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	if err := m.rotateBackups(); err != nil {
		logger.Warn("failed to rotate old backups", "error", err)
	}
	return path, nil
}

// uniquePath picks mydesk-YYYYMMDD-HHMM.json, adding seconds and then a
// counter when the name is taken.
func (m *Manager) uniquePath() (string, error) {
	now := m.now()
	name := func(stamp string) string {
		return filepath.Join(m.backupDir, constants.BackupFilePrefix+stamp+constants.BackupFileSuffix)
	}

	path := name(now.Format(minuteStamp))
	if !m.exists(path) {
		return path, nil
	}
	stamp := now.Format(secondStamp)
	path = name(stamp)
	for counter := 1; m.exists(path); counter++ {
		if counter > 100 {
			return "", fmt.Errorf("failed to generate unique backup filename")
		}
		path = name(fmt.Sprintf("%s-%d", stamp, counter))
	}
	return path, nil
}

func (m *Manager) exists(path string) bool {
	_, err := m.fs.Stat(path)
	return err == nil
}

// ListBackups returns all snapshots, newest first.
func (m *Manager) ListBackups() ([]BackupInfo, error) {
	entries, err := afero.ReadDir(m.fs, m.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []BackupInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []BackupInfo{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ts, seq, ok := parseName(entry.Name())
		if !ok {
			continue
		}
		backups = append(backups, BackupInfo{
			Path:      filepath.Join(m.backupDir, entry.Name()),
			Timestamp: ts,
			Size:      entry.Size(),
			seq:       seq,
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].Timestamp.Equal(backups[j].Timestamp) {
			return backups[i].Timestamp.After(backups[j].Timestamp)
		}
		return backups[i].seq > backups[j].seq
	})
	return backups, nil
}

// parseName extracts the timestamp and collision counter from a backup name.
func parseName(name string) (time.Time, int, bool) {
	if !strings.HasPrefix(name, constants.BackupFilePrefix) || !strings.HasSuffix(name, constants.BackupFileSuffix) {
		return time.Time{}, 0, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, constants.BackupFilePrefix), constants.BackupFileSuffix)

	seq := 0
	parts := strings.Split(stamp, "-")
	if len(parts) == 3 {
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			return time.Time{}, 0, false
		}
		seq = n
		stamp = parts[0] + "-" + parts[1]
	}

	for _, layout := range []string{minuteStamp, secondStamp} {
		if ts, err := time.Parse(layout, stamp); err == nil {
			return ts, seq, true
		}
	}
	return time.Time{}, 0, false
}

func (m *Manager) rotateBackups() error {
	backups, err := m.ListBackups()
	if err != nil {
		return err
	}
	for i := constants.MaxBackups; i < len(backups); i++ {
		if err := m.fs.Remove(backups[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i].Path, err)
		}
	}
	return nil
}

// LoadBackup reads and migrates a snapshot. A file that is not a JSON
// document is rejected.
func (m *Manager) LoadBackup(path string) (schema.Result, error) {
	data, err := afero.ReadFile(m.fs, path)
	if err != nil {
		return schema.Result{}, fmt.Errorf("failed to read backup: %w", err)
	}
	if err := verify(data); err != nil {
		return schema.Result{}, fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}
	return schema.Migrate(data), nil
}

func verify(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("not a JSON object")
	}
	var probe map[string]json.RawMessage
	return json.Unmarshal(trimmed, &probe)
}

// ResolvePath finds a backup given an absolute path, a path relative to the
// working directory, or a bare file name inside the backup directory.
func (m *Manager) ResolvePath(name string) (string, error) {
	if filepath.IsAbs(name) {
		if !m.exists(name) {
			return "", fmt.Errorf("backup file not found: %s", name)
		}
		return name, nil
	}
	if m.exists(name) {
		abs, err := filepath.Abs(name)
		if err != nil {
			return "", fmt.Errorf("failed to resolve backup path: %w", err)
		}
		return abs, nil
	}
	candidate := filepath.Join(m.backupDir, name)
	if m.exists(candidate) {
		return candidate, nil
	}
	return "", fmt.Errorf("backup file not found: tried current directory and %s", m.backupDir)
}
