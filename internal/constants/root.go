package constants

import "time"

const (
	AppName            = "mydesk"
	DefaultKeyringUser = "database-connection"
	ScraperKeyringUser = "portal-password"
	DefaultConfigDir   = "~/.config/mydesk"
	DefaultConfigFile  = "config.yaml"
	DefaultCacheFile   = "mydesk.db"
	Version            = "v0.3.0"

	// Environment overrides for the PostgreSQL cache
	EnvDBConnection = "MYDESK_DB_CONNECTION"
	EnvDBPassword   = "MYDESK_DB_PASSWORD"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// WallClockFormat is the persisted event start format (YYYY-MM-DDTHH:MM, no zone)
	WallClockFormat = "2006-01-02T15:04"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "mydesk-"
	BackupFileSuffix = ".json"

	// Storage keys and file names
	DataKey         = "mydesk-data"
	FolderGrantKey  = "data-folder"
	DataFileName    = "mydesk-data.json"
	CredentialsFile = "credentials.txt"

	// DefaultQuietPeriod is the debounce delay before the external file write
	DefaultQuietPeriod = 600 * time.Millisecond

	// ExternalWriteTimeout bounds a single debounced external write
	ExternalWriteTimeout = 10 * time.Second
)
