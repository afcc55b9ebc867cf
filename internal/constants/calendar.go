package constants

// RecurrenceType represents how an event repeats
type RecurrenceType string

const (
	RecurrenceNone    RecurrenceType = "none"
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
	RecurrenceYearly  RecurrenceType = "yearly"

	// MaxRecurrenceIterations caps every occurrence walk
	MaxRecurrenceIterations = 366

	DefaultDurationMin = 60 // used when a duration is missing or unusable
	MinDurationMin     = 15 // floor applied to positive durations
	ResizeStepMin      = 15

	DefaultEventColor = "#4e73df"
	DefaultTitle      = "Untitled event"
	TypeNamePrefix    = "Type"
	DefaultMapName    = "Map 1"

	// Scraper colour heuristics
	ScrapeColorDefault     = "#66b2ff"
	ScrapeColorAbbrev      = "#989ea6"
	ScrapeColorSupport     = "#80ffb0"
	ScrapeColorInformation = "#808fff"
	ScrapeColorOral        = "#f5bd00"
)

// Conflict types reported by validation
type ConflictType string

const (
	ConflictOverlappingOccurrences ConflictType = "overlapping_occurrences"
	ConflictExceedsDayWindow       ConflictType = "exceeds_day_window"
	ConflictInvalidStart           ConflictType = "invalid_start"
)
