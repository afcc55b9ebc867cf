package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/mydesk/internal/constants"
)

// Wall-clock times carry no zone. They are stored as time.Time values in UTC,
// which is used only as a DST-free calendar carrier.

var wallClockLayouts = []string{
	constants.WallClockFormat,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// ParseWallClock parses a persisted or user-entered timestamp into a wall-clock
// time truncated to the minute. Zoned RFC3339 values are first converted to the
// local zone so the wall clock matches what the user saw when it was written.
func ParseWallClock(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	for _, layout := range wallClockLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.Truncate(time.Minute), nil
		}
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return WallClock(t.In(time.Local)).Truncate(time.Minute), nil
	}

	if t, err := time.ParseInLocation(constants.DateFormat, s, time.UTC); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("invalid timestamp %q (expected YYYY-MM-DDTHH:MM)", s)
}

// FormatWallClock renders t in the persisted format. The zero time renders as "".
func FormatWallClock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(constants.WallClockFormat)
}

// WallClock reinterprets the calendar fields of t as a wall-clock value.
func WallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// Now returns the current local wall-clock time.
func Now() time.Time {
	return WallClock(time.Now())
}
