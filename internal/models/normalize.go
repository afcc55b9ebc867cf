package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/julianstephens/mydesk/internal/constants"
)

// NormalizeDuration coerces any submitted or persisted duration value into
// positive minutes. Unusable values (non-numeric, NaN, infinite, zero or
// negative) become the default duration; usable values are rounded and
// floored at the minimum.
func NormalizeDuration(v any) int {
	f, ok := durationValue(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return constants.DefaultDurationMin
	}
	// int conversion of out-of-range floats is undefined.
	f = min(f, math.MaxInt32)
	minutes := int(math.Round(f))
	if minutes < constants.MinDurationMin {
		return constants.MinDurationMin
	}
	return minutes
}

func durationValue(v any) (float64, bool) {
	switch d := v.(type) {
	case int:
		return float64(d), true
	case int64:
		return float64(d), true
	case float64:
		return d, true
	case json.Number:
		f, err := d.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(d), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// NormalizeColor validates a "#RRGGBB" or "#RGB" colour and returns it in
// canonical lowercase "#rrggbb" form.
func NormalizeColor(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 7 && len(s) != 4 {
		return "", false
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return "", false
	}
	return c.Hex(), true
}

// NormalizeTitle trims a title and substitutes the placeholder when blank.
func NormalizeTitle(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return constants.DefaultTitle
	}
	return s
}

// ParseRecurrence maps a recurrence string onto the enumeration. Unknown
// values report false.
func ParseRecurrence(s string) (constants.RecurrenceType, bool) {
	switch r := constants.RecurrenceType(strings.ToLower(strings.TrimSpace(s))); r {
	case constants.RecurrenceNone, constants.RecurrenceDaily, constants.RecurrenceWeekly,
		constants.RecurrenceMonthly, constants.RecurrenceYearly:
		return r, true
	default:
		return constants.RecurrenceNone, false
	}
}
