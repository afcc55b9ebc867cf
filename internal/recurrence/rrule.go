package recurrence

import (
	"fmt"

	"github.com/teambition/rrule-go"

	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/models"
)

// clampDay is the first day of month that may not exist in every month.
const clampDay = 29

// RuleOption builds the iCalendar rule equivalent to the event's recurrence.
// Anchors that may fall past the end of a shorter month are expressed as
// "last of BYMONTHDAY=28..d" so calendar clients clamp the way the expander
// does. ok is false for non-recurring events.
func RuleOption(ev models.Event) (opt rrule.ROption, ok bool) {
	opt = rrule.ROption{Dtstart: ev.Start}

	switch ev.Recurrence {
	case constants.RecurrenceDaily:
		opt.Freq = rrule.DAILY
	case constants.RecurrenceWeekly:
		opt.Freq = rrule.WEEKLY
	case constants.RecurrenceMonthly:
		opt.Freq = rrule.MONTHLY
		if ev.Start.Day() >= clampDay {
			opt.Bymonthday = clampedMonthDays(ev.Start.Day())
			opt.Bysetpos = []int{-1}
		}
	case constants.RecurrenceYearly:
		opt.Freq = rrule.YEARLY
		if ev.Start.Day() >= clampDay {
			opt.Bymonth = []int{int(ev.Start.Month())}
			opt.Bymonthday = clampedMonthDays(ev.Start.Day())
			opt.Bysetpos = []int{-1}
		}
	default:
		return rrule.ROption{}, false
	}
	return opt, true
}

func clampedMonthDays(anchorDay int) []int {
	days := make([]int, 0, anchorDay-27)
	for d := 28; d <= anchorDay; d++ {
		days = append(days, d)
	}
	return days
}

// RuleString renders the RRULE value (without DTSTART) for ev.
func RuleString(ev models.Event) (string, bool) {
	opt, ok := RuleOption(ev)
	if !ok {
		return "", false
	}
	return opt.RRuleString(), true
}

// Rule compiles the event's recurrence into an rrule-go iterator.
func Rule(ev models.Event) (*rrule.RRule, error) {
	opt, ok := RuleOption(ev)
	if !ok {
		return nil, fmt.Errorf("event %s does not repeat", ev.ID)
	}
	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to build recurrence rule: %w", err)
	}
	return r, nil
}
