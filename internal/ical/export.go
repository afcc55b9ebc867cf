// Package ical exports calendar events as an iCalendar feed.
package ical

import (
	"io"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/models"
	"github.com/julianstephens/mydesk/internal/recurrence"
)

// floatingLayout renders wall-clock times without a zone, so clients show
// them in their own local time.
const floatingLayout = "20060102T150405"

// PropertyColor carries the event colour as a vendor extension.
const PropertyColor ics.ComponentProperty = "X-MYDESK-COLOR"

// Build converts the calendar into an iCalendar document. Events without a
// usable start are skipped. Type names become CATEGORIES.
func Build(cal models.Calendar, stamp time.Time) *ics.Calendar {
	out := ics.NewCalendar()
	out.SetMethod(ics.MethodPublish)
	out.SetProductId("-//" + constants.AppName + "//" + constants.Version + "//EN")
	out.SetXWRCalName(constants.AppName)

	names := make(map[string]string, len(cal.Types))
	for _, t := range cal.Types {
		names[t.ID] = t.Name
	}

	for _, ev := range cal.Events {
		if ev.Start.IsZero() || ev.Duration <= 0 {
			continue
		}
		vevent := out.AddEvent(ev.ID + "@" + constants.AppName)
		vevent.SetDtStampTime(stamp)
		vevent.SetProperty(ics.ComponentPropertyDtStart, ev.Start.Format(floatingLayout))
		vevent.SetProperty(ics.ComponentPropertyDtEnd, ev.End().Format(floatingLayout))
		vevent.SetSummary(ev.Title)
		if ev.Color != "" {
			vevent.SetProperty(PropertyColor, ev.Color)
		}
		if name, ok := names[ev.TypeID]; ok && ev.TypeID != "" {
			vevent.SetProperty(ics.ComponentPropertyCategories, name)
		}
		if rule, ok := recurrence.RuleString(ev); ok {
			vevent.AddRrule(rule)
		}
	}
	return out
}

// Write serialises the calendar to w.
func Write(w io.Writer, cal models.Calendar, stamp time.Time) error {
	_, err := io.WriteString(w, Build(cal, stamp).Serialize())
	return err
}
