// Package session holds the per-session view state: the displayed week, the
// selected event and a resize in progress. Every update returns a new State.
package session

import (
	"time"

	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/models"
	"github.com/julianstephens/mydesk/internal/recurrence"
)

// Resize is a duration change that has not been committed yet.
type Resize struct {
	EventID  string
	Original int
	Duration int
}

type State struct {
	WeekStart time.Time
	Selected  string
	Resize    *Resize
}

// New starts on the week of lastWeekStart when it is set, otherwise on the
// week containing now.
func New(now time.Time, lastWeekStart *time.Time) State {
	if lastWeekStart != nil && !lastWeekStart.IsZero() {
		return State{WeekStart: recurrence.StartOfWeek(*lastWeekStart)}
	}
	return State{WeekStart: recurrence.StartOfWeek(now)}
}

func (s State) NextWeek() State {
	s.WeekStart = s.WeekStart.AddDate(0, 0, 7)
	return s
}

func (s State) PrevWeek() State {
	s.WeekStart = s.WeekStart.AddDate(0, 0, -7)
	return s
}

// Today jumps to the week containing now.
func (s State) Today(now time.Time) State {
	s.WeekStart = recurrence.StartOfWeek(now)
	return s
}

// GoTo jumps to the week containing date.
func (s State) GoTo(date time.Time) State {
	s.WeekStart = recurrence.StartOfWeek(date)
	return s
}

// WeekEnd is the exclusive end of the displayed week.
func (s State) WeekEnd() time.Time {
	return s.WeekStart.AddDate(0, 0, 7)
}

func (s State) Select(id string) State {
	s.Selected = id
	return s
}

func (s State) ClearSelection() State {
	s.Selected = ""
	return s
}

// BeginResize starts resizing ev from its current duration.
func (s State) BeginResize(ev models.Event) State {
	s.Resize = &Resize{EventID: ev.ID, Original: ev.Duration, Duration: ev.Duration}
	return s
}

// UpdateResize moves the resize handle by delta minutes from where it began.
// The result snaps to the resize step and never drops below the minimum.
func (s State) UpdateResize(delta int) State {
	if s.Resize == nil {
		return s
	}
	r := *s.Resize
	r.Duration = Snap(r.Original + delta)
	s.Resize = &r
	return s
}

// CommitResize ends the resize and returns the event id and final duration.
// ok is false when no resize was in progress or the duration is unchanged.
func (s State) CommitResize() (next State, id string, duration int, ok bool) {
	r := s.Resize
	s.Resize = nil
	if r == nil || r.Duration == r.Original {
		return s, "", 0, false
	}
	return s, r.EventID, r.Duration, true
}

func (s State) CancelResize() State {
	s.Resize = nil
	return s
}

// Forget drops references to an event that no longer exists.
func (s State) Forget(id string) State {
	if s.Selected == id {
		s.Selected = ""
	}
	if s.Resize != nil && s.Resize.EventID == id {
		s.Resize = nil
	}
	return s
}

// Snap rounds minutes to the nearest resize step, flooring at the minimum
// duration.
func Snap(minutes int) int {
	step := constants.ResizeStepMin
	var snapped int
	if minutes >= 0 {
		snapped = (minutes + step/2) / step * step
	} else {
		snapped = -((-minutes + step/2) / step * step)
	}
	if snapped < constants.MinDurationMin {
		return constants.MinDurationMin
	}
	return snapped
}
