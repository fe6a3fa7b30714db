// Package alert decides which commute notification, if any, to send on a
// tick. The decision is a pure transition over the day's State.
package alert

import "time"

// Phase is the informational progress of the day's notifications.
type Phase string

// Phases.
const (
	PhaseIdle              Phase = "idle"
	PhaseEarlyWarned       Phase = "early_warned"
	PhaseDepartureNotified Phase = "departure_notified"
)

const dayLayout = "2006-01-02"

// State tracks the notifications already delivered on one calendar day.
// It is replaced wholesale at the daily reset, never merged.
type State struct {
	Day                  string     `json:"day"`
	DepartureNotified    bool       `json:"departure_notified"`
	EarlyWarningNotified bool       `json:"early_warning_notified"`
	LastNotifiedAt       *time.Time `json:"last_notified_at,omitempty"`
	Phase                Phase      `json:"phase"`
}

// NewState returns the empty state for the day containing now.
func NewState(now time.Time) State {
	return State{Day: DayOf(now), Phase: PhaseIdle}
}

// DayOf returns the calendar date of t in t's location.
func DayOf(t time.Time) string {
	return t.Format(dayLayout)
}

// BelongsTo reports whether the state was created for now's calendar day.
func (s State) BelongsTo(now time.Time) bool {
	return s.Day == DayOf(now)
}
