package alert

import (
	"time"

	"github.com/smartcommute/smartcommute/internal/departure"
)

// Decision windows, in minutes until departure.
const (
	DepartureWindowMinutes    = 5.0
	EarlyWarningWindowMinutes = 20.0
	TooEarlyMinutes           = 30.0
)

// Kind identifies a notification type.
type Kind string

// Notification kinds.
const (
	KindNone           Kind = "none"
	KindDepartureAlert Kind = "departure_alert"
	KindEarlyWarning   Kind = "early_warning"
	KindLateWarning    Kind = "late_warning"
)

// Intent is the notification the engine wants sent.
type Intent struct {
	Kind         Kind
	MinutesEarly int // set for KindEarlyWarning
}

// None reports whether nothing should be sent.
func (i Intent) None() bool {
	return i.Kind == KindNone
}

// Outcome is the result of one decision. Next must only be committed once
// the intent has been delivered.
type Outcome struct {
	Intent Intent
	Next   State
	Reason string
}

// Engine is the notification state machine.
type Engine struct{}

// Decide picks at most one intent for this tick.
func (Engine) Decide(now time.Time, d departure.Decision, state State) Outcome {
	m := d.MinutesUntilDeparture(now)

	switch {
	case m >= 0 && m <= DepartureWindowMinutes && !state.DepartureNotified:
		next := state
		next.DepartureNotified = true
		next.LastNotifiedAt = timePtr(now)
		next.Phase = PhaseDepartureNotified
		return Outcome{
			Intent: Intent{Kind: KindDepartureAlert},
			Next:   next,
			Reason: "departure window reached",
		}

	// Repeats on every tick inside the window; EarlyWarningNotified is
	// recorded but not consulted.
	case d.Severity == departure.SeverityHeavy && m > DepartureWindowMinutes && m <= EarlyWarningWindowMinutes && !state.DepartureNotified:
		next := state
		next.EarlyWarningNotified = true
		next.LastNotifiedAt = timePtr(now)
		next.Phase = PhaseEarlyWarned
		return Outcome{
			Intent: Intent{Kind: KindEarlyWarning, MinutesEarly: int(m)},
			Next:   next,
			Reason: "heavy traffic ahead of departure",
		}

	case m > TooEarlyMinutes:
		return Outcome{Intent: Intent{Kind: KindNone}, Next: state, Reason: "too early"}

	case m < 0 && !state.DepartureNotified:
		next := state
		next.DepartureNotified = true
		next.LastNotifiedAt = timePtr(now)
		next.Phase = PhaseDepartureNotified
		return Outcome{
			Intent: Intent{Kind: KindLateWarning},
			Next:   next,
			Reason: "departure time passed",
		}

	case state.DepartureNotified:
		return Outcome{Intent: Intent{Kind: KindNone}, Next: state, Reason: "already notified today"}

	default:
		return Outcome{Intent: Intent{Kind: KindNone}, Next: state, Reason: "waiting"}
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
