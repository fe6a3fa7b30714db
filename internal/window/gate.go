// Package window decides which polling ticks fall inside the daily
// monitoring window and when the day's notification state resets.
package window

import (
	"time"

	"github.com/smartcommute/smartcommute/internal/alert"
	"github.com/smartcommute/smartcommute/internal/commute"
)

// DefaultGrace is how long after the desired arrival monitoring continues.
const DefaultGrace = 30 * time.Minute

// resetWindow is the span after midnight in which the daily reset happens.
const resetWindow = 5 * time.Minute

// Gate admits ticks between the check time and desired arrival plus grace.
type Gate struct {
	CheckTime      commute.TimeOfDay
	DesiredArrival commute.TimeOfDay
	Grace          time.Duration
}

// NewGate creates a Gate with the default grace period.
func NewGate(checkTime, desiredArrival commute.TimeOfDay) Gate {
	return Gate{CheckTime: checkTime, DesiredArrival: desiredArrival, Grace: DefaultGrace}
}

// Admit reports whether now lies in [check time, desired arrival + grace]
// on now's date. Both ends are inclusive.
func (g Gate) Admit(now time.Time) bool {
	start := g.CheckTime.On(now)
	end := g.DesiredArrival.On(now).Add(g.Grace)
	return !now.Before(start) && !now.After(end)
}

// Window returns the admission bounds on now's date.
func (g Gate) Window(now time.Time) (start, end time.Time) {
	return g.CheckTime.On(now), g.DesiredArrival.On(now).Add(g.Grace)
}

// MaybeReset returns a fresh state when now is within five minutes after
// midnight and the state belongs to an earlier day. The second return value
// reports whether a reset happened.
func (g Gate) MaybeReset(now time.Time, state alert.State) (alert.State, bool) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if now.Sub(midnight) >= resetWindow {
		return state, false
	}
	if state.BelongsTo(now) {
		return state, false
	}
	return alert.NewState(now), true
}
