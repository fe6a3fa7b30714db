// Package commute holds the single monitored route: the fixed work and home
// addresses, the user's intermediate stops and the daily timing settings.
package commute

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Route errors.
var (
	ErrStopExists   = errors.New("stop already exists")
	ErrStopNotFound = errors.New("stop not found")
	ErrEmptyStop    = errors.New("stop address is empty")
	ErrInvalidTime  = errors.New("time must be in HH:MM format")
)

// timeHHMMRegex validates HH:MM format.
var timeHHMMRegex = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses an "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m := timeHHMMRegex.FindStringSubmatch(s)
	if m == nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// MustParseTimeOfDay is like ParseTimeOfDay but panics on error.
func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// On returns the instant at this time of day on ref's calendar date, in ref's location.
func (t TimeOfDay) On(ref time.Time) time.Time {
	y, m, d := ref.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, ref.Location())
}

// String formats the time as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// FieldError is a validation error on a single route setting.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError collects every invalid route setting.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msg := "invalid route configuration"
	for i, fe := range e.Errors {
		if i == 0 {
			msg += ": "
		} else {
			msg += "; "
		}
		msg += fe.Field + " " + fe.Message
	}
	return msg
}
