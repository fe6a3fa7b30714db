// Package departure computes when to leave work to reach home on time.
package departure

import (
	"time"

	"github.com/smartcommute/smartcommute/internal/commute"
	"github.com/smartcommute/smartcommute/internal/traffic"
)

// ModerateTrafficRatio is the ratio at which traffic counts as moderate.
const ModerateTrafficRatio = 1.1

// Severity classifies traffic by the ratio of traffic-aware to free-flow duration.
type Severity string

// Severity levels.
const (
	SeverityLight    Severity = "light"
	SeverityModerate Severity = "moderate"
	SeverityHeavy    Severity = "heavy"
)

// Label returns the user-facing traffic status.
func (s Severity) Label() string {
	switch s {
	case SeverityHeavy:
		return "🔴 Heavy traffic"
	case SeverityModerate:
		return "🟡 Moderate traffic"
	default:
		return "🟢 Light traffic"
	}
}

// Decision is the departure recommendation for one sample.
type Decision struct {
	TargetArrival time.Time `json:"target_arrival"`
	Departure     time.Time `json:"departure"`
	TravelMinutes int       `json:"travel_minutes"`
	Severity      Severity  `json:"severity"`
	TrafficRatio  float64   `json:"traffic_ratio"`
}

// MinutesUntilDeparture returns the fractional minutes from now until departure.
// Negative values mean the departure time has passed.
func (d Decision) MinutesUntilDeparture(now time.Time) float64 {
	return d.Departure.Sub(now).Minutes()
}

// Calculator turns traffic samples into departure decisions.
type Calculator struct {
	HeavyThreshold float64
}

// Recommend computes the departure time that reaches desiredArrival with
// bufferMinutes to spare. It is pure: the same inputs give the same Decision.
//
// desiredArrival is resolved on now's date; if that instant is already past
// it rolls over to the next day.
func (c Calculator) Recommend(sample *traffic.Sample, desiredArrival commute.TimeOfDay, bufferMinutes int, now time.Time) Decision {
	target := desiredArrival.On(now)
	if target.Before(now) {
		target = target.AddDate(0, 0, 1)
	}

	travelMinutes := ceilMinutes(sample.DurationInTrafficSeconds) + bufferMinutes

	return Decision{
		TargetArrival: target,
		Departure:     target.Add(-time.Duration(travelMinutes) * time.Minute),
		TravelMinutes: travelMinutes,
		Severity:      c.Classify(sample.TrafficRatio),
		TrafficRatio:  sample.TrafficRatio,
	}
}

// Classify maps a traffic ratio to a severity. Heavy is checked first.
func (c Calculator) Classify(ratio float64) Severity {
	switch {
	case ratio >= c.HeavyThreshold:
		return SeverityHeavy
	case ratio >= ModerateTrafficRatio:
		return SeverityModerate
	default:
		return SeverityLight
	}
}

func ceilMinutes(seconds int) int {
	if seconds <= 0 {
		return 0
	}
	return (seconds + 59) / 60
}
