// Package traffic samples live traffic on the commute route and normalizes
// the provider response into totals and per-stop legs.
package traffic

import (
	"fmt"
	"time"
)

// UnknownStopAddress labels a leg that has no matching waypoint.
const UnknownStopAddress = "unknown"

// Sample is one normalized traffic observation for the full route.
type Sample struct {
	DurationSeconds          int       `json:"duration_seconds"`
	DurationInTrafficSeconds int       `json:"duration_in_traffic_seconds"`
	DistanceMeters           int       `json:"distance_meters"`
	TrafficRatio             float64   `json:"traffic_ratio"`
	Summary                  string    `json:"summary"`
	Stops                    []StopLeg `json:"stops,omitempty"`
	StartAddress             string    `json:"start_address"`
	EndAddress               string    `json:"end_address"`
	SampledAt                time.Time `json:"sampled_at"`
}

// StopLeg describes the leg that ends at a waypoint.
type StopLeg struct {
	Address         string `json:"address"`
	DurationSeconds int    `json:"duration_seconds"`
	DistanceMeters  int    `json:"distance_meters"`
}

// TravelTime returns the traffic-aware duration.
func (s *Sample) TravelTime() time.Duration {
	return time.Duration(s.DurationInTrafficSeconds) * time.Second
}

// SampleError reports why a traffic sample could not be produced.
type SampleError struct {
	Reason string
	Err    error
}

func (e *SampleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("traffic sample: %s: %v", e.Reason, e.Err)
	}
	return "traffic sample: " + e.Reason
}

func (e *SampleError) Unwrap() error {
	return e.Err
}
