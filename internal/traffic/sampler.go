package traffic

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartcommute/smartcommute/internal/routing"
)

// Sentinel errors wrapped by SampleError.
var (
	ErrMissingAddress  = errors.New("origin and destination are required")
	ErrEmptyWaypoint   = errors.New("waypoint must not be empty")
	ErrNoRoute         = errors.New("provider returned no route")
	ErrNoLegs          = errors.New("route has no legs")
	ErrZeroFreeFlowETA = errors.New("free-flow duration is zero")
)

// SamplerConfig holds configuration for the Sampler.
type SamplerConfig struct {
	Provider routing.Provider
	Logger   zerolog.Logger
}

// Sampler fetches and normalizes traffic samples.
type Sampler struct {
	provider routing.Provider
	logger   zerolog.Logger
	now      func() time.Time
}

// NewSampler creates a Sampler.
func NewSampler(cfg SamplerConfig) *Sampler {
	return &Sampler{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

// Sample makes exactly one directions call and normalizes the first route.
// Every failure is returned as a *SampleError.
func (s *Sampler) Sample(ctx context.Context, origin, destination string, waypoints []string) (*Sample, error) {
	if strings.TrimSpace(origin) == "" || strings.TrimSpace(destination) == "" {
		return nil, &SampleError{Reason: "invalid request", Err: ErrMissingAddress}
	}
	for _, wp := range waypoints {
		if strings.TrimSpace(wp) == "" {
			return nil, &SampleError{Reason: "invalid request", Err: ErrEmptyWaypoint}
		}
	}

	resp, err := s.provider.GetDirections(ctx, routing.DirectionsRequest{
		Origin:        origin,
		Destination:   destination,
		Waypoints:     waypoints,
		DepartureTime: routing.DepartureNow,
		TrafficModel:  routing.TrafficBestGuess,
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("provider", s.provider.Name()).
			Msg("directions lookup failed")
		return nil, &SampleError{Reason: "directions lookup failed", Err: err}
	}

	sample, err := s.normalize(resp, waypoints)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int("duration_s", sample.DurationSeconds).
		Int("duration_in_traffic_s", sample.DurationInTrafficSeconds).
		Float64("traffic_ratio", sample.TrafficRatio).
		Str("summary", sample.Summary).
		Msg("traffic sampled")

	return sample, nil
}

func (s *Sampler) normalize(resp *routing.DirectionsResponse, waypoints []string) (*Sample, error) {
	if resp == nil || len(resp.Routes) == 0 {
		return nil, &SampleError{Reason: "no route", Err: ErrNoRoute}
	}

	route := resp.Routes[0]
	if len(route.Legs) == 0 {
		return nil, &SampleError{Reason: "no route", Err: ErrNoLegs}
	}

	sample := &Sample{
		Summary:      route.Summary,
		StartAddress: route.Legs[0].StartAddress,
		EndAddress:   route.Legs[len(route.Legs)-1].EndAddress,
		SampledAt:    s.now(),
	}

	for _, leg := range route.Legs {
		sample.DurationSeconds += leg.DurationSeconds
		sample.DurationInTrafficSeconds += leg.TrafficDurationSeconds()
		sample.DistanceMeters += leg.DistanceMeters
	}

	if sample.DurationSeconds <= 0 {
		return nil, &SampleError{Reason: "invalid durations", Err: ErrZeroFreeFlowETA}
	}
	sample.TrafficRatio = float64(sample.DurationInTrafficSeconds) / float64(sample.DurationSeconds)

	if len(waypoints) > 0 {
		sample.Stops = stopLegs(route.Legs, waypoints)
	}

	return sample, nil
}

// stopLegs pairs every leg but the last with the waypoint it ends at.
func stopLegs(legs []routing.Leg, waypoints []string) []StopLeg {
	stops := make([]StopLeg, 0, len(legs)-1)
	for i, leg := range legs[:len(legs)-1] {
		address := UnknownStopAddress
		if i < len(waypoints) {
			address = waypoints[i]
		}
		stops = append(stops, StopLeg{
			Address:         address,
			DurationSeconds: leg.DurationSeconds,
			DistanceMeters:  leg.DistanceMeters,
		})
	}
	return stops
}
