package commute

import (
	"slices"
	"strings"
	"sync"
)

// RouteConfig is the startup configuration of the monitored route.
type RouteConfig struct {
	WorkAddress           string
	HomeAddress           string
	Waypoints             []string
	CheckTime             TimeOfDay
	DesiredArrival        TimeOfDay
	BufferMinutes         int
	HeavyTrafficThreshold float64
}

// Route is the monitored work-to-home route. Only the stop list is mutable;
// it is safe to change from the command surface while the poll loop reads it.
type Route struct {
	workAddress           string
	homeAddress           string
	checkTime             TimeOfDay
	desiredArrival        TimeOfDay
	bufferMinutes         int
	heavyTrafficThreshold float64

	mu    sync.RWMutex
	stops []string
}

// NewRoute validates cfg and creates a Route.
func NewRoute(cfg RouteConfig) (*Route, error) {
	var errs []FieldError

	if strings.TrimSpace(cfg.WorkAddress) == "" {
		errs = append(errs, FieldError{Field: "workAddress", Message: "is required"})
	}
	if strings.TrimSpace(cfg.HomeAddress) == "" {
		errs = append(errs, FieldError{Field: "homeAddress", Message: "is required"})
	}
	if cfg.BufferMinutes < 0 {
		errs = append(errs, FieldError{Field: "bufferMinutes", Message: "must not be negative"})
	}
	if cfg.HeavyTrafficThreshold <= 1.0 {
		errs = append(errs, FieldError{Field: "heavyTrafficThreshold", Message: "must be greater than 1.0"})
	}

	var stops []string
	for _, wp := range cfg.Waypoints {
		wp = strings.TrimSpace(wp)
		switch {
		case wp == "":
			errs = append(errs, FieldError{Field: "waypoints", Message: "must not contain empty addresses"})
		case slices.Contains(stops, wp):
			errs = append(errs, FieldError{Field: "waypoints", Message: "must not contain duplicates"})
		default:
			stops = append(stops, wp)
		}
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return &Route{
		workAddress:           strings.TrimSpace(cfg.WorkAddress),
		homeAddress:           strings.TrimSpace(cfg.HomeAddress),
		checkTime:             cfg.CheckTime,
		desiredArrival:        cfg.DesiredArrival,
		bufferMinutes:         cfg.BufferMinutes,
		heavyTrafficThreshold: cfg.HeavyTrafficThreshold,
		stops:                 stops,
	}, nil
}

// WorkAddress is the route origin.
func (r *Route) WorkAddress() string { return r.workAddress }

// HomeAddress is the route destination.
func (r *Route) HomeAddress() string { return r.homeAddress }

// CheckTime is when daily monitoring starts.
func (r *Route) CheckTime() TimeOfDay { return r.checkTime }

// DesiredArrival is the target arrival time at home.
func (r *Route) DesiredArrival() TimeOfDay { return r.desiredArrival }

// BufferMinutes is the slack added on top of the travel time.
func (r *Route) BufferMinutes() int { return r.bufferMinutes }

// HeavyTrafficThreshold is the traffic ratio at which traffic counts as heavy.
func (r *Route) HeavyTrafficThreshold() float64 { return r.heavyTrafficThreshold }

// Stops returns a copy of the stops in insertion order, or nil when there
// are none.
func (r *Route) Stops() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.stops) == 0 {
		return nil
	}
	return slices.Clone(r.stops)
}

// AddStop appends a stop. Adding an existing stop is a no-op that returns
// ErrStopExists.
func (r *Route) AddStop(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return ErrEmptyStop
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if slices.Contains(r.stops, address) {
		return ErrStopExists
	}
	r.stops = append(r.stops, address)
	return nil
}

// RemoveStop removes a stop, keeping the order of the others.
func (r *Route) RemoveStop(address string) error {
	address = strings.TrimSpace(address)

	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.Index(r.stops, address)
	if i < 0 {
		return ErrStopNotFound
	}
	r.stops = slices.Delete(r.stops, i, i+1)
	return nil
}

// ClearStops removes every stop and returns how many were removed.
func (r *Route) ClearStops() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.stops)
	r.stops = nil
	return n
}

// FullRoute returns work, the stops, then home.
func (r *Route) FullRoute() []string {
	stops := r.Stops()
	full := make([]string, 0, len(stops)+2)
	full = append(full, r.workAddress)
	full = append(full, stops...)
	return append(full, r.homeAddress)
}

// Config returns a snapshot of the route settings including the current stops.
func (r *Route) Config() RouteConfig {
	return RouteConfig{
		WorkAddress:           r.workAddress,
		HomeAddress:           r.homeAddress,
		Waypoints:             r.Stops(),
		CheckTime:             r.checkTime,
		DesiredArrival:        r.desiredArrival,
		BufferMinutes:         r.bufferMinutes,
		HeavyTrafficThreshold: r.heavyTrafficThreshold,
	}
}
