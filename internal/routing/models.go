// Package routing defines the directions provider used to sample live traffic
// on the commute route.
package routing

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the provider could not be reached or failed.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no route exists between the given addresses.
	ErrNoRouteFound = errors.New("no route found between the given addresses")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrRequestDenied indicates the API key was rejected.
	ErrRequestDenied = errors.New("request denied by routing provider")
	// ErrInvalidRequest indicates the request itself was malformed.
	ErrInvalidRequest = errors.New("invalid directions request")
)

// Traffic request defaults.
const (
	DepartureNow     = "now"
	TrafficBestGuess = "best_guess"
)

// Provider fetches driving directions with live traffic.
type Provider interface {
	// GetDirections retrieves directions from origin to destination via the waypoints.
	GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error)
	// Name returns the provider identifier for logging.
	Name() string
}

// DirectionsRequest is a request for one route with traffic estimates.
type DirectionsRequest struct {
	Origin        string
	Destination   string
	Waypoints     []string // Visited in order, never optimized
	DepartureTime string   // "now" or a unix timestamp
	TrafficModel  string   // best_guess, pessimistic or optimistic
}

// DirectionsResponse holds the routes returned by the provider.
type DirectionsResponse struct {
	Routes    []Route
	Provider  string
	FetchedAt time.Time
}

// Route is one route option made up of legs between consecutive stops.
type Route struct {
	Summary string
	Legs    []Leg
}

// Leg is one segment of a route between two consecutive stops.
type Leg struct {
	DurationSeconds          int
	DurationInTrafficSeconds *int // nil when the provider has no traffic estimate
	DistanceMeters           int
	StartAddress             string
	EndAddress               string
}

// TrafficDurationSeconds returns the traffic-aware duration, falling back to
// the free-flow duration when no traffic estimate is present.
func (l Leg) TrafficDurationSeconds() int {
	if l.DurationInTrafficSeconds != nil {
		return *l.DurationInTrafficSeconds
	}
	return l.DurationSeconds
}

// Error provides detailed error information from the routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Provider status code, e.g. ZERO_RESULTS or HTTP_502
	Message  string // Human-readable error message
	Err      error  // Underlying sentinel error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
