// Package googlemaps provides a client for the Google Maps Directions API
// with live traffic estimates.
package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartcommute/smartcommute/internal/provider/resilience"
	"github.com/smartcommute/smartcommute/internal/routing"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "googlemaps"

	// DefaultBaseURL is the Google Maps API base URL.
	DefaultBaseURL = "https://maps.googleapis.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	directionsPath = "/maps/api/directions/json"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Directions client.
type ClientConfig struct {
	// APIKey is the Google Maps API key (required).
	APIKey string

	// BaseURL overrides the API base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, a single-attempt resilient client is used: the directions
	// lookup is one best-effort call per poll.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Google Maps Directions API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
	now        func() time.Time
}

// NewClient creates a new Directions client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.SingleAttempt = true
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
		now:        time.Now,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetDirections retrieves a driving route with traffic-aware durations.
func (c *Client) GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	if strings.TrimSpace(req.Origin) == "" || strings.TrimSpace(req.Destination) == "" {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "INVALID_ADDRESS",
			Message:  "origin and destination are required",
			Err:      routing.ErrInvalidRequest,
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.directionsURL(req), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("origin", req.Origin).
		Str("destination", req.Destination).
		Int("waypoints", len(req.Waypoints)).
		Msg("requesting directions from Google Maps")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing provider",
			Err:      routing.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message:  fmt.Sprintf("routing provider returned status %d", resp.StatusCode),
			Err:      routing.ErrProviderUnavailable,
		}
	}

	var dirResp directionsResponse
	if err := json.Unmarshal(body, &dirResp); err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "INVALID_RESPONSE",
			Message:  "routing provider returned an unreadable response",
			Err:      routing.ErrProviderUnavailable,
		}
	}

	if dirResp.Status != statusOK {
		return nil, statusError(dirResp.Status, dirResp.ErrorMessage)
	}

	result := c.toDirectionsResponse(&dirResp)

	c.logger.Debug().
		Int("route_count", len(result.Routes)).
		Msg("received directions from Google Maps")

	return result, nil
}

// directionsURL builds the request URL. Waypoints are passed with
// optimize:false so they are visited in the user's order.
func (c *Client) directionsURL(req routing.DirectionsRequest) string {
	departure := req.DepartureTime
	if departure == "" {
		departure = routing.DepartureNow
	}
	model := req.TrafficModel
	if model == "" {
		model = routing.TrafficBestGuess
	}

	q := url.Values{}
	q.Set("origin", req.Origin)
	q.Set("destination", req.Destination)
	q.Set("departure_time", departure)
	q.Set("traffic_model", model)
	if len(req.Waypoints) > 0 {
		q.Set("waypoints", "optimize:false|"+strings.Join(req.Waypoints, "|"))
	}
	q.Set("key", c.apiKey)

	return c.baseURL + directionsPath + "?" + q.Encode()
}

// statusError maps a non-OK Directions API status to a domain error.
func statusError(status, message string) error {
	if message == "" {
		message = "routing provider returned status " + status
	}

	var sentinel error
	switch status {
	case statusZeroResults, statusNotFound, statusMaxRouteLength:
		sentinel = routing.ErrNoRouteFound
	case statusOverQueryLimit, statusOverDailyLimit:
		sentinel = routing.ErrRateLimitExceeded
	case statusRequestDenied:
		sentinel = routing.ErrRequestDenied
	case statusInvalidRequest, statusMaxWaypointsExceeded:
		sentinel = routing.ErrInvalidRequest
	default:
		sentinel = routing.ErrProviderUnavailable
	}

	return &routing.Error{
		Provider: ProviderName,
		Code:     status,
		Message:  message,
		Err:      sentinel,
	}
}

// toDirectionsResponse converts the API response to the domain model.
func (c *Client) toDirectionsResponse(resp *directionsResponse) *routing.DirectionsResponse {
	routes := make([]routing.Route, 0, len(resp.Routes))

	for i := range resp.Routes {
		entry := &resp.Routes[i]
		route := routing.Route{
			Summary: entry.Summary,
			Legs:    make([]routing.Leg, 0, len(entry.Legs)),
		}

		for j := range entry.Legs {
			leg := &entry.Legs[j]
			domainLeg := routing.Leg{
				DurationSeconds: leg.Duration.Value,
				DistanceMeters:  leg.Distance.Value,
				StartAddress:    leg.StartAddress,
				EndAddress:      leg.EndAddress,
			}
			if leg.DurationInTraffic != nil {
				v := leg.DurationInTraffic.Value
				domainLeg.DurationInTrafficSeconds = &v
			}
			route.Legs = append(route.Legs, domainLeg)
		}

		routes = append(routes, route)
	}

	return &routing.DirectionsResponse{
		Routes:    routes,
		Provider:  ProviderName,
		FetchedAt: c.now(),
	}
}
