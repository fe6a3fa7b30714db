package googlemaps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcommute/smartcommute/internal/routing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(ClientConfig{
		APIKey:     "mock123",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})
}

func TestClient_GetDirections_Success(t *testing.T) {
	respBody, err := os.ReadFile("testdata/directions_response.json")
	require.NoError(t, err)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, directionsPath, r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "Damrak 1, Amsterdam", q.Get("origin"))
		assert.Equal(t, "Oudegracht 100, Utrecht", q.Get("destination"))
		assert.Equal(t, "optimize:false|Basic-Fit Amstelveen", q.Get("waypoints"))
		assert.Equal(t, "now", q.Get("departure_time"))
		assert.Equal(t, "best_guess", q.Get("traffic_model"))
		assert.Equal(t, "mock123", q.Get("key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(respBody)
	})

	resp, err := client.GetDirections(context.Background(), routing.DirectionsRequest{
		Origin:      "Damrak 1, Amsterdam",
		Destination: "Oudegracht 100, Utrecht",
		Waypoints:   []string{"Basic-Fit Amstelveen"},
	})
	require.NoError(t, err)

	assert.Equal(t, ProviderName, resp.Provider)
	assert.False(t, resp.FetchedAt.IsZero())
	require.Len(t, resp.Routes, 1)

	route := resp.Routes[0]
	assert.Equal(t, "A2", route.Summary)
	require.Len(t, route.Legs, 2)

	first := route.Legs[0]
	assert.Equal(t, 840, first.DurationSeconds)
	require.NotNil(t, first.DurationInTrafficSeconds)
	assert.Equal(t, 1260, *first.DurationInTrafficSeconds)
	assert.Equal(t, 12100, first.DistanceMeters)
	assert.Equal(t, "Basic-Fit Amstelveen, Netherlands", first.EndAddress)

	assert.Equal(t, 1440, route.Legs[1].TrafficDurationSeconds())
}

func TestClient_GetDirections_OmitsWaypointsWhenEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["waypoints"]
		assert.False(t, present)
		_, _ = w.Write([]byte(`{"status":"OK","routes":[{"summary":"A1","legs":[{"duration":{"value":600},"distance":{"value":5000}}]}]}`))
	})

	resp, err := client.GetDirections(context.Background(), routing.DirectionsRequest{
		Origin:      "work",
		Destination: "home",
	})
	require.NoError(t, err)
	require.Len(t, resp.Routes, 1)

	leg := resp.Routes[0].Legs[0]
	assert.Nil(t, leg.DurationInTrafficSeconds)
	assert.Equal(t, 600, leg.TrafficDurationSeconds())
}

func TestClient_GetDirections_StatusErrors(t *testing.T) {
	tests := []struct {
		status   string
		sentinel error
	}{
		{statusZeroResults, routing.ErrNoRouteFound},
		{statusNotFound, routing.ErrNoRouteFound},
		{statusOverQueryLimit, routing.ErrRateLimitExceeded},
		{statusOverDailyLimit, routing.ErrRateLimitExceeded},
		{statusRequestDenied, routing.ErrRequestDenied},
		{statusInvalidRequest, routing.ErrInvalidRequest},
		{statusMaxWaypointsExceeded, routing.ErrInvalidRequest},
		{"UNKNOWN_ERROR", routing.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"status":"` + tt.status + `","routes":[]}`))
			})

			_, err := client.GetDirections(context.Background(), routing.DirectionsRequest{
				Origin:      "work",
				Destination: "home",
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var routeErr *routing.Error
			require.True(t, errors.As(err, &routeErr))
			assert.Equal(t, tt.status, routeErr.Code)
			assert.Equal(t, ProviderName, routeErr.Provider)
		})
	}
}

func TestClient_GetDirections_ZeroResultsFixture(t *testing.T) {
	respBody, err := os.ReadFile("testdata/zero_results_response.json")
	require.NoError(t, err)

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(respBody)
	})

	_, err = client.GetDirections(context.Background(), routing.DirectionsRequest{
		Origin:      "work",
		Destination: "nowhere",
	})
	assert.ErrorIs(t, err, routing.ErrNoRouteFound)
}

func TestClient_GetDirections_ErrorMessagePreserved(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid.","routes":[]}`))
	})

	_, err := client.GetDirections(context.Background(), routing.DirectionsRequest{
		Origin:      "work",
		Destination: "home",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "The provided API key is invalid.")
}

func TestClient_GetDirections_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetDirections(context.Background(), routing.DirectionsRequest{
		Origin:      "work",
		Destination: "home",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, routing.ErrProviderUnavailable)

	var routeErr *routing.Error
	require.True(t, errors.As(err, &routeErr))
	assert.Equal(t, "HTTP_502", routeErr.Code)
	assert.True(t, routeErr.IsRetryable())
}

func TestClient_GetDirections_InvalidJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})

	_, err := client.GetDirections(context.Background(), routing.DirectionsRequest{
		Origin:      "work",
		Destination: "home",
	})
	assert.ErrorIs(t, err, routing.ErrProviderUnavailable)
}

func TestClient_GetDirections_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := NewClient(ClientConfig{
		APIKey:  "mock123",
		BaseURL: server.URL,
		Logger:  zerolog.Nop(),
	})

	_, err := client.GetDirections(context.Background(), routing.DirectionsRequest{
		Origin:      "work",
		Destination: "home",
	})
	assert.ErrorIs(t, err, routing.ErrProviderUnavailable)
}

func TestClient_GetDirections_RequiresAddresses(t *testing.T) {
	client := NewClient(ClientConfig{APIKey: "mock123", Logger: zerolog.Nop()})

	_, err := client.GetDirections(context.Background(), routing.DirectionsRequest{Origin: "work"})
	assert.ErrorIs(t, err, routing.ErrInvalidRequest)
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(ClientConfig{APIKey: "k", Logger: zerolog.Nop()})

	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.Equal(t, ProviderName, client.Name())
}

func TestNewClient_TrimsBaseURL(t *testing.T) {
	client := NewClient(ClientConfig{APIKey: "k", BaseURL: "http://localhost:9999/", Logger: zerolog.Nop()})
	assert.Equal(t, "http://localhost:9999", client.baseURL)
}
