package googlemaps

// directionsResponse is the Directions API JSON response.
type directionsResponse struct {
	Status       string       `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Routes       []routeEntry `json:"routes"`
}

// routeEntry is one route in the response.
type routeEntry struct {
	Summary    string     `json:"summary"`
	Legs       []legEntry `json:"legs"`
	Warnings   []string   `json:"warnings,omitempty"`
	Copyrights string     `json:"copyrights,omitempty"`
}

// legEntry is one leg between consecutive stops.
type legEntry struct {
	Duration          textValue  `json:"duration"`
	DurationInTraffic *textValue `json:"duration_in_traffic,omitempty"`
	Distance          textValue  `json:"distance"`
	StartAddress      string     `json:"start_address"`
	EndAddress        string     `json:"end_address"`
}

// textValue is the {value, text} pair used for durations (s) and distances (m).
type textValue struct {
	Value int    `json:"value"`
	Text  string `json:"text"`
}

// Directions API status codes.
const (
	statusOK                   = "OK"
	statusNotFound             = "NOT_FOUND"
	statusZeroResults          = "ZERO_RESULTS"
	statusMaxWaypointsExceeded = "MAX_WAYPOINTS_EXCEEDED"
	statusMaxRouteLength       = "MAX_ROUTE_LENGTH_EXCEEDED"
	statusInvalidRequest       = "INVALID_REQUEST"
	statusOverDailyLimit       = "OVER_DAILY_LIMIT"
	statusOverQueryLimit       = "OVER_QUERY_LIMIT"
	statusRequestDenied        = "REQUEST_DENIED"
)
