package models

import "time"

// HealthStatus is the coarse health of the service or one of its providers.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Health is the body of GET /v1/ops/health.
type Health struct {
	Status    HealthStatus     `json:"status"`
	Time      time.Time        `json:"time"`
	Version   string           `json:"version,omitempty"`
	BuildTime string           `json:"buildTime,omitempty"`
	Monitor   MonitorHealth    `json:"monitor"`
	Providers []ProviderStatus `json:"providers"`
}

// MonitorHealth reports the polling loop.
type MonitorHealth struct {
	Running    bool       `json:"running"`
	LastTickAt *time.Time `json:"lastTickAt,omitempty"`
}

// ProviderStatus reports one outbound provider's circuit breaker.
type ProviderStatus struct {
	Provider            string       `json:"provider"`
	Status              HealthStatus `json:"status"`
	CircuitState        string       `json:"circuitState"`
	ConsecutiveFailures uint32       `json:"consecutiveFailures"`
	LastSuccessAt       *time.Time   `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *time.Time   `json:"lastFailureAt,omitempty"`
	LastError           string       `json:"lastError,omitempty"`
}
