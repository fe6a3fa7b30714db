// Package handler implements the status API endpoints.
package handler

import (
	"net/http"
	"time"

	"github.com/smartcommute/smartcommute/internal/api/models"
	"github.com/smartcommute/smartcommute/internal/api/response"
	"github.com/smartcommute/smartcommute/internal/provider/resilience"
)

// OpsHandler serves the health endpoint.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	monitor   Monitor
	now       func() time.Time
}

// NewOpsHandler creates an OpsHandler. registry may be nil.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry, monitor Monitor) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		registry:  registry,
		monitor:   monitor,
		now:       time.Now,
	}
}

// HealthCheck handles GET /v1/ops/health. It answers 503 when the polling
// loop is not running and reports DEGRADED while any provider circuit is
// not closed.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status:    models.HealthStatusOK,
		Time:      h.now().UTC(),
		Version:   h.version,
		BuildTime: h.buildTime,
		Providers: h.providerStatuses(),
	}

	for _, p := range health.Providers {
		if p.Status != models.HealthStatusOK {
			health.Status = models.HealthStatusDegraded
		}
	}

	status := http.StatusOK
	if h.monitor != nil {
		health.Monitor.Running = h.monitor.Running()
		if last := h.monitor.LastReport(); last != nil {
			checkedAt := last.CheckedAt
			health.Monitor.LastTickAt = &checkedAt
		}
	}
	if !health.Monitor.Running {
		health.Status = models.HealthStatusFail
		status = http.StatusServiceUnavailable
	}

	response.JSON(w, r, status, health)
}

func (h *OpsHandler) providerStatuses() []models.ProviderStatus {
	statuses := []models.ProviderStatus{}
	if h.registry == nil {
		return statuses
	}

	for _, ph := range h.registry.GetAllHealth() {
		statuses = append(statuses, models.ProviderStatus{
			Provider:            ph.Name,
			Status:              providerHealth(ph),
			CircuitState:        ph.CircuitState.String(),
			ConsecutiveFailures: ph.Counts.ConsecutiveFailures,
			LastSuccessAt:       ph.LastSuccessAt,
			LastFailureAt:       ph.LastFailureAt,
			LastError:           ph.LastError,
		})
	}
	return statuses
}

func providerHealth(ph *resilience.ProviderHealth) models.HealthStatus {
	switch {
	case ph.IsUnhealthy():
		return models.HealthStatusFail
	case ph.IsDegraded():
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}
