package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smartcommute/smartcommute/internal/alert"
	"github.com/smartcommute/smartcommute/internal/api/models"
	"github.com/smartcommute/smartcommute/internal/api/response"
	"github.com/smartcommute/smartcommute/internal/commute"
	"github.com/smartcommute/smartcommute/internal/window"
	"github.com/smartcommute/smartcommute/internal/worker"
)

const stopsPath = "/v1/commute/stops"

// Monitor is the part of the commute monitor the API reads and drives.
type Monitor interface {
	Running() bool
	State() alert.State
	LastReport() *worker.Report
	MetricsSnapshot() map[string]interface{}
	ForceCheck(ctx context.Context, trigger string) (*worker.Report, error)
}

// CommuteHandler serves the route status, stop list and forced checks.
type CommuteHandler struct {
	route   *commute.Route
	gate    window.Gate
	monitor Monitor
	now     func() time.Time
}

// NewCommuteHandler creates a CommuteHandler. now must return times in the
// route's time zone; nil means time.Now.
func NewCommuteHandler(route *commute.Route, monitor Monitor, now func() time.Time) *CommuteHandler {
	if now == nil {
		now = time.Now
	}
	return &CommuteHandler{
		route:   route,
		gate:    window.NewGate(route.CheckTime(), route.DesiredArrival()),
		monitor: monitor,
		now:     now,
	}
}

// Status handles GET /v1/commute/status.
func (h *CommuteHandler) Status(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	start, end := h.gate.Window(now)

	response.JSON(w, r, http.StatusOK, models.CommuteStatus{
		Time: now,
		Route: models.RouteSettings{
			WorkAddress:           h.route.WorkAddress(),
			HomeAddress:           h.route.HomeAddress(),
			Stops:                 h.stops(),
			CheckTime:             h.route.CheckTime().String(),
			DesiredArrival:        h.route.DesiredArrival().String(),
			BufferMinutes:         h.route.BufferMinutes(),
			HeavyTrafficThreshold: h.route.HeavyTrafficThreshold(),
		},
		Window: models.MonitoringWindow{
			Start:  start,
			End:    end,
			Active: h.gate.Admit(now),
		},
		Running:    h.monitor.Running(),
		State:      h.monitor.State(),
		LastReport: h.monitor.LastReport(),
		Metrics:    h.monitor.MetricsSnapshot(),
	})
}

// ListStops handles GET /v1/commute/stops.
func (h *CommuteHandler) ListStops(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.StopList{Stops: h.stops()})
}

// AddStop handles POST /v1/commute/stops.
func (h *CommuteHandler) AddStop(w http.ResponseWriter, r *http.Request) {
	var input models.StopRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	switch err := h.route.AddStop(input.Address); {
	case errors.Is(err, commute.ErrEmptyStop):
		response.BadRequest(w, r, "address is required", []models.FieldError{
			{Field: "address", Message: "must not be empty", Code: "REQUIRED"},
		})
	case errors.Is(err, commute.ErrStopExists):
		response.Conflict(w, r, "stop "+strings.TrimSpace(input.Address)+" already exists")
	case err != nil:
		response.InternalError(w, r, "failed to add stop")
	default:
		response.Created(w, r, stopsPath, models.StopList{Stops: h.stops()})
	}
}

// RemoveStops handles DELETE /v1/commute/stops. The stop is named by the
// address query parameter or a JSON body; all=true clears every stop.
func (h *CommuteHandler) RemoveStops(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Get("all") == "true" {
		response.JSON(w, r, http.StatusOK, models.ClearedStops{Removed: h.route.ClearStops()})
		return
	}

	address := query.Get("address")
	if address == "" {
		var input models.StopRequest
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil && !errors.Is(err, io.EOF) {
			response.BadRequest(w, r, "invalid JSON body", nil)
			return
		}
		address = input.Address
	}
	if strings.TrimSpace(address) == "" {
		response.BadRequest(w, r, "address or all=true is required", []models.FieldError{
			{Field: "address", Message: "must not be empty", Code: "REQUIRED"},
		})
		return
	}

	if err := h.route.RemoveStop(address); err != nil {
		if errors.Is(err, commute.ErrStopNotFound) {
			response.NotFound(w, r, "stop "+strings.TrimSpace(address)+" not found")
			return
		}
		response.InternalError(w, r, "failed to remove stop")
		return
	}

	response.JSON(w, r, http.StatusOK, models.StopList{Stops: h.stops()})
}

// Check handles POST /v1/commute/check: a forced, ungated check whose
// report is returned as the body.
func (h *CommuteHandler) Check(w http.ResponseWriter, r *http.Request) {
	report, err := h.monitor.ForceCheck(r.Context(), worker.TriggerHTTP)
	switch {
	case err == nil:
		response.JSON(w, r, http.StatusOK, report)
	case errors.Is(err, worker.ErrMonitorNotRunning):
		response.ServiceUnavailable(w, r, "commute monitor is not running")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		response.ServiceUnavailable(w, r, "check did not complete in time")
	case report != nil:
		response.BadGateway(w, r, report.Reason+": "+err.Error())
	default:
		response.InternalError(w, r, "check failed")
	}
}

// stops returns the current stops, never nil, so they encode as [].
func (h *CommuteHandler) stops() []string {
	if stops := h.route.Stops(); stops != nil {
		return stops
	}
	return []string{}
}
