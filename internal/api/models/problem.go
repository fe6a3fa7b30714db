// Package models defines the request and response bodies of the status API.
package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 error body, served as application/problem+json.
// TraceID carries the request ID.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError points a validation failure at one request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Problem types.
const (
	ProblemTypeValidation      = "/problems/validation-error"
	ProblemTypeNotFound        = "/problems/not-found"
	ProblemTypeConflict        = "/problems/conflict"
	ProblemTypeTooManyRequests = "/problems/too-many-requests"
	ProblemTypeInternal        = "/problems/internal-error"
	ProblemTypeBadGateway      = "/problems/upstream-error"
	ProblemTypeUnavailable     = "/problems/service-unavailable"
)

var problemTypes = map[int]struct{ uri, title string }{
	http.StatusBadRequest:          {ProblemTypeValidation, "Validation error"},
	http.StatusNotFound:            {ProblemTypeNotFound, "Not found"},
	http.StatusConflict:            {ProblemTypeConflict, "Conflict"},
	http.StatusTooManyRequests:     {ProblemTypeTooManyRequests, "Too many requests"},
	http.StatusInternalServerError: {ProblemTypeInternal, "Internal server error"},
	http.StatusBadGateway:          {ProblemTypeBadGateway, "Upstream error"},
	http.StatusServiceUnavailable:  {ProblemTypeUnavailable, "Service unavailable"},
}

func newProblem(status int, traceID, detail string) *Problem {
	kind := problemTypes[status]
	return &Problem{
		Type:    kind.uri,
		Title:   kind.title,
		Status:  status,
		Detail:  detail,
		TraceID: traceID,
	}
}

// Write sends the Problem with its status code.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("X-Request-Id", p.TraceID)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 problem listing the rejected fields.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := newProblem(http.StatusBadRequest, traceID, detail)
	p.Errors = errors
	return p
}

func NewNotFound(traceID, detail string) *Problem {
	return newProblem(http.StatusNotFound, traceID, detail)
}

func NewConflict(traceID, detail string) *Problem {
	return newProblem(http.StatusConflict, traceID, detail)
}

// NewTooManyRequests is written by the rate limiter.
func NewTooManyRequests(traceID, detail string) *Problem {
	return newProblem(http.StatusTooManyRequests, traceID, detail)
}

func NewInternalError(traceID, detail string) *Problem {
	return newProblem(http.StatusInternalServerError, traceID, detail)
}

// NewBadGateway reports a failed directions or chat call.
func NewBadGateway(traceID, detail string) *Problem {
	return newProblem(http.StatusBadGateway, traceID, detail)
}

// NewServiceUnavailable reports a stopped or unresponsive monitor.
func NewServiceUnavailable(traceID, detail string) *Problem {
	return newProblem(http.StatusServiceUnavailable, traceID, detail)
}
