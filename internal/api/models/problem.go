package models

import (
	"encoding/json"
	"net/http"
)

// problemBase prefixes every problem type URI.
const problemBase = "https://meteopoint.dev/problems/"

// Problem type URIs.
const (
	ProblemTypeValidation          = problemBase + "validation-error"
	ProblemTypeUnauthorized        = problemBase + "unauthorized"
	ProblemTypeNotFound            = problemBase + "not-found"
	ProblemTypeConflict            = problemBase + "conflict"
	ProblemTypeTooManyRequests     = problemBase + "too-many-requests"
	ProblemTypeInsufficientHistory = problemBase + "insufficient-history"
	ProblemTypeInternal            = problemBase + "internal-error"
	ProblemTypeUnavailable         = problemBase + "service-unavailable"
	ProblemTypeTLSRequired         = problemBase + "tls-required"
	ProblemTypeUnsupportedMedia    = problemBase + "unsupported-media-type"
)

// Problem is an RFC 7807 error body, served as application/problem+json.
// TraceID carries the request ID so clients can quote it in reports.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError is one failed input field. Code is an upper-case token such as
// REQUIRED, INVALID_FORMAT or OUT_OF_RANGE.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type kind struct {
	title  string
	status int
}

var kinds = map[string]kind{
	ProblemTypeValidation:          {"Validation error", http.StatusBadRequest},
	ProblemTypeUnauthorized:        {"Unauthorized", http.StatusUnauthorized},
	ProblemTypeNotFound:            {"Not found", http.StatusNotFound},
	ProblemTypeInsufficientHistory: {"Insufficient historical data", http.StatusNotFound},
	ProblemTypeConflict:            {"Conflict", http.StatusConflict},
	ProblemTypeTooManyRequests:     {"Too many requests", http.StatusTooManyRequests},
	ProblemTypeInternal:            {"Internal server error", http.StatusInternalServerError},
	ProblemTypeUnavailable:         {"Service unavailable", http.StatusServiceUnavailable},
	ProblemTypeTLSRequired:         {"TLS required", http.StatusForbidden},
	ProblemTypeUnsupportedMedia:    {"Unsupported media type", http.StatusUnsupportedMediaType},
}

// NewProblem creates a Problem with an explicit title and status.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		TraceID: traceID,
	}
}

// NewProblemOf creates a Problem of one of the known types, taking its title
// and status from the type. Unknown types become internal errors.
func NewProblemOf(problemType, traceID, detail string) *Problem {
	k, ok := kinds[problemType]
	if !ok {
		problemType, k = ProblemTypeInternal, kinds[ProblemTypeInternal]
	}
	p := NewProblem(problemType, k.title, k.status, traceID)
	p.Detail = detail
	return p
}

// WithDetail sets the occurrence-specific explanation.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

// WithInstance sets the request path the problem occurred on.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors attaches field errors.
func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write sends the problem with its status and the request ID header.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("X-Request-Id", p.TraceID)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 problem carrying field errors.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	return NewProblemOf(ProblemTypeValidation, traceID, detail).WithErrors(errors)
}

// NewUnauthorized creates a 401 problem.
func NewUnauthorized(traceID, detail string) *Problem {
	return NewProblemOf(ProblemTypeUnauthorized, traceID, detail)
}

// NewNotFound creates a 404 problem.
func NewNotFound(traceID, detail string) *Problem {
	return NewProblemOf(ProblemTypeNotFound, traceID, detail)
}

// NewInsufficientHistory creates the 404 returned when a statistical
// forecast has no usable historical sample.
func NewInsufficientHistory(traceID, detail string) *Problem {
	return NewProblemOf(ProblemTypeInsufficientHistory, traceID, detail)
}

// NewConflict creates a 409 problem.
func NewConflict(traceID, detail string) *Problem {
	return NewProblemOf(ProblemTypeConflict, traceID, detail)
}

// NewTooManyRequests creates a 429 problem.
func NewTooManyRequests(traceID, detail string) *Problem {
	return NewProblemOf(ProblemTypeTooManyRequests, traceID, detail)
}

// NewInternalError creates a 500 problem.
func NewInternalError(traceID, detail string) *Problem {
	return NewProblemOf(ProblemTypeInternal, traceID, detail)
}

// NewServiceUnavailable creates a 503 problem, used when an upstream weather
// source is down or its circuit is open.
func NewServiceUnavailable(traceID, detail string) *Problem {
	return NewProblemOf(ProblemTypeUnavailable, traceID, detail)
}
