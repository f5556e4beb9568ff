// Package response provides utilities for HTTP response handling.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/meteopoint/meteopoint/internal/api/middleware"
	"github.com/meteopoint/meteopoint/internal/api/models"
	"github.com/meteopoint/meteopoint/internal/auth"
	"github.com/meteopoint/meteopoint/internal/favorites"
	"github.com/meteopoint/meteopoint/internal/provider/resilience"
	"github.com/meteopoint/meteopoint/internal/weather"
)

// JSON writes a JSON response with the given status code.
// Includes X-Request-Id header for correlation.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	setRequestID(w, r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Created writes a 201 response with an optional Location header.
func Created(w http.ResponseWriter, r *http.Request, location string, data any) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	JSON(w, r, http.StatusCreated, data)
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter, r *http.Request) {
	setRequestID(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func setRequestID(w http.ResponseWriter, r *http.Request) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
}

// Error writes a Problem+JSON error response.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// BadRequest writes a 400 Bad Request error response.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(middleware.GetRequestID(r.Context()), detail, errors))
}

// Unauthorized writes a 401 Unauthorized error response.
func Unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewUnauthorized(middleware.GetRequestID(r.Context()), detail))
}

// NotFound writes a 404 Not Found error response.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewNotFound(middleware.GetRequestID(r.Context()), detail))
}

// Conflict writes a 409 Conflict error response.
func Conflict(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewConflict(middleware.GetRequestID(r.Context()), detail))
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewInternalError(middleware.GetRequestID(r.Context()), detail))
}

// ServiceUnavailable writes a 503 Service Unavailable error response.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewServiceUnavailable(middleware.GetRequestID(r.Context()), detail))
}

// ProblemFor maps a service error to the problem document the API returns
// for it. Unknown errors become a generic 500 so internals never leak.
func ProblemFor(traceID string, err error) *models.Problem {
	var (
		weatherErr  *weather.ValidationError
		favoriteErr *favorites.ValidationError
	)

	switch {
	case errors.As(err, &weatherErr):
		return models.NewBadRequest(traceID, "One or more fields failed validation", weatherErr.Errors)
	case errors.As(err, &favoriteErr):
		return models.NewBadRequest(traceID, "One or more fields failed validation", favoriteErr.Errors)

	case errors.Is(err, weather.ErrInsufficientHistory):
		return models.NewInsufficientHistory(traceID, "Not enough historical data for this location and date")
	case errors.Is(err, weather.ErrNoForecastsAvailable):
		return models.NewNotFound(traceID, "No forecasts available for any of the requested locations")
	case errors.Is(err, weather.ErrUpstreamUnavailable), errors.Is(err, resilience.ErrCircuitOpen):
		return models.NewServiceUnavailable(traceID, "Weather data source is temporarily unavailable")

	case errors.Is(err, favorites.ErrNotFound):
		return models.NewNotFound(traceID, "Favorite location not found")
	case errors.Is(err, favorites.ErrDuplicate):
		return models.NewConflict(traceID, "This location is already in your favorites")

	case errors.Is(err, auth.ErrUsernameTaken):
		return models.NewConflict(traceID, "Username is already taken")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return models.NewUnauthorized(traceID, "Invalid username or password")
	case errors.Is(err, auth.ErrIncorrectPassword):
		return models.NewUnauthorized(traceID, "Current password is incorrect")
	case errors.Is(err, auth.ErrCurrentPasswordRequired):
		return models.NewUnauthorized(traceID, "Current password is required to set a new password")
	case errors.Is(err, auth.ErrUserNotFound):
		return models.NewNotFound(traceID, "User not found")
	}

	return models.NewInternalError(traceID, "An unexpected error occurred")
}

// FromError writes the problem for err and returns its status code.
func FromError(w http.ResponseWriter, r *http.Request, err error) int {
	problem := ProblemFor(middleware.GetRequestID(r.Context()), err)
	Error(w, r, problem)
	return problem.Status
}
