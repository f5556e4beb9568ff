// Package handler provides HTTP handlers for the MeteoPoint API.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/meteopoint/meteopoint/internal/api/middleware"
	"github.com/meteopoint/meteopoint/internal/api/models"
	"github.com/meteopoint/meteopoint/internal/api/response"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// decodeJSON reads one JSON document from the request body into v. It writes
// the 400 itself and reports false when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		detail := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			detail = "request body is required"
		}
		response.BadRequest(w, r, detail, nil)
		return false
	}
	return true
}

// validateBody runs struct tag validation and writes the 400 on failure.
func validateBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if fieldErrors := models.Validate(v); len(fieldErrors) > 0 {
		response.BadRequest(w, r, "One or more fields failed validation", fieldErrors)
		return false
	}
	return true
}

// fail writes the problem for err, logging it when it is the server's fault.
func fail(log zerolog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status := response.FromError(w, r, err)
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("path", r.URL.Path).
			Int("status", status).
			Msg("request failed")
	}
}

// queryDays parses the optional days parameter. Zero means "use the default".
func queryDays(r *http.Request) (int, *models.FieldError) {
	raw := strings.TrimSpace(r.URL.Query().Get("days"))
	if raw == "" {
		return 0, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days == 0 {
		return 0, &models.FieldError{Field: "days", Message: "days must be an integer between 1 and 16", Code: "INVALID_FORMAT"}
	}
	return days, nil
}

// queryFloat parses a required float query parameter.
func queryFloat(r *http.Request, name string) (float64, *models.FieldError) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, &models.FieldError{Field: name, Message: fmt.Sprintf("%s is required", name), Code: "REQUIRED"}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &models.FieldError{Field: name, Message: fmt.Sprintf("%s must be a number", name), Code: "INVALID_FORMAT"}
	}
	return v, nil
}
