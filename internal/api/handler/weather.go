package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/meteopoint/meteopoint/internal/api/models"
	"github.com/meteopoint/meteopoint/internal/api/response"
	"github.com/meteopoint/meteopoint/internal/weather"
)

// Resolver answers single-point weather queries.
type Resolver interface {
	Resolve(ctx context.Context, q weather.Query) (*weather.Record, error)
}

// WeatherHandler handles the point weather endpoint.
type WeatherHandler struct {
	resolver Resolver
	logger   zerolog.Logger
}

// NewWeatherHandler creates a new WeatherHandler.
func NewWeatherHandler(resolver Resolver, logger zerolog.Logger) *WeatherHandler {
	return &WeatherHandler{
		resolver: resolver,
		logger:   logger.With().Str("component", "weather-handler").Logger(),
	}
}

// GetWeather handles GET /api/weather?latitude=&longitude=&date=YYYY-MM-DD.
func (h *WeatherHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	var fieldErrors []models.FieldError

	lat, ferr := queryFloat(r, "latitude")
	if ferr != nil {
		fieldErrors = append(fieldErrors, *ferr)
	}
	lon, ferr := queryFloat(r, "longitude")
	if ferr != nil {
		fieldErrors = append(fieldErrors, *ferr)
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "date", Message: "date is required", Code: "REQUIRED"})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "One or more fields failed validation", fieldErrors)
		return
	}

	q, err := weather.NewQuery(weather.Coordinate{Latitude: lat, Longitude: lon}, date)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	record, err := h.resolver.Resolve(r.Context(), q)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, record)
}
