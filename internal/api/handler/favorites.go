package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/meteopoint/meteopoint/internal/api/middleware"
	"github.com/meteopoint/meteopoint/internal/api/models"
	"github.com/meteopoint/meteopoint/internal/api/response"
	"github.com/meteopoint/meteopoint/internal/favorites"
)

// FavoritesHandler handles the caller's favorite locations and their forecasts.
type FavoritesHandler struct {
	service *favorites.Service
	logger  zerolog.Logger
}

// NewFavoritesHandler creates a new FavoritesHandler.
func NewFavoritesHandler(service *favorites.Service, logger zerolog.Logger) *FavoritesHandler {
	return &FavoritesHandler{
		service: service,
		logger:  logger.With().Str("component", "favorites-handler").Logger(),
	}
}

// List handles GET /api/favorites.
func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	favs, err := h.service.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	if favs == nil {
		favs = []*favorites.Favorite{}
	}
	response.JSON(w, r, http.StatusOK, favs)
}

// Create handles POST /api/favorites.
func (h *FavoritesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req favorites.CreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fav, err := h.service.Create(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.Created(w, r, "/api/favorites/"+fav.ID, fav)
}

// Get handles GET /api/favorites/{id}.
func (h *FavoritesHandler) Get(w http.ResponseWriter, r *http.Request) {
	fav, err := h.service.Get(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, fav)
}

// Update handles PUT /api/favorites/{id}.
func (h *FavoritesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req favorites.UpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fav, err := h.service.Update(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), &req)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, fav)
}

// Delete handles DELETE /api/favorites/{id}.
func (h *FavoritesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		fail(h.logger, w, r, err)
		return
	}
	response.NoContent(w, r)
}

// Forecast handles GET /api/favorites/{id}/forecast?days=N.
func (h *FavoritesHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	days, ok := h.days(w, r)
	if !ok {
		return
	}

	out, err := h.service.Forecast(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), days)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, out)
}

// ForecastAll handles GET /api/favorites/forecast/all?days=N.
func (h *FavoritesHandler) ForecastAll(w http.ResponseWriter, r *http.Request) {
	days, ok := h.days(w, r)
	if !ok {
		return
	}

	out, err := h.service.ForecastAll(r.Context(), middleware.GetUserID(r.Context()), days)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, out)
}

// Aggregated handles GET /api/favorites/forecast/aggregated?days=N.
func (h *FavoritesHandler) Aggregated(w http.ResponseWriter, r *http.Request) {
	days, ok := h.days(w, r)
	if !ok {
		return
	}

	out, err := h.service.Aggregated(r.Context(), middleware.GetUserID(r.Context()), days)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, out)
}

func (h *FavoritesHandler) days(w http.ResponseWriter, r *http.Request) (int, bool) {
	days, ferr := queryDays(r)
	if ferr != nil {
		response.BadRequest(w, r, "One or more fields failed validation", []models.FieldError{*ferr})
		return 0, false
	}
	return days, true
}
