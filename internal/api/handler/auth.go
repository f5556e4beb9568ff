package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/meteopoint/meteopoint/internal/api/middleware"
	"github.com/meteopoint/meteopoint/internal/api/response"
	"github.com/meteopoint/meteopoint/internal/auth"
)

// AuthHandler handles registration, login and the caller's profile.
type AuthHandler struct {
	authService *auth.Service
	logger      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *auth.Service, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger.With().Str("component", "auth-handler").Logger(),
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if !decodeJSON(w, r, &creds) || !validateBody(w, r, &creds) {
		return
	}

	tokenResp, err := h.authService.Register(r.Context(), creds)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.Created(w, r, "/api/auth/profile", tokenResp)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if !decodeJSON(w, r, &creds) {
		return
	}
	if creds.Username == "" || creds.Password == "" {
		response.Unauthorized(w, r, "Invalid username or password")
		return
	}

	tokenResp, err := h.authService.Login(r.Context(), creds)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, tokenResp)
}

// GetProfile handles GET /api/auth/profile.
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, user)
}

// UpdateProfile handles PUT /api/auth/profile.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req auth.UpdateProfileRequest
	if !decodeJSON(w, r, &req) || !validateBody(w, r, &req) {
		return
	}

	user, err := h.authService.UpdateProfile(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, user)
}
