package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meteopoint/meteopoint/internal/api/middleware"
	"github.com/meteopoint/meteopoint/internal/auth"
)

type stubValidator map[string]error

// ValidateAccessToken accepts tokens of the form "ok:<user>" and returns the
// configured error for anything else.
func (s stubValidator) ValidateAccessToken(token string) (string, error) {
	if err, ok := s[token]; ok {
		return "", err
	}
	if len(token) > 3 && token[:3] == "ok:" {
		return token[3:], nil
	}
	return "", auth.ErrInvalidAccessToken
}

func protected(t *testing.T) (http.Handler, *string) {
	t.Helper()
	var captured string
	validator := stubValidator{
		"expired": auth.ErrAccessTokenExpired,
		"broken":  errors.New("boom"),
	}
	h := middleware.Auth(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = middleware.GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return h, &captured
}

func TestAuth_Rejections(t *testing.T) {
	handler, _ := protected(t)

	tests := []struct {
		name       string
		header     string
		wantDetail string
	}{
		{"missing header", "", "missing authorization header"},
		{"no bearer prefix", "token123", "invalid authorization header format"},
		{"basic auth", "Basic dXNlcjpwYXNz", "invalid authorization header format"},
		{"just bearer", "Bearer", "invalid authorization header format"},
		{"empty bearer", "Bearer   ", "missing bearer token"},
		{"invalid token", "Bearer nope", "invalid access token"},
		{"expired token", "Bearer expired", "access token has expired"},
		{"validator failure", "Bearer broken", "authentication failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/favorites", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			assert.Contains(t, rec.Body.String(), tt.wantDetail)
		})
	}
}

func TestAuth_ValidTokenAnyBearerCase(t *testing.T) {
	handler, captured := protected(t)

	for _, prefix := range []string{"Bearer ", "bearer ", "BEARER "} {
		t.Run(prefix, func(t *testing.T) {
			*captured = ""
			req := httptest.NewRequest(http.MethodGet, "/api/favorites", http.NoBody)
			req.Header.Set("Authorization", prefix+"ok:user-42")
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "user-42", *captured)
		})
	}
}

func TestGetUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	assert.Empty(t, middleware.GetUserID(req.Context()))

	ctx := middleware.WithUserID(req.Context(), "user-1")
	assert.Equal(t, "user-1", middleware.GetUserID(ctx))
}
