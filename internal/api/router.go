// Package api provides the HTTP API for MeteoPoint.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/meteopoint/meteopoint/internal/api/handler"
	"github.com/meteopoint/meteopoint/internal/api/middleware"
	"github.com/meteopoint/meteopoint/internal/auth"
	"github.com/meteopoint/meteopoint/internal/favorites"
	"github.com/meteopoint/meteopoint/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	AuthService      *auth.Service
	WeatherService   handler.Resolver
	FavoritesService *favorites.Service

	// Registry reports upstream provider health on /api/status.
	Registry        *resilience.Registry
	ReadinessChecks []handler.ReadinessCheck
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "meteopoint-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.Registry, cfg.ReadinessChecks...)
	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.Logger)
	weatherHandler := handler.NewWeatherHandler(cfg.WeatherService, cfg.Logger)
	favoritesHandler := handler.NewFavoritesHandler(cfg.FavoritesService, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.AuthService)

	r.Get("/health", opsHandler.HealthCheck)
	r.Get("/ready", opsHandler.ReadinessCheck)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireJSON)

		r.With(middleware.RateLimitByIP(middleware.StandardRateLimit)).Get("/status", opsHandler.SystemStatus)

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(middleware.AuthRateLimit)) // 10 req/min per IP
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
			})

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware)
				r.Use(middleware.RateLimitByUser(middleware.StandardRateLimit))
				r.Get("/profile", authHandler.GetProfile)
				r.Put("/profile", authHandler.UpdateProfile)
			})
		})

		// Far-future dates fan out to decades of NASA requests.
		r.With(middleware.RateLimitByIP(middleware.ForecastRateLimit)).Get("/weather", weatherHandler.GetWeather)

		r.Route("/favorites", func(r chi.Router) {
			r.Use(authMiddleware)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByUser(middleware.ForecastRateLimit))
				r.Get("/forecast/all", favoritesHandler.ForecastAll)
				r.Get("/forecast/aggregated", favoritesHandler.Aggregated)
				r.Get("/{id}/forecast", favoritesHandler.Forecast)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByUser(middleware.StandardRateLimit))
				r.Get("/", favoritesHandler.List)
				r.Post("/", favoritesHandler.Create)
				r.Get("/{id}", favoritesHandler.Get)
				r.Put("/{id}", favoritesHandler.Update)
				r.Delete("/{id}", favoritesHandler.Delete)
			})
		})
	})

	return r
}
