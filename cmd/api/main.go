// Package main provides the entrypoint for the MeteoPoint API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/meteopoint/meteopoint/internal/api"
	"github.com/meteopoint/meteopoint/internal/api/middleware"
	"github.com/meteopoint/meteopoint/internal/app"
	"github.com/meteopoint/meteopoint/internal/config"
	"github.com/meteopoint/meteopoint/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "meteopoint-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := app.NewLogger(cfg, serviceName, Version)
	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Server.Environment).
		Str("db_driver", cfg.Database.Driver).
		Msg("starting MeteoPoint API")

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Server.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if cfg.Telemetry.Enabled {
		log.Info().Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		return err
	}
	upstreamMetrics, err := telemetry.NewUpstreamMetrics(tp.Meter)
	if err != nil {
		return err
	}

	if cfg.Auth.JWTSecret == config.DevJWTSecret {
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	services, err := app.New(ctx, cfg, log, app.Options{UpstreamMetrics: upstreamMetrics})
	if err != nil {
		return err
	}
	defer services.Close()

	router := api.NewRouter(api.RouterConfig{
		Version:          Version,
		Logger:           log,
		ServiceName:      serviceName,
		Metrics:          metrics,
		RequireTLS:       cfg.Server.RequireTLS,
		AuthService:      services.Auth,
		WeatherService:   services.Weather,
		FavoritesService: services.Favorites,
		Registry:         services.Registry,
		ReadinessChecks:  services.ReadinessChecks,
	})

	// Far-future requests fan out to decades of history, so the write
	// timeout is generous.
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
