// Package app assembles the MeteoPoint services from configuration. It is
// shared by the API server and the weatherctl CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/meteopoint/meteopoint/internal/api/handler"
	"github.com/meteopoint/meteopoint/internal/auth"
	"github.com/meteopoint/meteopoint/internal/config"
	"github.com/meteopoint/meteopoint/internal/database"
	"github.com/meteopoint/meteopoint/internal/favorites"
	"github.com/meteopoint/meteopoint/internal/geocoding"
	"github.com/meteopoint/meteopoint/internal/provider/resilience"
	"github.com/meteopoint/meteopoint/internal/telemetry"
	"github.com/meteopoint/meteopoint/internal/weather"
	"github.com/meteopoint/meteopoint/internal/weather/nasapower"
	"github.com/meteopoint/meteopoint/internal/weather/openmeteo"
)

// upstreamTimeout bounds each NASA POWER and Open-Meteo request.
const upstreamTimeout = 10 * time.Second

// Options carries optional collaborators.
type Options struct {
	// UpstreamMetrics, if set, records every upstream weather call.
	UpstreamMetrics *telemetry.UpstreamMetrics

	// Clock overrides the weather service clock.
	Clock weather.Clock
}

// App is the assembled service graph.
type App struct {
	Config   *config.Config
	Registry *resilience.Registry

	Weather   *weather.Service
	Auth      *auth.Service
	Favorites *favorites.Service

	// ReadinessChecks probe the configured store.
	ReadinessChecks []handler.ReadinessCheck

	closers []func()
}

// NewLogger builds the root JSON logger at the configured level.
func NewLogger(cfg *config.Config, service, version string) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Server.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()
}

// New opens the store, applies migrations and wires every service.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*App, error) {
	a := &App{
		Config:   cfg,
		Registry: resilience.NewRegistry(),
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, st.close)
	a.ReadinessChecks = st.checks

	a.Weather = NewWeather(cfg, a.Registry, logger, opts)

	a.Auth = auth.NewService(auth.ServiceConfig{
		JWTService: auth.NewJWTService(auth.JWTConfig{
			SigningKey: cfg.Auth.JWTSecret,
			Issuer:     cfg.Auth.JWTIssuer,
			Audience:   cfg.Auth.JWTAudience,
		}),
		UserRepo: st.users,
		Logger:   logger,
	})

	a.Favorites = favorites.NewService(favorites.ServiceConfig{
		Repo: st.favorites,
		Geocoder: geocoding.NewClient(geocoding.ClientConfig{
			BaseURL:   cfg.Providers.NominatimURL,
			UserAgent: cfg.Providers.GeocoderUserAgent,
			Logger:    logger,
		}),
		Forecaster: a.Weather,
		Logger:     logger,
	})

	return a, nil
}

// Close releases the store.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// NewWeather builds the weather service and its upstream clients, which
// report to registry.
func NewWeather(cfg *config.Config, registry *resilience.Registry, logger zerolog.Logger, opts Options) *weather.Service {
	upstream := func(name string, breaker resilience.BreakerConfig) *resilience.Client {
		return resilience.NewClient(resilience.ClientConfig{
			Name:     name,
			Timeout:  upstreamTimeout,
			Breaker:  breaker,
			Registry: registry,
			Metrics:  opts.UpstreamMetrics,
			Logger:   logger,
		})
	}

	return weather.NewService(weather.ServiceConfig{
		Historical: nasapower.NewClient(nasapower.ClientConfig{
			BaseURL:           cfg.Providers.NASAPowerURL,
			HTTPClient:        upstream(nasapower.ProviderName, historicalBreaker(cfg)),
			RequestsPerSecond: cfg.Providers.NASAPowerRPS,
			Logger:            logger,
		}),
		Live: openmeteo.NewClient(openmeteo.ClientConfig{
			BaseURL:    cfg.Providers.OpenMeteoURL,
			HTTPClient: upstream(openmeteo.ProviderName, resilience.BreakerConfig{}),
			Logger:     logger,
		}),
		Clock:           opts.Clock,
		Logger:          logger,
		HorizonDays:     cfg.Forecast.HorizonDays,
		YearsBack:       cfg.Forecast.HistoricalYearsBack,
		SeriesYearsBack: cfg.Forecast.FavoritesYearsBack,
		SeriesDays:      cfg.Forecast.DaysToFetch,
		Concurrency:     cfg.Forecast.Concurrency,
	})
}

// historicalBreaker trips only after more consecutive failures than one
// synthesis can produce, so a single far-future request whose years all fail
// leaves the circuit closed for the next one.
func historicalBreaker(cfg *config.Config) resilience.BreakerConfig {
	fanOut := max(cfg.Forecast.HistoricalYearsBack, cfg.Forecast.FavoritesYearsBack)
	return resilience.BreakerConfig{ConsecutiveFailures: uint32(fanOut) + 1}
}

type store struct {
	users     auth.UserRepository
	favorites favorites.Repository
	checks    []handler.ReadinessCheck
	close     func()
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*store, error) {
	dbCfg := cfg.DatabaseConfig()

	switch dbCfg.Driver {
	case database.DriverSQLite:
		db, err := openSQLite(ctx, dbCfg, logger)
		if err != nil {
			return nil, err
		}
		return &store{
			users:     auth.NewSQLiteUserRepository(db),
			favorites: favorites.NewSQLiteRepository(db),
			checks:    []handler.ReadinessCheck{{Name: "sqlite", Check: db.PingContext}},
			close:     func() { _ = db.Close() },
		}, nil

	case database.DriverPostgres:
		pool, err := openPostgres(ctx, dbCfg, logger)
		if err != nil {
			return nil, err
		}
		return &store{
			users:     auth.NewPostgresUserRepository(pool),
			favorites: favorites.NewPostgresRepository(pool),
			checks:    []handler.ReadinessCheck{{Name: "postgres", Check: pool.Ping}},
			close:     pool.Close,
		}, nil

	default:
		logger.Warn().Msg("using in-memory storage; users and favorites are lost on restart")
		return &store{
			users:     auth.NewInMemoryUserRepository(),
			favorites: favorites.NewInMemoryRepository(),
			close:     func() {},
		}, nil
	}
}

func openSQLite(ctx context.Context, cfg database.Config, logger zerolog.Logger) (*sql.DB, error) {
	db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := database.MigrateSQLite(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating sqlite: %w", err)
	}
	logger.Info().Str("path", cfg.SQLitePath).Msg("sqlite database ready")
	return db, nil
}

func openPostgres(ctx context.Context, cfg database.Config, logger zerolog.Logger) (*pgxpool.Pool, error) {
	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := database.MigratePostgres(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrating postgres: %w", err)
	}
	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("database connected")
	return pool, nil
}

// Migrate applies the schema to the configured store without starting any
// service. The memory driver has nothing to migrate.
func Migrate(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (string, error) {
	dbCfg := cfg.DatabaseConfig()

	switch dbCfg.Driver {
	case database.DriverSQLite:
		db, err := openSQLite(ctx, dbCfg, logger)
		if err != nil {
			return "", err
		}
		defer db.Close()
		version, err := database.SQLiteVersion(ctx, db)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("sqlite schema at version %d", version), nil

	case database.DriverPostgres:
		pool, err := openPostgres(ctx, dbCfg, logger)
		if err != nil {
			return "", err
		}
		pool.Close()
		return fmt.Sprintf("postgres schema at version %d", database.LatestVersion()), nil

	default:
		return "memory driver: nothing to migrate", nil
	}
}
