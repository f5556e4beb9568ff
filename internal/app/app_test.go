package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteopoint/meteopoint/internal/app"
	"github.com/meteopoint/meteopoint/internal/auth"
	"github.com/meteopoint/meteopoint/internal/config"
	"github.com/meteopoint/meteopoint/internal/provider/resilience"
	"github.com/meteopoint/meteopoint/internal/weather"
	"github.com/meteopoint/meteopoint/internal/weather/nasapower"
	"github.com/meteopoint/meteopoint/internal/weather/openmeteo"
)

func loadConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	cfg, err := config.LoadWith("", func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	require.NoError(t, err)
	return cfg
}

func TestNew_Memory(t *testing.T) {
	cfg := loadConfig(t, map[string]string{})

	a, err := app.New(context.Background(), cfg, zerolog.Nop(), app.Options{})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.NotNil(t, a.Weather)
	assert.NotNil(t, a.Auth)
	assert.NotNil(t, a.Favorites)
	assert.Empty(t, a.ReadinessChecks)
	assert.Equal(t, 10, a.Weather.HorizonDays())

	names := map[string]bool{}
	for _, h := range a.Registry.All() {
		names[h.Name] = true
	}
	assert.True(t, names[nasapower.ProviderName])
	assert.True(t, names[openmeteo.ProviderName])
}

func TestNew_SQLiteEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meteopoint.db")
	cfg := loadConfig(t, map[string]string{
		"DB_DRIVER":      "sqlite",
		"SQLITE_DB_PATH": path,
	})
	ctx := context.Background()

	a, err := app.New(ctx, cfg, zerolog.Nop(), app.Options{})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	require.Len(t, a.ReadinessChecks, 1)
	assert.NoError(t, a.ReadinessChecks[0].Check(ctx))

	tok, err := a.Auth.Register(ctx, auth.Credentials{Username: "carol", Password: "secret123"})
	require.NoError(t, err)

	user, err := a.Auth.GetUser(ctx, tok.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)

	favs, err := a.Favorites.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, favs)
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()

	msg, err := app.Migrate(ctx, loadConfig(t, map[string]string{}), zerolog.Nop())
	require.NoError(t, err)
	assert.Contains(t, msg, "nothing to migrate")

	path := filepath.Join(t.TempDir(), "migrate.db")
	cfg := loadConfig(t, map[string]string{"DB_DRIVER": "sqlite", "SQLITE_DB_PATH": path})

	msg, err = app.Migrate(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Contains(t, msg, "sqlite schema at version")

	// Applying twice is a no-op.
	_, err = app.Migrate(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
}

func TestNewLogger_Level(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"LOG_LEVEL": "warn"})
	logger := app.NewLogger(cfg, "meteopoint-test", "dev")
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}

func TestNewWeather_FailedYearsDoNotOpenHistoricalCircuit(t *testing.T) {
	var hits atomic.Int32
	nasa := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(nasa.Close)

	cfg := loadConfig(t, map[string]string{
		"NASA_POWER_URL": nasa.URL,
		"NASA_POWER_RPS": "1000",
	})
	registry := resilience.NewRegistry()
	today := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	svc := app.NewWeather(cfg, registry, zerolog.Nop(), app.Options{Clock: weather.FixedClock(today)})

	q, err := weather.NewQuery(weather.Coordinate{Latitude: 52.37, Longitude: 4.9}, "2026-01-01")
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), q)
	require.ErrorIs(t, err, weather.ErrInsufficientHistory)

	// Every year reached the upstream on its own.
	assert.Equal(t, int32(cfg.Forecast.HistoricalYearsBack), hits.Load())

	health, ok := registry.Health(nasapower.ProviderName)
	require.True(t, ok)
	assert.Equal(t, gobreaker.StateClosed, health.State)
}
