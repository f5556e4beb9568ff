package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteopoint/meteopoint/internal/config"
	"github.com/meteopoint/meteopoint/internal/database"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := config.LoadWith("", envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, config.EnvDevelopment, cfg.Server.Environment)
	assert.Equal(t, config.DevJWTSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, database.DriverMemory, cfg.Database.Driver)
	assert.Equal(t, ":memory:", cfg.Database.SQLitePath)
	assert.Equal(t, 10, cfg.Forecast.HorizonDays)
	assert.Equal(t, 7, cfg.Forecast.DaysToFetch)
	assert.Equal(t, 40, cfg.Forecast.HistoricalYearsBack)
	assert.Equal(t, 25, cfg.Forecast.FavoritesYearsBack)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoadWith_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meteopoint.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 9000
environment = "production"

[auth]
jwt_secret = "from-file"

[database]
driver = "sqlite"
sqlite_path = "/var/lib/meteopoint.db"

[forecast]
horizon_days = 7
`), 0o600))

	cfg, err := config.LoadWith(path, envMap(map[string]string{
		"PORT":                   "9100",
		"FORECAST_DAYS_TO_FETCH": "14",
		"OTEL_ENABLED":           "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "production", cfg.Server.Environment)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, database.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 7, cfg.Forecast.HorizonDays)
	assert.Equal(t, 14, cfg.Forecast.DaysToFetch)
	assert.True(t, cfg.Telemetry.Enabled)

	dbCfg := cfg.DatabaseConfig()
	assert.Equal(t, "/var/lib/meteopoint.db", dbCfg.SQLitePath)
	assert.Equal(t, "meteopoint", dbCfg.Database)
}

func TestLoadWith_MissingFile(t *testing.T) {
	_, err := config.LoadWith(filepath.Join(t.TempDir(), "nope.toml"), envMap(nil))
	var nf *config.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestLoadWith_BadEnvValues(t *testing.T) {
	_, err := config.LoadWith("", envMap(map[string]string{
		"PORT":           "eighty",
		"NASA_POWER_RPS": "fast",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "NASA_POWER_RPS")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		wantField string
	}{
		{"secret required in production", map[string]string{"ENVIRONMENT": "production"}, "auth.jwt_secret"},
		{"days to fetch too large", map[string]string{"FORECAST_DAYS_TO_FETCH": "17"}, "forecast.days_to_fetch"},
		{"unknown driver", map[string]string{"DB_DRIVER": "mysql"}, "database.driver"},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}, "server.log_level"},
		{"negative years", map[string]string{"HISTORICAL_YEARS_BACK": "-1"}, "forecast.historical_years_back"},
		{"sample ratio above one", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "telemetry.sample_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadWith("", envMap(tt.env))
			var verr *config.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Len(t, verr.Errors, 1)
			assert.Equal(t, tt.wantField, verr.Errors[0].Field)
		})
	}
}
