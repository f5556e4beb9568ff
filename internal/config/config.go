// Package config loads service settings from an optional .env file, an
// optional TOML file named by METEOPOINT_CONFIG, and environment variables,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/meteopoint/meteopoint/internal/database"
	"github.com/meteopoint/meteopoint/internal/weather"
)

// FileEnv names the variable holding the TOML config path.
const FileEnv = "METEOPOINT_CONFIG"

// EnvDevelopment is the only environment allowed to run without a JWT secret.
const EnvDevelopment = "development"

// DevJWTSecret is used in development when JWT_SECRET is unset.
const DevJWTSecret = "local-dev-signing-key-change-in-production"

// Server contains HTTP server settings.
type Server struct {
	Port            int           `toml:"port"`
	Environment     string        `toml:"environment"`
	LogLevel        string        `toml:"log_level"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`

	// RequireTLS rejects requests a proxy reports as plain HTTP.
	RequireTLS bool `toml:"require_tls"`
}

// Auth contains token settings.
type Auth struct {
	JWTSecret   string `toml:"jwt_secret"`
	JWTIssuer   string `toml:"jwt_issuer"`
	JWTAudience string `toml:"jwt_audience"`
}

// Database contains storage settings.
type Database struct {
	Driver     string `toml:"driver"`
	URL        string `toml:"url"`
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	User       string `toml:"user"`
	Password   string `toml:"password"`
	Name       string `toml:"name"`
	SSLMode    string `toml:"sslmode"`
	SQLitePath string `toml:"sqlite_path"`
}

// Forecast contains weather resolution settings.
type Forecast struct {
	HorizonDays         int `toml:"horizon_days"`
	DaysToFetch         int `toml:"days_to_fetch"`
	HistoricalYearsBack int `toml:"historical_years_back"`
	FavoritesYearsBack  int `toml:"favorites_years_back"`
	Concurrency         int `toml:"concurrency"`
}

// Providers contains upstream endpoints.
type Providers struct {
	NASAPowerURL      string  `toml:"nasa_power_url"`
	NASAPowerRPS      float64 `toml:"nasa_power_rps"`
	OpenMeteoURL      string  `toml:"open_meteo_url"`
	NominatimURL      string  `toml:"nominatim_url"`
	GeocoderUserAgent string  `toml:"geocoder_user_agent"`
}

// Telemetry contains OpenTelemetry export settings.
type Telemetry struct {
	Enabled      bool    `toml:"enabled"`
	OTLPEndpoint string  `toml:"otlp_endpoint"`
	SampleRatio  float64 `toml:"sample_ratio"`
}

// Config represents the complete service configuration.
type Config struct {
	Server    Server    `toml:"server"`
	Auth      Auth      `toml:"auth"`
	Database  Database  `toml:"database"`
	Forecast  Forecast  `toml:"forecast"`
	Providers Providers `toml:"providers"`
	Telemetry Telemetry `toml:"telemetry"`
}

// Load reads .env (if present), the TOML file named by METEOPOINT_CONFIG
// (if set) and the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv(FileEnv))
}

// LoadFrom is Load with an explicit TOML path; an empty path skips the file.
func LoadFrom(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return LoadWith(path, os.LookupEnv)
}

// LoadWith builds a Config from an optional TOML file and an env lookup.
func LoadWith(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &NotFoundError{Path: cleanPath}
		}
		return fmt.Errorf("reading configuration file: %w", err)
	}

	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing TOML configuration: %w", err)
	}
	return nil
}

// applyEnv overlays environment variables onto c.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a number", key, v))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a boolean", key, v))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a duration", key, v))
				return
			}
			*dst = d
		}
	}

	integer("PORT", &c.Server.Port)
	str("ENVIRONMENT", &c.Server.Environment)
	str("LOG_LEVEL", &c.Server.LogLevel)
	duration("SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
	boolean("REQUIRE_TLS", &c.Server.RequireTLS)

	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("JWT_ISSUER", &c.Auth.JWTIssuer)
	str("JWT_AUDIENCE", &c.Auth.JWTAudience)

	str("DB_DRIVER", &c.Database.Driver)
	str("DATABASE_URL", &c.Database.URL)
	str("DB_HOST", &c.Database.Host)
	integer("DB_PORT", &c.Database.Port)
	str("DB_USER", &c.Database.User)
	str("DB_PASSWORD", &c.Database.Password)
	str("DB_NAME", &c.Database.Name)
	str("DB_SSLMODE", &c.Database.SSLMode)
	str("SQLITE_DB_PATH", &c.Database.SQLitePath)

	integer("FORECAST_API_DAYS", &c.Forecast.HorizonDays)
	integer("FORECAST_DAYS_TO_FETCH", &c.Forecast.DaysToFetch)
	integer("HISTORICAL_YEARS_BACK", &c.Forecast.HistoricalYearsBack)
	integer("FAVORITES_YEARS_BACK", &c.Forecast.FavoritesYearsBack)
	integer("FORECAST_CONCURRENCY", &c.Forecast.Concurrency)

	str("NASA_POWER_URL", &c.Providers.NASAPowerURL)
	float("NASA_POWER_RPS", &c.Providers.NASAPowerRPS)
	str("OPEN_METEO_URL", &c.Providers.OpenMeteoURL)
	str("NOMINATIM_URL", &c.Providers.NominatimURL)
	str("GEOCODER_USER_AGENT", &c.Providers.GeocoderUserAgent)

	boolean("OTEL_ENABLED", &c.Telemetry.Enabled)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Telemetry.OTLPEndpoint)
	float("OTEL_TRACES_SAMPLER_ARG", &c.Telemetry.SampleRatio)

	return errors.Join(errs...)
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if strings.TrimSpace(c.Server.Environment) == "" {
		c.Server.Environment = EnvDevelopment
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}

	if c.Auth.JWTSecret == "" && c.IsDevelopment() {
		c.Auth.JWTSecret = DevJWTSecret
	}
	if c.Auth.JWTIssuer == "" {
		c.Auth.JWTIssuer = "meteopoint"
	}
	if c.Auth.JWTAudience == "" {
		c.Auth.JWTAudience = "meteopoint-api"
	}

	def := database.DefaultConfig()
	if c.Database.Driver == "" {
		c.Database.Driver = def.Driver
	}
	if c.Database.Host == "" {
		c.Database.Host = def.Host
	}
	if c.Database.Port == 0 {
		c.Database.Port = def.Port
	}
	if c.Database.User == "" {
		c.Database.User = def.User
	}
	if c.Database.Password == "" {
		c.Database.Password = def.Password
	}
	if c.Database.Name == "" {
		c.Database.Name = def.Database
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = def.SSLMode
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = def.SQLitePath
	}

	if c.Forecast.HorizonDays == 0 {
		c.Forecast.HorizonDays = weather.DefaultHorizonDays
	}
	if c.Forecast.DaysToFetch == 0 {
		c.Forecast.DaysToFetch = weather.DefaultSeriesDays
	}
	if c.Forecast.HistoricalYearsBack == 0 {
		c.Forecast.HistoricalYearsBack = weather.DefaultYearsBack
	}
	if c.Forecast.FavoritesYearsBack == 0 {
		c.Forecast.FavoritesYearsBack = weather.DefaultSeriesYearsBack
	}
	if c.Forecast.Concurrency == 0 {
		c.Forecast.Concurrency = 8
	}

	if c.Providers.NASAPowerRPS == 0 {
		c.Providers.NASAPowerRPS = 10
	}

	if c.Telemetry.OTLPEndpoint == "" {
		c.Telemetry.OTLPEndpoint = "localhost:4317"
	}
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// DatabaseConfig converts the storage settings for the database package.
func (c *Config) DatabaseConfig() database.Config {
	cfg := database.DefaultConfig()
	cfg.Driver = c.Database.Driver
	cfg.URL = c.Database.URL
	cfg.Host = c.Database.Host
	cfg.Port = c.Database.Port
	cfg.User = c.Database.User
	cfg.Password = c.Database.Password
	cfg.Database = c.Database.Name
	cfg.SSLMode = c.Database.SSLMode
	cfg.SQLitePath = c.Database.SQLitePath
	return cfg
}

// NotFoundError represents a missing configuration file.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("configuration file not found: %s", e.Path)
}

// FieldError is a single invalid setting.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every invalid setting.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	messages := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("configuration validation failed:\n  %s", strings.Join(messages, "\n  "))
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	var errs []FieldError
	add := func(field, msg string) {
		errs = append(errs, FieldError{Field: field, Message: msg})
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port", "must be between 1 and 65535")
	}
	switch strings.ToLower(c.Server.LogLevel) {
	case "trace", "debug", "info", "warn", "error":
	default:
		add("server.log_level", "must be one of trace, debug, info, warn, error")
	}

	if c.Auth.JWTSecret == "" {
		add("auth.jwt_secret", "JWT_SECRET is required outside development")
	}

	switch c.Database.Driver {
	case database.DriverMemory, database.DriverSQLite, database.DriverPostgres:
	default:
		add("database.driver", "must be one of memory, sqlite, postgres")
	}

	if c.Forecast.HorizonDays < 0 || c.Forecast.HorizonDays > weather.MaxSeriesDays {
		add("forecast.horizon_days", fmt.Sprintf("must be between 0 and %d", weather.MaxSeriesDays))
	}
	if weather.ValidateSeriesDays(c.Forecast.DaysToFetch) != nil {
		add("forecast.days_to_fetch", fmt.Sprintf("must be between 1 and %d", weather.MaxSeriesDays))
	}
	if c.Forecast.HistoricalYearsBack < 1 {
		add("forecast.historical_years_back", "must be positive")
	}
	if c.Forecast.FavoritesYearsBack < 1 {
		add("forecast.favorites_years_back", "must be positive")
	}
	if c.Forecast.Concurrency < 1 {
		add("forecast.concurrency", "must be positive")
	}
	if c.Providers.NASAPowerRPS <= 0 {
		add("providers.nasa_power_rps", "must be positive")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		add("telemetry.sample_ratio", "must be between 0 and 1")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
