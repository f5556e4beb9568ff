// Package nasapower fetches daily point observations from the NASA POWER API.
package nasapower

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/meteopoint/meteopoint/internal/provider/resilience"
	"github.com/meteopoint/meteopoint/internal/weather"
)

const (
	// ProviderName identifies this data source.
	ProviderName = "nasa-power"

	// DefaultBaseURL is the NASA POWER daily point endpoint.
	DefaultBaseURL = "https://power.larc.nasa.gov/api/temporal/daily/point"

	// Parameters requested for every day.
	Parameters = "T2M_MAX,T2M_MIN,WS10M,PRECTOTCORR,RH2M"

	// fillValue marks a missing measurement in POWER payloads.
	fillValue = -999.0

	dateKeyLayout = "20060102"
)

// ClientConfig holds configuration for the NASA POWER client.
type ClientConfig struct {
	// BaseURL is the API endpoint (optional, defaults to NASA POWER).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a single-attempt resilient client with a 10s timeout.
	HTTPClient *resilience.Client

	// RequestsPerSecond caps outbound calls (default: 10).
	RequestsPerSecond float64

	// Burst is the limiter bucket size (default: 20).
	Burst int

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a NASA POWER API client.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// NewClient creates a new NASA POWER client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:    ProviderName,
			Timeout: 10 * time.Second,
			Logger:  cfg.Logger,
		})
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 20
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		logger:     cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// FetchDay returns the observed values for one date. Any transport failure,
// non-200 status, missing parameter or fill value yields
// weather.ErrUpstreamUnavailable.
func (c *Client) FetchDay(ctx context.Context, coord weather.Coordinate, date time.Time) (*weather.DayRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	key := date.Format(dateKeyLayout)
	url := fmt.Sprintf("%s?parameters=%s&community=AG&latitude=%.4f&longitude=%.4f&start=%s&end=%s&format=JSON",
		c.baseURL, Parameters, coord.Latitude, coord.Longitude, key, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: executing request: %w", weather.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code: %d", weather.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var body pointResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", weather.ErrUpstreamUnavailable, err)
	}

	day, err := body.toDayRecord(key)
	if err != nil {
		c.logger.Debug().Err(err).Str("date", key).Msg("incomplete POWER payload")
		return nil, err
	}
	day.Date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return day, nil
}

// pointResponse is the subset of the POWER GeoJSON payload we read.
type pointResponse struct {
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
}

func (r *pointResponse) value(param, key string) (float64, error) {
	series, ok := r.Properties.Parameter[param]
	if !ok {
		return 0, fmt.Errorf("%w: parameter %s missing", weather.ErrUpstreamUnavailable, param)
	}
	v, ok := series[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s has no value for %s", weather.ErrUpstreamUnavailable, param, key)
	}
	if v == fillValue {
		return 0, fmt.Errorf("%w: %s not yet available for %s", weather.ErrUpstreamUnavailable, param, key)
	}
	return v, nil
}

func (r *pointResponse) toDayRecord(key string) (*weather.DayRecord, error) {
	var (
		day weather.DayRecord
		err error
	)

	fields := []struct {
		param string
		dst   *float64
	}{
		{"T2M_MAX", &day.TempMax},
		{"T2M_MIN", &day.TempMin},
		{"WS10M", &day.WindSpeed},
		{"PRECTOTCORR", &day.Precipitation},
		{"RH2M", &day.Humidity},
	}
	for _, f := range fields {
		if *f.dst, err = r.value(f.param, key); err != nil {
			return nil, err
		}
	}

	return &day, nil
}
