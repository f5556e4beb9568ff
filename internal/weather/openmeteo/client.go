// Package openmeteo fetches short-horizon daily forecasts from Open-Meteo.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/meteopoint/meteopoint/internal/provider/resilience"
	"github.com/meteopoint/meteopoint/internal/weather"
)

const (
	// ProviderName identifies this forecast source.
	ProviderName = "open-meteo"

	// DefaultBaseURL is the Open-Meteo forecast endpoint.
	DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

	// DailyVariables requested for every forecast day.
	DailyVariables = "temperature_2m_max,temperature_2m_min,precipitation_sum,windspeed_10m_max,relative_humidity_2m_max"
)

// ClientConfig holds configuration for the Open-Meteo client.
type ClientConfig struct {
	// BaseURL is the API endpoint (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a single-attempt resilient client with a 10s timeout.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an Open-Meteo API client.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new Open-Meteo client.
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

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// FetchForecast returns the live-forecast record for a single date.
func (c *Client) FetchForecast(ctx context.Context, coord weather.Coordinate, date time.Time) (*weather.Record, error) {
	days, err := c.FetchRange(ctx, coord, date, date)
	if err != nil {
		return nil, err
	}

	want := date.Format(weather.DateLayout)
	for i := range days {
		if days[i].Date.Format(weather.DateLayout) == want {
			return weather.LiveRecord(coord, &days[i]), nil
		}
	}
	return nil, fmt.Errorf("%w: forecast has no entry for %s", weather.ErrUpstreamUnavailable, want)
}

// FetchRange returns one day per entry of the upstream daily series for
// [start, end]. An empty series or a null value is treated as unavailable.
func (c *Client) FetchRange(ctx context.Context, coord weather.Coordinate, start, end time.Time) ([]weather.DayRecord, error) {
	url := fmt.Sprintf("%s?latitude=%.4f&longitude=%.4f&start_date=%s&end_date=%s&daily=%s&timezone=auto&wind_speed_unit=ms",
		c.baseURL, coord.Latitude, coord.Longitude,
		start.Format(weather.DateLayout), end.Format(weather.DateLayout), DailyVariables)

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

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", weather.ErrUpstreamUnavailable, err)
	}

	days, err := body.Daily.toDayRecords()
	if err != nil {
		c.logger.Debug().Err(err).
			Str("start", start.Format(weather.DateLayout)).
			Str("end", end.Format(weather.DateLayout)).
			Msg("unusable forecast payload")
		return nil, err
	}
	return days, nil
}

type forecastResponse struct {
	Daily dailySeries `json:"daily"`
}

// dailySeries uses pointers so nulls are distinguishable from zero.
type dailySeries struct {
	Time          []string   `json:"time"`
	TempMax       []*float64 `json:"temperature_2m_max"`
	TempMin       []*float64 `json:"temperature_2m_min"`
	Precipitation []*float64 `json:"precipitation_sum"`
	WindSpeed     []*float64 `json:"windspeed_10m_max"`
	Humidity      []*float64 `json:"relative_humidity_2m_max"`
}

func (s *dailySeries) toDayRecords() ([]weather.DayRecord, error) {
	n := len(s.Time)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty daily series", weather.ErrUpstreamUnavailable)
	}

	columns := map[string][]*float64{
		"temperature_2m_max":       s.TempMax,
		"temperature_2m_min":       s.TempMin,
		"precipitation_sum":        s.Precipitation,
		"windspeed_10m_max":        s.WindSpeed,
		"relative_humidity_2m_max": s.Humidity,
	}
	for name, col := range columns {
		if len(col) != n {
			return nil, fmt.Errorf("%w: %s has %d values for %d days", weather.ErrUpstreamUnavailable, name, len(col), n)
		}
		for i, v := range col {
			if v == nil {
				return nil, fmt.Errorf("%w: %s is null for %s", weather.ErrUpstreamUnavailable, name, s.Time[i])
			}
		}
	}

	days := make([]weather.DayRecord, n)
	for i, ts := range s.Time {
		date, err := weather.ParseDate(ts)
		if err != nil {
			return nil, fmt.Errorf("%w: bad date %q", weather.ErrUpstreamUnavailable, ts)
		}
		days[i] = weather.DayRecord{
			Date:          date,
			TempMax:       *s.TempMax[i],
			TempMin:       *s.TempMin[i],
			WindSpeed:     *s.WindSpeed[i],
			Precipitation: *s.Precipitation[i],
			Humidity:      *s.Humidity[i],
		}
	}
	return days, nil
}
