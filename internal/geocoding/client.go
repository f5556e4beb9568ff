// Package geocoding resolves coordinates to place names through Nominatim.
package geocoding

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

const (
	// ProviderName identifies the geocoder.
	ProviderName = "nominatim"

	// DefaultBaseURL is the public OpenStreetMap Nominatim instance.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"

	// DefaultUserAgent is sent when none is configured; Nominatim rejects anonymous clients.
	DefaultUserAgent = "meteopoint/1.0"
)

// Location is a reverse-geocoding result. City and Country are nil when unknown.
type Location struct {
	City             *string `json:"city"`
	Country          *string `json:"country"`
	FormattedAddress string  `json:"formattedAddress"`
}

// ClientConfig holds configuration for the Nominatim client.
type ClientConfig struct {
	// BaseURL is the Nominatim base URL (optional).
	BaseURL string

	// UserAgent identifies this application to Nominatim (optional).
	UserAgent string

	// Timeout bounds each request (default: 5 seconds).
	Timeout time.Duration

	// RetryCount is the number of retries on timeout (default: 1, negative disables).
	RetryCount int

	// CacheTTL is how long results are kept (default: 24 hours).
	CacheTTL time.Duration

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client reverse-geocodes coordinates with a local result cache.
type Client struct {
	http   *resty.Client
	cache  *cache.Cache
	logger zerolog.Logger
}

// NewClient creates a new Nominatim client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	retries := cfg.RetryCount
	switch {
	case retries == 0:
		retries = 1
	case retries < 0:
		retries = 0
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second)

	return &Client{
		http:   httpClient,
		cache:  cache.New(ttl, 2*ttl),
		logger: cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
	Address     struct {
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		Municipality string `json:"municipality"`
		County       string `json:"county"`
		Country      string `json:"country"`
	} `json:"address"`
}

// Reverse looks up the place at (lat, lon). It never fails: on any upstream
// problem it returns unknown city and country with the coordinates as the
// formatted address.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) Location {
	key := fmt.Sprintf("%.4f,%.4f", lat, lon)
	if cached, found := c.cache.Get(key); found {
		return cached.(Location)
	}

	fallback := Location{FormattedAddress: fmt.Sprintf("%g, %g", lat, lon)}

	var body reverseResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format":         "jsonv2",
			"lat":            fmt.Sprintf("%f", lat),
			"lon":            fmt.Sprintf("%f", lon),
			"zoom":           "10",
			"addressdetails": "1",
		}).
		SetResult(&body).
		Get("/reverse")
	if err != nil {
		c.logger.Warn().Err(err).Str("coords", key).Msg("reverse geocoding failed")
		return fallback
	}
	if resp.StatusCode() != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode()).Str("coords", key).Msg("reverse geocoding failed")
		return fallback
	}

	loc := fallback
	if body.Error == "" {
		if city := firstNonEmpty(body.Address.City, body.Address.Town, body.Address.Village, body.Address.Municipality, body.Address.County); city != "" {
			loc.City = &city
		}
		if country := body.Address.Country; country != "" {
			loc.Country = &country
		}
		if body.DisplayName != "" {
			loc.FormattedAddress = body.DisplayName
		}
	}

	c.cache.Set(key, loc, cache.DefaultExpiration)
	return loc
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
