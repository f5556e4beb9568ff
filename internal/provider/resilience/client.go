package resilience

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/meteopoint/meteopoint/internal/telemetry"
)

var (
	// ErrCircuitOpen is returned without contacting the upstream while its breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// ClientConfig holds configuration for a resilient upstream client.
type ClientConfig struct {
	// Name identifies the upstream in logs, the breaker and the registry.
	Name string

	// Timeout bounds each individual attempt.
	// Default: 10 seconds
	Timeout time.Duration

	// Retries is the number of extra attempts after the first one.
	// Zero means a single attempt.
	Retries uint64

	// InitialInterval is the first backoff delay between attempts.
	// Default: 200ms
	InitialInterval time.Duration

	// MaxInterval caps the backoff delay.
	// Default: 2 seconds
	MaxInterval time.Duration

	// Breaker configures the circuit breaker.
	Breaker BreakerConfig

	// Registry, if set, receives success and failure reports.
	Registry *Registry

	// Metrics, if set, records the duration and outcome of each call.
	Metrics *telemetry.UpstreamMetrics

	// Logger for breaker state changes.
	Logger zerolog.Logger

	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// Client executes HTTP requests against one upstream.
type Client struct {
	name     string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	retries  uint64
	initial  time.Duration
	max      time.Duration
	registry *Registry
	metrics  *telemetry.UpstreamMetrics
}

// NewClient creates a resilient client and registers it when a registry is given.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 2 * time.Second
	}

	logger := cfg.Logger.With().Str("upstream", cfg.Name).Logger()
	onChange := func(name string, from, to gobreaker.State) {
		logger.Warn().
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("circuit breaker state changed")
	}

	c := &Client{
		name:     cfg.Name,
		http:     &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		breaker:  newBreaker[*http.Response](cfg.Name, cfg.Breaker, onChange), //nolint:bodyclose // type param
		retries:  cfg.Retries,
		initial:  cfg.InitialInterval,
		max:      cfg.MaxInterval,
		registry: cfg.Registry,
		metrics:  cfg.Metrics,
	}

	if cfg.Registry != nil {
		cfg.Registry.Register(c)
	}

	return c
}

// Name returns the upstream name.
func (c *Client) Name() string {
	return c.name
}

// Do executes req. A 5xx response counts as a failure for the breaker and is
// returned as a *StatusError once attempts are exhausted. Other non-2xx
// responses are handed back to the caller untouched.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	start := time.Now()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initial
	bo.MaxInterval = c.max
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.retries), ctx)

	var resp *http.Response
	operation := func() error {
		r, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // closed below or by the caller
			r, err := c.http.Do(req.Clone(ctx))
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= http.StatusInternalServerError {
				drain(r)
				return nil, &StatusError{StatusCode: r.StatusCode}
			}
			return r, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		resp = r
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		c.report(ctx, err, time.Since(start))
		return nil, err
	}

	c.report(ctx, nil, time.Since(start))
	return resp, nil
}

func (c *Client) report(ctx context.Context, err error, elapsed time.Duration) {
	outcome := telemetry.OutcomeSuccess
	switch {
	case errors.Is(err, ErrCircuitOpen):
		outcome = telemetry.OutcomeCircuitOpen
	case err != nil:
		outcome = telemetry.OutcomeFailure
	}
	c.metrics.Record(ctx, c.name, outcome, elapsed)

	if c.registry == nil {
		return
	}
	if err != nil {
		c.registry.RecordFailure(c.name, err)
		return
	}
	c.registry.RecordSuccess(c.name)
}

// State returns the current breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the current breaker counters.
func (c *Client) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}

// StatusError is returned for upstream 5xx responses.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return "upstream error: " + http.StatusText(e.StatusCode)
}

func drain(r *http.Response) {
	_, _ = io.Copy(io.Discard, r.Body)
	_ = r.Body.Close()
}
