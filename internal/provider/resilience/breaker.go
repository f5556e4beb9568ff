// Package resilience wraps outbound calls to upstream weather sources with
// timeouts, optional retries and a circuit breaker, and tracks their health.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig configures the circuit breaker placed in front of an upstream.
type BreakerConfig struct {
	// HalfOpenRequests is the number of probe requests allowed while half-open.
	// Default: 1
	HalfOpenRequests uint32

	// OpenFor is how long the breaker stays open before probing again.
	// Default: 30 seconds
	OpenFor time.Duration

	// ConsecutiveFailures trips the breaker when reached.
	// Default: 10
	ConsecutiveFailures uint32
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.HalfOpenRequests == 0 {
		c.HalfOpenRequests = 1
	}
	if c.OpenFor == 0 {
		c.OpenFor = 30 * time.Second
	}
	if c.ConsecutiveFailures == 0 {
		c.ConsecutiveFailures = 10
	}
	return c
}

func newBreaker[T any](name string, cfg BreakerConfig, onChange func(name string, from, to gobreaker.State)) *gobreaker.CircuitBreaker[T] {
	cfg = cfg.withDefaults()
	threshold := cfg.ConsecutiveFailures

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A caller giving up is not an upstream failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: onChange,
	})
}
