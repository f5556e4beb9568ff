package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Upstream call outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeCircuitOpen = "circuit_open"
)

// UpstreamMetrics records calls to the NASA POWER, Open-Meteo and Nominatim APIs.
type UpstreamMetrics struct {
	duration metric.Float64Histogram
	total    metric.Int64Counter
}

// NewUpstreamMetrics creates the upstream instruments on meter.
func NewUpstreamMetrics(meter metric.Meter) (*UpstreamMetrics, error) {
	duration, err := meter.Float64Histogram(
		"upstream.request.duration",
		metric.WithDescription("Duration of upstream weather API calls, retries included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	total, err := meter.Int64Counter(
		"upstream.request.total",
		metric.WithDescription("Upstream weather API calls by outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	return &UpstreamMetrics{duration: duration, total: total}, nil
}

// Record notes one upstream call. A nil receiver records nothing.
func (m *UpstreamMetrics) Record(ctx context.Context, upstream, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("upstream", upstream),
		attribute.String("outcome", outcome),
	)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	m.total.Add(ctx, 1, attrs)
}
