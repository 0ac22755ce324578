// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, distributed tracing, and trace-aware structured
// logging.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all broista metrics.
const meterName = "github.com/broistadev/broista"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// ExtractDuration tracks candidate extraction latency (LLM or pattern).
	ExtractDuration metric.Float64Histogram

	// MatchDuration tracks per-item catalog matching latency.
	MatchDuration metric.Float64Histogram

	// ComposeDuration tracks order composition latency.
	ComposeDuration metric.Float64Histogram

	// PipelineDuration tracks end-to-end request latency.
	PipelineDuration metric.Float64Histogram

	// --- Counters ---

	// ItemsExtracted counts normalized items that passed admission.
	ItemsExtracted metric.Int64Counter

	// ItemsRejected counts candidates dropped during normalisation.
	ItemsRejected metric.Int64Counter

	// MatchOutcomes counts per-item match results. Use with attribute:
	//   attribute.String("outcome", "matched"|"not_in_menu"|"no_match")
	MatchOutcomes metric.Int64Counter

	// OrdersComposed counts composed orders.
	OrdersComposed metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// an order pipeline dominated by one or two model round-trips.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ExtractDuration, err = m.Float64Histogram("broista.extract.duration",
		metric.WithDescription("Latency of candidate extraction."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.MatchDuration, err = m.Float64Histogram("broista.match.duration",
		metric.WithDescription("Latency of catalog matching per item."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ComposeDuration, err = m.Float64Histogram("broista.compose.duration",
		metric.WithDescription("Latency of order composition."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineDuration, err = m.Float64Histogram("broista.pipeline.duration",
		metric.WithDescription("End-to-end order pipeline latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ItemsExtracted, err = m.Int64Counter("broista.items.extracted",
		metric.WithDescription("Total normalized items that passed admission."),
	); err != nil {
		return nil, err
	}
	if met.ItemsRejected, err = m.Int64Counter("broista.items.rejected",
		metric.WithDescription("Total candidates dropped during normalisation."),
	); err != nil {
		return nil, err
	}
	if met.MatchOutcomes, err = m.Int64Counter("broista.match.outcomes",
		metric.WithDescription("Total per-item match results by outcome."),
	); err != nil {
		return nil, err
	}
	if met.OrdersComposed, err = m.Int64Counter("broista.orders.composed",
		metric.WithDescription("Total composed orders."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("broista.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordMatchOutcome records a per-item match result.
func (m *Metrics) RecordMatchOutcome(ctx context.Context, outcome string) {
	m.MatchOutcomes.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
