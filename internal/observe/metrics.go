// Package observe provides application-wide observability primitives for
// signstream: OpenTelemetry metrics, tracing helpers, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all signstream metrics.
const meterName = "github.com/signstream/signstream"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Pipeline counters ---

	// FragmentsReceived counts audio fragments accepted from all streams.
	FragmentsReceived metric.Int64Counter

	// DecodeFailures counts fragments the container decoder could not turn
	// into samples.
	DecodeFailures metric.Int64Counter

	// Transcriptions counts transcription passes. Use with attribute:
	//   attribute.String("status", "ok"|"error")
	Transcriptions metric.Int64Counter

	// --- Latency histograms ---

	// TranscribeDuration tracks batch speech-to-text inference latency.
	TranscribeDuration metric.Float64Histogram

	// RenderDuration tracks sign GIF rendering latency.
	RenderDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// --- Gauges ---

	// ActiveStreams tracks the number of live WebSocket audio streams.
	ActiveStreams metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// batch-inference and rendering latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Counters.
	if met.FragmentsReceived, err = m.Int64Counter("signstream.fragments.received",
		metric.WithDescription("Total audio fragments received across all streams."),
	); err != nil {
		return nil, err
	}
	if met.DecodeFailures, err = m.Int64Counter("signstream.fragments.decode_failures",
		metric.WithDescription("Total fragments that failed container decoding."),
	); err != nil {
		return nil, err
	}
	if met.Transcriptions, err = m.Int64Counter("signstream.transcriptions",
		metric.WithDescription("Total transcription passes by status."),
	); err != nil {
		return nil, err
	}

	// Histograms.
	if met.TranscribeDuration, err = m.Float64Histogram("signstream.transcribe.duration",
		metric.WithDescription("Latency of batch speech-to-text inference."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RenderDuration, err = m.Float64Histogram("signstream.render.duration",
		metric.WithDescription("Latency of sign GIF rendering."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("signstream.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveStreams, err = m.Int64UpDownCounter("signstream.active_streams",
		metric.WithDescription("Number of live WebSocket audio streams."),
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
