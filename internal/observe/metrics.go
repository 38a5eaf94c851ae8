// Package observe holds the OpenTelemetry instruments of the study service
// and the provider wiring that exposes them on /metrics.
//
// Tests should build Metrics with NewMetrics over a MeterProvider backed by a
// ManualReader rather than the global provider.
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/phrazzld/scry-study"

// Metrics holds every instrument the service records.
type Metrics struct {
	// SpeechRequests counts Speak calls by the path that served them.
	// Attribute: source (cache|remote|fallback|silent).
	SpeechRequests metric.Int64Counter

	// SpeechErrors counts absorbed synthesis failures.
	// Attribute: kind (configuration|transport|decode|empty_payload|circuit_open|playback).
	SpeechErrors metric.Int64Counter

	// SynthesisDuration tracks remote synthesis latency in seconds.
	SynthesisDuration metric.Float64Histogram

	// ActiveSessions tracks live study sessions.
	ActiveSessions metric.Int64UpDownCounter

	// SessionsCompleted counts finished sessions. Attribute: mode.
	SessionsCompleted metric.Int64Counter

	// HTTPRequestDuration tracks request latency. Attributes: method, route, status.
	HTTPRequestDuration metric.Float64Histogram
}

var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SpeechRequests, err = m.Int64Counter("scry.speech.requests",
		metric.WithDescription("Speak calls by serving path."),
	); err != nil {
		return nil, err
	}
	if met.SpeechErrors, err = m.Int64Counter("scry.speech.errors",
		metric.WithDescription("Absorbed speech synthesis failures by kind."),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("scry.speech.synthesis.duration",
		metric.WithDescription("Latency of remote speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("scry.sessions.active",
		metric.WithDescription("Number of live study sessions."),
	); err != nil {
		return nil, err
	}
	if met.SessionsCompleted, err = m.Int64Counter("scry.sessions.completed",
		metric.WithDescription("Completed study sessions by mode."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("scry.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordSpeech counts one Speak call served by source.
func (m *Metrics) RecordSpeech(ctx context.Context, source string) {
	m.SpeechRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordSpeechError counts one absorbed synthesis failure.
func (m *Metrics) RecordSpeechError(ctx context.Context, kind string) {
	m.SpeechErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordSessionCompleted counts one finished session.
func (m *Metrics) RecordSessionCompleted(ctx context.Context, mode string) {
	m.SessionsCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
}
