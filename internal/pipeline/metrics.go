package pipeline

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/loqalabs/loqa-voice/pipeline"

// Metrics holds the synthesis instruments.
type Metrics struct {
	duration metric.Float64Histogram
	chunks   metric.Int64Counter
	samples  metric.Int64Counter
	degraded metric.Int64Counter
	failures metric.Int64Counter
}

// NewMetrics creates instruments on meter, or on the global meter provider
// when meter is nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	var m Metrics
	var err, errs error
	m.duration, err = meter.Float64Histogram("tts.synthesis.duration",
		metric.WithDescription("Wall time of a synthesis run"), metric.WithUnit("s"))
	errs = errors.Join(errs, err)
	m.chunks, err = meter.Int64Counter("tts.chunks", metric.WithDescription("Audio chunks delivered by the engine"))
	errs = errors.Join(errs, err)
	m.samples, err = meter.Int64Counter("tts.samples", metric.WithDescription("Audio samples delivered by the engine"))
	errs = errors.Join(errs, err)
	m.degraded, err = meter.Int64Counter("tts.playback.degraded", metric.WithDescription("Sessions where live playback was disabled"))
	errs = errors.Join(errs, err)
	m.failures, err = meter.Int64Counter("tts.synthesis.failures", metric.WithDescription("Failed synthesis runs"))
	errs = errors.Join(errs, err)
	if errs != nil {
		return nil, errs
	}
	return &m, nil
}

func noopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(instrumentationName))
	return m
}

func (m *Metrics) chunk(ctx context.Context, samples int) {
	m.chunks.Add(ctx, 1)
	m.samples.Add(ctx, int64(samples))
}

func (m *Metrics) finished(ctx context.Context, d time.Duration, outcome string) {
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
	if outcome == "failed" {
		m.failures.Add(ctx, 1)
	}
}

func (m *Metrics) playbackDegraded(ctx context.Context) {
	m.degraded.Add(ctx, 1)
}
