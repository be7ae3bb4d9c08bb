// SPDX-License-Identifier: MIT

// Package observe records frame loop and transport metrics through the
// OpenTelemetry metrics API. InitProvider bridges them to a Prometheus
// scrape endpoint; tests use NewMetrics with their own MeterProvider.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "pulse"

// Metrics holds every instrument. All fields are safe for concurrent use.
type Metrics struct {
	// Frames counts animation ticks that ran (paused ticks are not counted).
	Frames metric.Int64Counter

	// Beats counts registered (debounced) beats.
	Beats metric.Int64Counter

	// FrameDuration is the time spent inside one tick.
	FrameDuration metric.Float64Histogram

	// Tempo is the latest BPM estimate.
	Tempo metric.Int64Gauge

	// Particles is the current particle population.
	Particles metric.Int64Gauge

	// Clients tracks connected websocket clients.
	Clients metric.Int64UpDownCounter

	// Dropped counts messages a transport discarded. Use with
	// attribute.String("transport", ...).
	Dropped metric.Int64Counter
}

// frameBuckets are in seconds, spaced around a 16.7ms frame budget.
var frameBuckets = []float64{
	0.0005, 0.001, 0.002, 0.004, 0.008, 0.0167, 0.033, 0.05, 0.1,
}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Frames, err = m.Int64Counter("pulse.frames",
		metric.WithDescription("Animation frames processed."),
	); err != nil {
		return nil, err
	}
	if met.Beats, err = m.Int64Counter("pulse.beats",
		metric.WithDescription("Registered beats."),
	); err != nil {
		return nil, err
	}
	if met.FrameDuration, err = m.Float64Histogram("pulse.frame.duration",
		metric.WithDescription("Time spent computing one frame."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(frameBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Tempo, err = m.Int64Gauge("pulse.tempo",
		metric.WithDescription("Current tempo estimate."),
		metric.WithUnit("{beat}/min"),
	); err != nil {
		return nil, err
	}
	if met.Particles, err = m.Int64Gauge("pulse.particles",
		metric.WithDescription("Current particle population."),
	); err != nil {
		return nil, err
	}
	if met.Clients, err = m.Int64UpDownCounter("pulse.websocket.clients",
		metric.WithDescription("Connected websocket clients."),
	); err != nil {
		return nil, err
	}
	if met.Dropped, err = m.Int64Counter("pulse.transport.dropped",
		metric.WithDescription("Messages dropped by a transport."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a package-level Metrics built on the global
// MeterProvider, which is a no-op until InitProvider runs.
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

// RecordFrame records one processed frame.
func (m *Metrics) RecordFrame(ctx context.Context, took time.Duration, bpm, particles int, registered bool) {
	m.Frames.Add(ctx, 1)
	m.FrameDuration.Record(ctx, took.Seconds())
	m.Tempo.Record(ctx, int64(bpm))
	m.Particles.Record(ctx, int64(particles))
	if registered {
		m.Beats.Add(ctx, 1)
	}
}

// RecordDrop counts a message dropped by the named transport.
func (m *Metrics) RecordDrop(ctx context.Context, transport string) {
	m.Dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("transport", transport)))
}
