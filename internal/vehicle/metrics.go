package vehicle

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/bonvoyage/voyage/internal/vehicle"

type metrics struct {
	ticks    metric.Int64Counter
	distance metric.Float64Counter
	arrivals metric.Int64Counter
	stops    metric.Int64Counter
}

// newMetrics creates simulator instruments on the global meter provider
// (no-op if not configured).
func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)
	var (
		out metrics
		err error
	)

	out.ticks, err = m.Int64Counter(
		"voyage.ticks",
		metric.WithDescription("Simulated ticks by resulting state"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}

	out.distance, err = m.Float64Counter(
		"voyage.distance",
		metric.WithDescription("Distance travelled while unloaded"),
		metric.WithUnit("m"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating distance counter: %w", err)
	}

	out.arrivals, err = m.Int64Counter(
		"voyage.arrivals",
		metric.WithDescription("Vehicles that reached their target"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating arrivals counter: %w", err)
	}

	out.stops, err = m.Int64Counter(
		"voyage.stops",
		metric.WithDescription("Autopilots stopped short of their target"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stops counter: %w", err)
	}

	return &out, nil
}

func (m *metrics) tick(body string, state State, distance float64) {
	if m == nil {
		return
	}
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("body", body),
		attribute.String("state", state.String()),
	)
	m.ticks.Add(ctx, 1, attrs)
	if distance > 0 {
		m.distance.Add(ctx, distance, metric.WithAttributes(attribute.String("body", body)))
	}
}

func (m *metrics) arrived(body string) {
	if m == nil {
		return
	}
	m.arrivals.Add(context.Background(), 1, metric.WithAttributes(attribute.String("body", body)))
}

func (m *metrics) stopped(body, reason string) {
	if m == nil {
		return
	}
	m.stops.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("body", body),
		attribute.String("reason", reason),
	))
}
