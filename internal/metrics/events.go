package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	ComponentRelay      = "relay"
	ComponentConsumer   = "consumer"
	ComponentDeadLetter = "deadletter"
	ComponentWebhook    = "webhook"
)

// EventMetrics counts what happened to an event in a given component.
type EventMetrics interface {
	RecordEvent(ctx context.Context, component, outcome string)
}

type eventMetrics struct {
	counter metric.Int64Counter
}

func NewEventMetrics(meterProvider metric.MeterProvider, namespace string) (EventMetrics, error) {
	meter := meterProvider.Meter(namespace)

	counter, err := meter.Int64Counter(
		fmt.Sprintf("%s_events", namespace),
		metric.WithDescription("Events handled, by component and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event counter: %w", err)
	}

	return &eventMetrics{counter: counter}, nil
}

func (m *eventMetrics) RecordEvent(ctx context.Context, component, outcome string) {
	m.counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("outcome", outcome),
	))
}

type NoOp struct{}

func (NoOp) RecordEvent(context.Context, string, string) {}
