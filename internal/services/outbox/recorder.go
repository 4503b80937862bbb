// Package outbox records domain events in the business transaction and
// relays them to the broker afterwards.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/database"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/tracing"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/logger"
)

type outboxInserter interface {
	Insert(ctx context.Context, e *models.OutboxEvent) error
}

type Recorder struct {
	log  *slog.Logger
	repo outboxInserter
}

func NewRecorder(log *slog.Logger, repo outboxInserter) *Recorder {
	return &Recorder{log: log, repo: repo}
}

// Record schedules event to be written to the outbox just before the
// transaction in ctx commits. It fails with ErrNoTransaction outside one.
func (r *Recorder) Record(ctx context.Context, event models.DomainEvent) error {
	const op = "services.outbox.Recorder.Record"

	if err := database.BeforeCommit(ctx, func(ctx context.Context) error {
		return r.write(ctx, event)
	}); err != nil {
		return fmt.Errorf("%s: %s: %w", op, event.EventType(), err)
	}

	return nil
}

func (r *Recorder) write(ctx context.Context, event models.DomainEvent) error {
	const op = "services.outbox.Recorder.write"

	traceID, spanID := event.TraceID(), event.SpanID()
	if traceID == "" {
		traceID, spanID = tracing.IDs(tracing.Ensure(ctx))
	}

	payload, err := Marshal(event, traceID, spanID)
	if err != nil {
		r.log.Error(op, logger.Err(err), slog.String("event_type", event.EventType()))
		return fmt.Errorf("%s: %w", op, err)
	}

	row := &models.OutboxEvent{
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Topic:         event.Topic(),
		Payload:       payload,
		TraceID:       models.NullableString(traceID),
		SpanID:        models.NullableString(spanID),
	}

	if err = r.repo.Insert(ctx, row); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	r.log.Info("outbox event recorded",
		slog.String("event_id", row.EventID),
		slog.String("event_type", row.EventType),
		slog.String("topic", row.Topic),
		slog.String("aggregate_id", row.AggregateID),
	)

	return nil
}

// Marshal builds the wire envelope: business fields go to payload, the
// correlation fields go to metadata.
func Marshal(event models.DomainEvent, traceID, spanID string) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	occurredAt := event.OccurredAt().UTC().Truncate(time.Millisecond)

	return json.Marshal(models.Envelope{
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		Payload:     payload,
		Metadata: models.EventMetadata{
			EventID:    event.EventID(),
			TraceID:    traceID,
			SpanID:     spanID,
			OccurredAt: &occurredAt,
		},
	})
}
