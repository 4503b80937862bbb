// Package consumer wraps inbound event handling with allow-list filtering,
// deduplication by event id and a single unit of work per event.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/database"
	internalErrors "github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/errors"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/tracing"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/metrics"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/logger"
)

const (
	MarkerSuccess          = "EVENT_CONSUMED_SUCCESS"
	MarkerAlreadyProcessed = "EVENT_ALREADY_PROCESSED"
	MarkerUnsubscribed     = "UNSUBSCRIBED_EVENT"
	MarkerFailed           = "EVENT_CONSUMED_FAILED"
)

// Handler is the business side of a consumer. HandleEvent runs inside the
// unit of work that also writes the ledger row.
type Handler interface {
	Name() string
	HandleEvent(ctx context.Context, event *models.ParsedEvent) error
}

type allowList interface {
	Subscribed(topic, eventType string) bool
}

type ledger interface {
	Exists(ctx context.Context, eventID string) (bool, error)
	Insert(ctx context.Context, e *models.ProcessedEvent) error
}

type processedCache interface {
	Contains(consumer, eventID string) bool
	Add(consumer, eventID string)
}

type Consumer struct {
	log     *slog.Logger
	tm      database.TxManager
	allow   allowList
	ledger  ledger
	cache   processedCache
	handler Handler
	metrics metrics.EventMetrics
	now     func() time.Time
}

func New(
	log *slog.Logger,
	tm database.TxManager,
	allow allowList,
	ledger ledger,
	cache processedCache,
	handler Handler,
	em metrics.EventMetrics,
) *Consumer {
	return &Consumer{
		log:     log,
		tm:      tm,
		allow:   allow,
		ledger:  ledger,
		cache:   cache,
		handler: handler,
		metrics: em,
		now:     time.Now,
	}
}

func (c *Consumer) Name() string {
	return c.handler.Name()
}

// Consume handles one raw message from topic. ack is called only once the
// outcome is durable: after commit, or immediately for events that need no
// work. A returned error means the message was not acknowledged.
func (c *Consumer) Consume(ctx context.Context, topic string, raw []byte, ack func()) error {
	const op = "consumer.Consume"

	log := c.log.With(logger.Op(op), slog.String("consumer", c.handler.Name()), slog.String("topic", topic))

	event, err := ParseEnvelope(raw)
	if err != nil {
		c.metrics.RecordEvent(ctx, metrics.ComponentConsumer, "invalid")
		log.Error(MarkerFailed, logger.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	ctx = tracing.Restore(ctx, event.TraceID, event.SpanID)
	traceID, _ := tracing.IDs(ctx)

	log = log.With(
		slog.String("trace_id", traceID),
		slog.String("event_id", event.EventID),
		slog.String("event_type", event.EventType),
		slog.String("aggregate_id", event.AggregateID),
	)

	if !c.allow.Subscribed(topic, event.EventType) {
		ack()
		c.metrics.RecordEvent(ctx, metrics.ComponentConsumer, "unsubscribed")
		log.Debug(MarkerUnsubscribed)
		return nil
	}

	if event.HasEventID() && c.cache.Contains(c.handler.Name(), event.EventID) {
		ack()
		c.metrics.RecordEvent(ctx, metrics.ComponentConsumer, "duplicate")
		log.Info(MarkerAlreadyProcessed)
		return nil
	}

	err = c.tm.WithTx(ctx, func(ctx context.Context) error {
		return c.process(ctx, event)
	})
	switch {
	case errors.Is(err, internalErrors.ErrEventAlreadyProcessed):
		if event.HasEventID() {
			c.cache.Add(c.handler.Name(), event.EventID)
		}
		ack()
		c.metrics.RecordEvent(ctx, metrics.ComponentConsumer, "duplicate")
		log.Info(MarkerAlreadyProcessed)
		return nil
	case err != nil:
		c.metrics.RecordEvent(ctx, metrics.ComponentConsumer, "failed")
		log.Error(MarkerFailed, logger.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if event.HasEventID() {
		c.cache.Add(c.handler.Name(), event.EventID)
	}
	ack()
	c.metrics.RecordEvent(ctx, metrics.ComponentConsumer, "consumed")
	log.Info(MarkerSuccess)

	return nil
}

// process runs inside the unit of work: ledger check, business handling,
// ledger insert. The unique event id makes a concurrent duplicate fail the
// insert and roll back its business effect.
func (c *Consumer) process(ctx context.Context, event *models.ParsedEvent) error {
	if event.HasEventID() {
		exists, err := c.ledger.Exists(ctx, event.EventID)
		if err != nil {
			return err
		}
		if exists {
			return internalErrors.ErrEventAlreadyProcessed
		}
	}

	if err := c.handler.HandleEvent(ctx, event); err != nil {
		return err
	}

	if !event.HasEventID() {
		return nil
	}

	return c.ledger.Insert(ctx, &models.ProcessedEvent{
		EventID:     event.EventID,
		EventType:   event.EventType,
		ConsumedBy:  c.handler.Name(),
		ProcessedAt: c.now().UTC(),
	})
}
