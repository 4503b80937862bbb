// Package deadletter keeps every dead-lettered message for manual inspection.
package deadletter

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/consumer"
	policy "github.com/tumbleweedd/two_services_system/cash_gateway/internal/deadletter"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/metrics"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/logger"
)

type store interface {
	Insert(ctx context.Context, m *models.DeadLetterMessage) error
}

type Inspector struct {
	log     *slog.Logger
	store   store
	metrics metrics.EventMetrics
	now     func() time.Time
}

func New(log *slog.Logger, store store, em metrics.EventMetrics) *Inspector {
	return &Inspector{
		log:     log,
		store:   store,
		metrics: em,
		now:     time.Now,
	}
}

// Inspect persists msg and acknowledges it whatever happens: a dead-letter
// topic has no further fallback, so a failed insert is only logged.
func (i *Inspector) Inspect(ctx context.Context, msg *sarama.ConsumerMessage, ack func()) error {
	const op = "consumers.deadletter.Inspect"

	defer ack()

	m := i.toRecord(msg)

	log := i.log.With(
		logger.Op(op),
		slog.String("dead_letter_topic", msg.Topic),
		slog.Int64("offset", msg.Offset),
		slog.String("event_id", models.Deref(m.EventID)),
		slog.String("failed_reason", models.Deref(m.FailedReason)),
	)

	if err := i.store.Insert(ctx, m); err != nil {
		i.metrics.RecordEvent(ctx, metrics.ComponentDeadLetter, "store_failed")
		log.Error("dead letter not stored", logger.Err(err))
		return nil
	}

	i.metrics.RecordEvent(ctx, metrics.ComponentDeadLetter, "stored")
	log.Warn("dead letter stored")

	return nil
}

func (i *Inspector) toRecord(msg *sarama.ConsumerMessage) *models.DeadLetterMessage {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		if h != nil {
			headers[string(h.Key)] = string(h.Value)
		}
	}

	m := &models.DeadLetterMessage{
		DeadLetterTopic: msg.Topic,
		Partition:       msg.Partition,
		Offset:          msg.Offset,
		Payload:         string(msg.Value),
		OriginalTopic:   models.NullableString(headers[policy.HeaderOriginalTopic]),
		FailedService:   models.NullableString(headers[policy.HeaderFailedService]),
		FailedGroup:     models.NullableString(headers[policy.HeaderFailedConsumerGroup]),
		FailedReason:    models.NullableString(headers[policy.HeaderFailedReason]),
		FailedAt:        models.NullableString(headers[policy.HeaderFailedAt]),
		ReceivedAt:      i.now().UTC(),
	}
	if len(msg.Key) > 0 {
		m.MessageKey = models.StringPtr(string(msg.Key))
	}

	if raw, err := json.Marshal(headers); err == nil {
		m.Headers = raw
	}

	// the payload may be the very reason the message was dead-lettered
	if event, err := consumer.ParseEnvelope(msg.Value); err == nil {
		m.EventID = models.NullableString(event.EventID)
		m.EventType = models.NullableString(event.EventType)
		m.AggregateID = models.NullableString(event.AggregateID)
		m.TraceID = models.NullableString(event.TraceID)
	}

	return m
}
