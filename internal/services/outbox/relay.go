package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/config"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/database"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/tracing"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/metrics"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/logger"
)

const (
	HeaderEventID   = "event-id"
	HeaderEventType = "event-type"

	relaySpanName = "outbox-relay"
)

type outboxStore interface {
	ClaimPending(ctx context.Context, limit int) ([]models.OutboxEvent, error)
	SaveAttempt(ctx context.Context, e *models.OutboxEvent) error
	DeletePublishedBefore(ctx context.Context, before time.Time) (int64, error)
}

// Relay publishes PENDING outbox rows and purges old PUBLISHED ones.
type Relay struct {
	log      *slog.Logger
	tm       database.TxManager
	store    outboxStore
	producer sarama.SyncProducer
	metrics  metrics.EventMetrics

	cfg config.OutboxConfig
	now func() time.Time
}

func NewRelay(
	log *slog.Logger,
	tm database.TxManager,
	store outboxStore,
	producer sarama.SyncProducer,
	em metrics.EventMetrics,
	cfg config.OutboxConfig,
) *Relay {
	return &Relay{
		log:      log,
		tm:       tm,
		store:    store,
		producer: producer,
		metrics:  em,
		cfg:      cfg,
		now:      time.Now,
	}
}

// RelayOnce claims one batch and publishes it row by row, waiting for the
// broker acknowledgement each time. All status updates of the batch commit
// together before RelayOnce returns.
func (r *Relay) RelayOnce(ctx context.Context) (published int, err error) {
	const op = "services.outbox.Relay.RelayOnce"

	err = r.tm.WithTx(ctx, func(ctx context.Context) error {
		events, err := r.store.ClaimPending(ctx, r.cfg.BatchSize)
		if err != nil {
			return err
		}

		if len(events) == 0 {
			return nil
		}

		r.log.Debug(op, slog.Int("claimed", len(events)))

		for i := range events {
			if r.publish(ctx, &events[i]) {
				published++
			}

			if err = r.store.SaveAttempt(ctx, &events[i]); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		r.log.Error(op, logger.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return published, nil
}

func (r *Relay) publish(ctx context.Context, e *models.OutboxEvent) bool {
	const op = "services.outbox.Relay.publish"

	ctx = tracing.Restore(ctx, models.Deref(e.TraceID), models.Deref(e.SpanID))
	ctx, span := tracing.Start(ctx, relaySpanName)
	defer span.End()

	log := r.log.With(
		logger.Op(op),
		slog.String("event_id", e.EventID),
		slog.String("event_type", e.EventType),
		slog.String("topic", e.Topic),
	)

	carrier := propagation.MapCarrier{}
	propagation.TraceContext{}.Inject(ctx, carrier)

	headers := []sarama.RecordHeader{
		{Key: []byte(HeaderEventID), Value: []byte(e.EventID)},
		{Key: []byte(HeaderEventType), Value: []byte(e.EventType)},
	}
	for k, v := range carrier {
		headers = append(headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}

	partition, offset, err := r.producer.SendMessage(&sarama.ProducerMessage{
		Topic:   e.Topic,
		Key:     sarama.StringEncoder(e.AggregateID),
		Value:   sarama.ByteEncoder(e.Payload),
		Headers: headers,
	})
	if err != nil {
		e.MarkFailedAttempt(err.Error(), r.cfg.MaxRetries)

		if e.Status == models.OutboxFailed {
			log.Error("outbox event failed permanently",
				logger.Err(err),
				slog.Int("retry_count", e.RetryCount),
			)
			r.metrics.RecordEvent(ctx, metrics.ComponentRelay, "failed")
		} else {
			log.Warn("outbox event publish failed, will retry",
				logger.Err(err),
				slog.Int("retry_count", e.RetryCount),
				slog.Int("max_retries", r.cfg.MaxRetries),
			)
			r.metrics.RecordEvent(ctx, metrics.ComponentRelay, "retry")
		}

		return false
	}

	e.MarkPublished(r.now())
	log.Info("outbox event published", slog.Int("partition", int(partition)), slog.Int64("offset", offset))
	r.metrics.RecordEvent(ctx, metrics.ComponentRelay, "published")

	return true
}

// Purge deletes PUBLISHED rows older than the retention window.
func (r *Relay) Purge(ctx context.Context) (int64, error) {
	const op = "services.outbox.Relay.Purge"

	deleted, err := r.store.DeletePublishedBefore(ctx, r.now().Add(-r.cfg.Retention))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if deleted > 0 {
		r.log.Info("published outbox events purged", slog.Int64("deleted", deleted))
	}

	return deleted, nil
}

// Run relays on a fixed delay and purges on its own schedule until ctx is
// done. The next relay tick is armed only after the previous one returned.
func (r *Relay) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		timer := time.NewTimer(r.cfg.Interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-timer.C:
				_, _ = r.RelayOnce(ctx)
				timer.Reset(r.cfg.Interval)
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(r.cfg.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if _, err := r.Purge(ctx); err != nil {
					r.log.Error("outbox purge failed", logger.Err(err))
				}
			}
		}
	})

	return g.Wait()
}
