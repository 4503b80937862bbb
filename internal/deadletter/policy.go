// Package deadletter retries failed message handling with exponential
// backoff and routes what cannot be handled to the topic's -dlt channel.
package deadletter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/config"
	internalErrors "github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/errors"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/metrics"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/logger"
)

const (
	HeaderFailedService       = "x-failed-service"
	HeaderFailedConsumerGroup = "x-failed-consumer-group"
	HeaderFailedAt            = "x-failed-at"
	HeaderFailedReason        = "x-failed-reason"
	HeaderOriginalTopic       = "x-original-topic"
	HeaderOriginalPartition   = "x-original-partition"
	HeaderOriginalOffset      = "x-original-offset"

	maxReasonLength = 1024
)

type Policy struct {
	log      *slog.Logger
	producer sarama.SyncProducer
	metrics  metrics.EventMetrics

	service    string
	group      string
	newBackOff func() backoff.BackOff
	now        func() time.Time
}

type Option func(*Policy)

// WithBackOff replaces the retry schedule.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(p *Policy) {
		p.newBackOff = newBackOff
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Policy) {
		p.now = now
	}
}

func New(
	log *slog.Logger,
	producer sarama.SyncProducer,
	em metrics.EventMetrics,
	service, group string,
	cfg config.RetryConfig,
	opts ...Option,
) *Policy {
	p := &Policy{
		log:      log,
		producer: producer,
		metrics:  em,
		service:  service,
		group:    group,
		now:      time.Now,
	}

	p.newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(ExponentialBackOff(cfg), cfg.MaxRetries)
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ExponentialBackOff builds the deterministic schedule: InitialInterval,
// multiplied each retry, capped at MaxInterval, without jitter.
func ExponentialBackOff(cfg config.RetryConfig) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.Multiplier = cfg.Multiplier
	b.MaxInterval = cfg.MaxInterval
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	return b
}

// Handle runs consume until it succeeds, a non-retryable error occurs or the
// retries are exhausted. In the last two cases the message is published to
// the dead-letter topic and acknowledged. An error is returned only when the
// message could not be parked, so it stays unacknowledged.
func (p *Policy) Handle(
	ctx context.Context,
	msg *sarama.ConsumerMessage,
	ack func(),
	consume func(ctx context.Context, ack func()) error,
) error {
	const op = "deadletter.Policy.Handle"

	attempts := 0
	err := backoff.RetryNotify(
		func() error {
			attempts++
			err := consume(ctx, ack)
			if err != nil && !Retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(p.newBackOff(), ctx),
		func(err error, next time.Duration) {
			p.log.Warn("message handling failed, retrying",
				logger.Op(op),
				slog.String("topic", msg.Topic),
				slog.Int("partition", int(msg.Partition)),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempts),
				slog.Duration("next", next),
				logger.Err(err),
			)
		},
	)
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}

	if dltErr := p.publish(msg, err); dltErr != nil {
		p.metrics.RecordEvent(ctx, metrics.ComponentDeadLetter, "publish_failed")
		p.log.Error("dead-letter publish failed", logger.Op(op), slog.String("topic", msg.Topic), logger.Err(dltErr))
		return fmt.Errorf("%s: %w", op, errors.Join(err, dltErr))
	}

	ack()
	p.metrics.RecordEvent(ctx, metrics.ComponentDeadLetter, "routed")
	p.log.Error("message dead-lettered",
		logger.Op(op),
		slog.String("topic", msg.Topic),
		slog.String("dead_letter_topic", config.DeadLetterTopic(msg.Topic)),
		slog.Int64("offset", msg.Offset),
		slog.Int("attempts", attempts),
		logger.Err(err),
	)

	return nil
}

func (p *Policy) publish(msg *sarama.ConsumerMessage, cause error) error {
	headers := make([]sarama.RecordHeader, 0, len(msg.Headers)+7)
	for _, h := range msg.Headers {
		if h != nil {
			headers = append(headers, *h)
		}
	}

	reason := cause.Error()
	if len(reason) > maxReasonLength {
		reason = reason[:maxReasonLength]
	}

	headers = append(headers,
		header(HeaderFailedService, p.service),
		header(HeaderFailedConsumerGroup, p.group),
		header(HeaderFailedAt, p.now().UTC().Format(time.RFC3339Nano)),
		header(HeaderFailedReason, reason),
		header(HeaderOriginalTopic, msg.Topic),
		header(HeaderOriginalPartition, strconv.Itoa(int(msg.Partition))),
		header(HeaderOriginalOffset, strconv.FormatInt(msg.Offset, 10)),
	)

	out := &sarama.ProducerMessage{
		Topic:   config.DeadLetterTopic(msg.Topic),
		Value:   sarama.ByteEncoder(msg.Value),
		Headers: headers,
	}
	if msg.Key != nil {
		out.Key = sarama.ByteEncoder(msg.Key)
	}

	if _, _, err := p.producer.SendMessage(out); err != nil {
		return err
	}

	return nil
}

// Retryable reports whether another attempt could change the outcome.
// Malformed input never can.
func Retryable(err error) bool {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)

	switch {
	case errors.Is(err, internalErrors.ErrInvalidEnvelope),
		errors.Is(err, internalErrors.ErrInvalidArgument),
		errors.As(err, &syntaxErr),
		errors.As(err, &typeErr):
		return false
	}

	return true
}

func header(key, value string) sarama.RecordHeader {
	return sarama.RecordHeader{Key: []byte(key), Value: []byte(value)}
}
