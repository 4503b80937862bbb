package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

// MessageHandler processes one record. ack marks it consumed; a record left
// unacknowledged is delivered again after the session restarts.
type MessageHandler func(ctx context.Context, msg *sarama.ConsumerMessage, ack func()) error

const rejoinDelay = time.Second

type Group struct {
	log     *slog.Logger
	group   sarama.ConsumerGroup
	topics  []string
	handler MessageHandler
}

func NewGroup(
	log *slog.Logger,
	brokers []string,
	groupID string,
	topics []string,
	handler MessageHandler,
) (*Group, error) {
	const op = "brokers.kafka.consumer.NewGroup"

	group, err := sarama.NewConsumerGroup(brokers, groupID, Config(groupID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewGroupFromConsumer(log, group, topics, handler), nil
}

func NewGroupFromConsumer(
	log *slog.Logger,
	group sarama.ConsumerGroup,
	topics []string,
	handler MessageHandler,
) *Group {
	return &Group{
		log:     log,
		group:   group,
		topics:  topics,
		handler: handler,
	}
}

func Config(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Version = sarama.V2_8_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Offsets.AutoCommit.Enable = true
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategySticky()}
	cfg.Consumer.Return.Errors = true

	return cfg
}

// Run consumes until ctx is done. Each session ends on a rebalance or a
// handler error and is started again.
func (g *Group) Run(ctx context.Context) error {
	const op = "brokers.kafka.consumer.Run"

	go func() {
		for err := range g.group.Errors() {
			g.log.Error("consumer group error", slog.String("op", op), slog.String("error", err.Error()))
		}
	}()

	handler := &groupHandler{log: g.log, handler: g.handler}

	for {
		err := g.group.Consume(ctx, g.topics, handler)
		if errors.Is(err, sarama.ErrClosedConsumerGroup) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			g.log.Error("consumer session ended", slog.String("op", op), slog.String("error", err.Error()))

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(rejoinDelay):
			}
		}
	}
}

func (g *Group) Close() error {
	return g.group.Close()
}

type groupHandler struct {
	log     *slog.Logger
	handler MessageHandler
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	const op = "brokers.kafka.consumer.ConsumeClaim"

	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			ack := func() { session.MarkMessage(msg, "") }

			if err := h.handler(session.Context(), msg, ack); err != nil {
				h.log.Error("message left unacknowledged",
					slog.String("op", op),
					slog.String("topic", msg.Topic),
					slog.Int("partition", int(msg.Partition)),
					slog.Int64("offset", msg.Offset),
					slog.String("error", err.Error()),
				)
				return fmt.Errorf("%s: %w", op, err)
			}
		case <-session.Context().Done():
			return nil
		}
	}
}
