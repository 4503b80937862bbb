package deadletter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/require"

	policy "github.com/tumbleweedd/two_services_system/cash_gateway/internal/deadletter"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/metrics"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/logger"
)

type storeFunc func(ctx context.Context, m *models.DeadLetterMessage) error

func (f storeFunc) Insert(ctx context.Context, m *models.DeadLetterMessage) error {
	return f(ctx, m)
}

func dltMessage(value string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{
		Topic:     "order-events-dlt",
		Partition: 0,
		Offset:    12,
		Key:       []byte("order-1"),
		Value:     []byte(value),
		Headers: []*sarama.RecordHeader{
			{Key: []byte(policy.HeaderFailedService), Value: []byte("cash-gateway-service")},
			{Key: []byte(policy.HeaderFailedConsumerGroup), Value: []byte("cash-gateway-service")},
			{Key: []byte(policy.HeaderFailedReason), Value: []byte("invalid event envelope")},
			{Key: []byte(policy.HeaderFailedAt), Value: []byte("2026-02-19T10:00:00Z")},
			{Key: []byte(policy.HeaderOriginalTopic), Value: []byte("order-events")},
		},
	}
}

func TestInspect(t *testing.T) {
	tCases := []struct {
		name     string
		value    string
		storeErr error
		check    func(t *testing.T, m *models.DeadLetterMessage)
	}{
		{
			name:  "envelope_metadata_extracted",
			value: `{"eventType":"OrderStockReservedEvent","aggregateId":"order-1","payload":{},"metadata":{"eventId":"e-1","traceId":"t-1"}}`,
			check: func(t *testing.T, m *models.DeadLetterMessage) {
				require.Equal(t, "e-1", *m.EventID)
				require.Equal(t, "OrderStockReservedEvent", *m.EventType)
				require.Equal(t, "order-1", *m.AggregateID)
				require.Equal(t, "t-1", *m.TraceID)
			},
		},
		{
			name:  "unparseable_payload_kept",
			value: `not json`,
			check: func(t *testing.T, m *models.DeadLetterMessage) {
				require.Nil(t, m.EventID)
				require.Equal(t, "not json", m.Payload)
			},
		},
		{
			name:     "store_failure_still_acked",
			value:    `{}`,
			storeErr: errors.New("db down"),
			check:    func(*testing.T, *models.DeadLetterMessage) {},
		},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			var stored *models.DeadLetterMessage
			inspector := New(logger.Discard(), storeFunc(func(_ context.Context, m *models.DeadLetterMessage) error {
				stored = m
				return tCase.storeErr
			}), metrics.NoOp{})

			acks := 0
			require.NoError(t, inspector.Inspect(context.Background(), dltMessage(tCase.value), func() { acks++ }))
			require.Equal(t, 1, acks)

			require.Equal(t, "order-events-dlt", stored.DeadLetterTopic)
			require.Equal(t, int64(12), stored.Offset)
			require.Equal(t, "order-1", *stored.MessageKey)
			require.Equal(t, "order-events", *stored.OriginalTopic)
			require.Equal(t, "cash-gateway-service", *stored.FailedService)
			require.Equal(t, "invalid event envelope", *stored.FailedReason)

			var headers map[string]string
			require.NoError(t, json.Unmarshal(stored.Headers, &headers))
			require.Equal(t, "2026-02-19T10:00:00Z", headers[policy.HeaderFailedAt])

			tCase.check(t, stored)
		})
	}
}
