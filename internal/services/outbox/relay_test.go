package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/config"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/metrics"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/logger"
)

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeStore struct {
	mu       sync.Mutex
	pending  []models.OutboxEvent
	saved    []models.OutboxEvent
	claims   int
	purgedAt time.Time
}

func (s *fakeStore) ClaimPending(_ context.Context, limit int) ([]models.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.claims++
	if len(s.pending) > limit {
		return append([]models.OutboxEvent(nil), s.pending[:limit]...), nil
	}
	return append([]models.OutboxEvent(nil), s.pending...), nil
}

func (s *fakeStore) SaveAttempt(_ context.Context, e *models.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saved = append(s.saved, *e)
	return nil
}

func (s *fakeStore) DeletePublishedBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgedAt = before
	return 3, nil
}

func testConfig() config.OutboxConfig {
	return config.OutboxConfig{
		Interval:        10 * time.Millisecond,
		BatchSize:       100,
		MaxRetries:      3,
		Retention:       720 * time.Hour,
		CleanupInterval: 10 * time.Millisecond,
	}
}

func pendingEvent(id string, retries int) models.OutboxEvent {
	return models.OutboxEvent{
		ID:          1,
		EventID:     id,
		EventType:   models.EventPaymentApproved,
		AggregateID: "order-1",
		Topic:       "payment-events",
		Payload:     []byte(`{"eventType":"PaymentApprovedEvent"}`),
		TraceID:     models.StringPtr("4bf92f3577b34da6a3ce929d0e0e4736"),
		SpanID:      models.StringPtr("00f067aa0ba902b7"),
		Status:      models.OutboxPending,
		RetryCount:  retries,
	}
}

func headerValue(msg *sarama.ProducerMessage, key string) string {
	for _, h := range msg.Headers {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestRelayOnce(t *testing.T) {
	tCases := []struct {
		name         string
		retries      int
		sendErr      error
		expStatus    models.OutboxStatus
		expRetries   int
		expPublished int
	}{
		{name: "published", expStatus: models.OutboxPublished, expPublished: 1},
		{name: "first_failure_stays_pending", sendErr: sarama.ErrOutOfBrokers, expStatus: models.OutboxPending, expRetries: 1},
		{name: "last_failure_marks_failed", retries: 2, sendErr: sarama.ErrOutOfBrokers, expStatus: models.OutboxFailed, expRetries: 3},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			producer := mocks.NewSyncProducer(t, nil)
			defer func() { require.NoError(t, producer.Close()) }()

			if tCase.sendErr != nil {
				producer.ExpectSendMessageAndFail(tCase.sendErr)
			} else {
				producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
					key, _ := msg.Key.Encode()
					if string(key) != "order-1" {
						return errors.New("message not keyed by aggregate id")
					}
					if headerValue(msg, HeaderEventID) != "ev-1" {
						return errors.New("event-id header missing")
					}
					if headerValue(msg, "traceparent") != "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01" {
						return errors.New("stored trace not restored")
					}
					return nil
				})
			}

			store := &fakeStore{pending: []models.OutboxEvent{pendingEvent("ev-1", tCase.retries)}}
			relay := NewRelay(logger.Discard(), passthroughTx{}, store, producer, metrics.NoOp{}, testConfig())

			published, err := relay.RelayOnce(context.Background())
			require.NoError(t, err)
			require.Equal(t, tCase.expPublished, published)

			require.Len(t, store.saved, 1)
			require.Equal(t, tCase.expStatus, store.saved[0].Status)
			require.Equal(t, tCase.expRetries, store.saved[0].RetryCount)
			if tCase.expStatus == models.OutboxPublished {
				require.NotNil(t, store.saved[0].PublishedAt)
			} else {
				require.NotNil(t, store.saved[0].ErrorMessage)
			}
		})
	}
}

func TestRelayOnceKeepsOrder(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer func() { require.NoError(t, producer.Close()) }()

	producer.ExpectSendMessageAndSucceed()
	producer.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)
	producer.ExpectSendMessageAndSucceed()

	store := &fakeStore{pending: []models.OutboxEvent{
		pendingEvent("ev-1", 0),
		pendingEvent("ev-2", 0),
		pendingEvent("ev-3", 0),
	}}
	relay := NewRelay(logger.Discard(), passthroughTx{}, store, producer, metrics.NoOp{}, testConfig())

	published, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, published)

	require.Equal(t, "ev-1", store.saved[0].EventID)
	require.Equal(t, models.OutboxPublished, store.saved[0].Status)
	require.Equal(t, models.OutboxPending, store.saved[1].Status)
	require.Equal(t, models.OutboxPublished, store.saved[2].Status)
}

func TestPurge(t *testing.T) {
	store := &fakeStore{}
	relay := NewRelay(logger.Discard(), passthroughTx{}, store, nil, metrics.NoOp{}, testConfig())

	now := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	relay.now = func() time.Time { return now }

	deleted, err := relay.Purge(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), deleted)
	require.Equal(t, now.Add(-720*time.Hour), store.purgedAt)
}

func TestRunStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	producer := mocks.NewSyncProducer(t, nil)
	store := &fakeStore{}
	relay := NewRelay(logger.Discard(), passthroughTx{}, store, producer, metrics.NoOp{}, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.claims >= 2 && !store.purgedAt.IsZero()
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, producer.Close())
}
