package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/database"
	internalErrors "github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/errors"
	outboxRepo "github.com/tumbleweedd/two_services_system/cash_gateway/internal/repository/outbox"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/logger"
)

type captureInserter struct {
	rows []*models.OutboxEvent
	err  error
}

func (c *captureInserter) Insert(_ context.Context, e *models.OutboxEvent) error {
	if c.err != nil {
		return c.err
	}
	c.rows = append(c.rows, e)
	return nil
}

func approvedEvent() *models.PaymentApprovedEvent {
	return models.NewPaymentApprovedEvent(&models.PaymentProcess{
		ReferenceID:     "DUMMY_mid_ref",
		OrderID:         models.StringPtr("order-1"),
		UserID:          models.StringPtr("user-1"),
		Provider:        models.ProviderDummy,
		MerchantID:      "mid",
		Amount:          decimal.NewFromInt(15000),
		PgTransactionID: models.StringPtr("tid-1"),
		ApprovalCode:    models.StringPtr("A1"),
	}, "payment-events")
}

func newTxManager(t *testing.T, commit bool) database.TxManager {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}

	return database.NewTxManager(sqlx.NewDb(mockDB, "postgres"))
}

func TestRecordWritesBeforeCommit(t *testing.T) {
	inserter := &captureInserter{}
	recorder := NewRecorder(logger.Discard(), inserter)
	event := approvedEvent()

	err := newTxManager(t, true).WithTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, recorder.Record(ctx, event))
		require.Empty(t, inserter.rows)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, inserter.rows, 1)

	row := inserter.rows[0]
	require.Equal(t, event.EventID(), row.EventID)
	require.Equal(t, models.EventPaymentApproved, row.EventType)
	require.Equal(t, "order-1", row.AggregateID)
	require.Equal(t, "payment-events", row.Topic)
	require.NotNil(t, row.TraceID)

	var envelope models.Envelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	require.Equal(t, models.EventPaymentApproved, envelope.EventType)
	require.Equal(t, event.EventID(), envelope.Metadata.EventID)
	require.Equal(t, *row.TraceID, envelope.Metadata.TraceID)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	require.Equal(t, "tid-1", payload["pgTransaction"])
	require.NotContains(t, payload, "ID")
	require.NotContains(t, payload, "eventId")
}

func TestRecordInsertFailureRollsBack(t *testing.T) {
	insertErr := errors.New("duplicate event id")
	recorder := NewRecorder(logger.Discard(), &captureInserter{err: insertErr})

	err := newTxManager(t, false).WithTx(context.Background(), func(ctx context.Context) error {
		return recorder.Record(ctx, approvedEvent())
	})
	require.ErrorIs(t, err, insertErr)
}

func TestRecordDiscardedWhenBusinessWorkFails(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db := sqlx.NewDb(mockDB, "postgres")
	recorder := NewRecorder(logger.Discard(), outboxRepo.New(logger.Discard(), db))
	tm := database.NewTxManager(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payment_processes")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	failAfterWrite := errors.New("failure after business write")
	err = tm.WithTx(context.Background(), func(ctx context.Context) error {
		if _, err := database.GetTx(ctx, db).ExecContext(ctx,
			`UPDATE payment_processes SET status = 'SUCCESS' WHERE id = 1`); err != nil {
			return err
		}
		require.NoError(t, recorder.Record(ctx, approvedEvent()))

		return failAfterWrite
	})
	require.ErrorIs(t, err, failAfterWrite)

	// no outbox INSERT and no COMMIT reached the database
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordOutsideTransaction(t *testing.T) {
	recorder := NewRecorder(logger.Discard(), &captureInserter{})

	err := recorder.Record(context.Background(), approvedEvent())
	require.ErrorIs(t, err, internalErrors.ErrNoTransaction)
}
