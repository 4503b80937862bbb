package paymentprocess

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
	internalErrors "github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/errors"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/logger"
)

func newRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	return New(logger.Discard(), sqlx.NewDb(mockDB, "postgres")), mock
}

func newProcess() *models.PaymentProcess {
	return &models.PaymentProcess{
		ReferenceID:      "DUMMY_mid_20240101000000ABCDEF123456",
		OrderID:          models.StringPtr("order-1"),
		UserID:           models.StringPtr("user-1"),
		Provider:         models.ProviderDummy,
		MerchantID:       "mid",
		Amount:           decimal.NewFromInt(1000),
		Status:           models.StatusUnknown,
		ActiveRequestKey: models.StringPtr(models.ActiveRequestKey("user-1", "order-1", models.ProviderDummy)),
	}
}

func newExternalProcess(tid string) *models.PaymentProcess {
	return &models.PaymentProcess{
		ReferenceID:     models.NewReferenceID(models.ProviderDummy, "mid"),
		Provider:        models.ProviderDummy,
		MerchantID:      "mid",
		Amount:          decimal.NewFromInt(1000),
		Status:          models.StatusSuccess,
		OriginSource:    models.StringPtr(models.ExternalOrigin(models.ProviderDummy)),
		PgTransactionID: models.StringPtr(tid),
	}
}

func TestInsert(t *testing.T) {
	repo, mock := newRepository(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payment_processes")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(42, now, now))

	p := newProcess()
	require.NoError(t, repo.Insert(context.Background(), p))
	require.Equal(t, int64(42), p.ID)
	require.Equal(t, now, p.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertUniqueViolation(t *testing.T) {
	tCases := []struct {
		name   string
		dbErr  error
		expErr error
	}{
		{
			name:   "on_conflict_no_row",
			dbErr:  sql.ErrNoRows,
			expErr: internalErrors.ErrProcessInProgress,
		},
		{
			name:   "active_key_taken",
			dbErr:  &pq.Error{Code: uniqueViolation, Constraint: ActiveRequestKeyConstraint},
			expErr: internalErrors.ErrProcessInProgress,
		},
		{
			name:  "other_unique_violation",
			dbErr: &pq.Error{Code: uniqueViolation, Constraint: "payment_processes_reference_id_key"},
		},
		{
			name:  "connection_lost",
			dbErr: errors.New("connection reset"),
		},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			repo, mock := newRepository(t)
			exp := mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payment_processes"))
			if errors.Is(tCase.dbErr, sql.ErrNoRows) {
				exp.WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}))
			} else {
				exp.WillReturnError(tCase.dbErr)
			}

			err := repo.Insert(context.Background(), newProcess())
			require.Error(t, err)
			if tCase.expErr != nil {
				require.ErrorIs(t, err, tCase.expErr)
			} else {
				require.NotErrorIs(t, err, internalErrors.ErrProcessInProgress)
			}
		})
	}
}

func TestInsertExternalDuplicate(t *testing.T) {
	tCases := []struct {
		name  string
		dbErr error
	}{
		{name: "on_conflict_no_row", dbErr: sql.ErrNoRows},
		{name: "pg_tx_taken", dbErr: &pq.Error{Code: uniqueViolation, Constraint: PgTransactionIndex}},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			repo, mock := newRepository(t)
			exp := mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (provider, pg_transaction_id)"))
			if errors.Is(tCase.dbErr, sql.ErrNoRows) {
				exp.WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}))
			} else {
				exp.WillReturnError(tCase.dbErr)
			}

			err := repo.Insert(context.Background(), newExternalProcess("TID-EXT-1"))
			require.ErrorIs(t, err, internalErrors.ErrTransactionRecorded)
			require.NotErrorIs(t, err, internalErrors.ErrProcessInProgress)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestFindNotFound(t *testing.T) {
	repo, mock := newRepository(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM payment_processes")).
		WithArgs(models.ProviderDummy, "tid-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByPgTransaction(context.Background(), models.ProviderDummy, "tid-1")
	require.ErrorIs(t, err, internalErrors.ErrProcessNotFound)
}

func TestFindByReferenceID(t *testing.T) {
	repo, mock := newRepository(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE reference_id = $1")).
		WithArgs("ref-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "reference_id", "provider", "amount", "status"}).
			AddRow(7, "ref-1", "DUMMY", "1000.50", "PENDING"))

	p, err := repo.FindByReferenceID(context.Background(), "ref-1")
	require.NoError(t, err)
	require.Equal(t, int64(7), p.ID)
	require.Equal(t, models.StatusPending, p.Status)
	require.True(t, decimal.RequireFromString("1000.50").Equal(p.Amount))
}

func TestCompareAndSwap(t *testing.T) {
	tCases := []struct {
		name      string
		status    models.ProcessStatus
		affected  int64
		expOK     bool
		expKeyNil bool
	}{
		{name: "success_releases_key", status: models.StatusSuccess, affected: 1, expOK: true, expKeyNil: true},
		{name: "pending_keeps_key", status: models.StatusPending, affected: 1, expOK: true},
		{name: "lost_race", status: models.StatusFailed, affected: 0},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			repo, mock := newRepository(t)

			p := newProcess()
			p.ID = 9
			p.Status = tCase.status

			mock.ExpectExec(regexp.QuoteMeta("UPDATE payment_processes SET")).
				WithArgs(
					tCase.status, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
					sqlmock.AnyArg(), tCase.status.IsTerminal(), int64(9), sqlmock.AnyArg(),
				).
				WillReturnResult(sqlmock.NewResult(0, tCase.affected))

			ok, err := repo.CompareAndSwap(context.Background(), p, models.AwaitingOutcome)
			require.NoError(t, err)
			require.Equal(t, tCase.expOK, ok)
			require.Equal(t, tCase.expKeyNil, p.ActiveRequestKey == nil)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
