package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	internalErrors "github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/errors"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	return sqlx.NewDb(mockDB, "postgres"), mock
}

func TestWithTxCommit(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
		require.IsType(t, &sqlx.Tx{}, GetTx(ctx, db))
		return nil
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollbackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	fnErr := errors.New("boom")
	err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
		return fnErr
	})

	require.ErrorIs(t, err, fnErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxBeforeCommitHooks(t *testing.T) {
	tCases := []struct {
		name    string
		hookErr error
	}{
		{name: "hook_ok"},
		{name: "hook_fails", hookErr: errors.New("outbox insert failed")},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			mock.ExpectBegin()
			if tCase.hookErr != nil {
				mock.ExpectRollback()
			} else {
				mock.ExpectCommit()
			}

			var called int
			err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
				return BeforeCommit(ctx, func(ctx context.Context) error {
					called++
					return tCase.hookErr
				})
			})

			require.Equal(t, 1, called)
			if tCase.hookErr != nil {
				require.ErrorIs(t, err, tCase.hookErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestWithTxNestedJoinsOuter(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	tm := NewTxManager(db)
	err := tm.WithTx(context.Background(), func(ctx context.Context) error {
		outer := GetTx(ctx, db)
		return tm.WithTx(ctx, func(ctx context.Context) error {
			require.Same(t, outer, GetTx(ctx, db))
			return nil
		})
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBeforeCommitOutsideTx(t *testing.T) {
	err := BeforeCommit(context.Background(), func(context.Context) error { return nil })
	require.ErrorIs(t, err, internalErrors.ErrNoTransaction)

	db, _ := newMockDB(t)
	require.Equal(t, Querier(db), GetTx(context.Background(), db))
}
