// Package database carries a unit of work through context.Context.
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	internalErrors "github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/errors"
)

type txKey struct{}

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type Querier interface {
	sqlx.ExtContext
}

type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txState struct {
	tx           *sqlx.Tx
	beforeCommit []func(ctx context.Context) error
}

type sqlxTxManager struct {
	db *sqlx.DB
}

func NewTxManager(db *sqlx.DB) TxManager {
	return &sqlxTxManager{db: db}
}

// WithTx runs fn inside a transaction. A call made while a transaction is
// already in ctx joins it and leaves commit to the outermost call.
// Before-commit hooks run after fn and before COMMIT; a hook error rolls
// everything back.
func (m *sqlxTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	const op = "database.TxManager.WithTx"

	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}

	state := &txState{tx: tx}
	txCtx := context.WithValue(ctx, txKey{}, state)

	defer func() {
		if err != nil {
			if rollBackErr := tx.Rollback(); rollBackErr != nil {
				err = errors.Join(err, fmt.Errorf("%s: rollback transaction: %w", op, rollBackErr))
			}
		}
	}()

	if err = fn(txCtx); err != nil {
		return err
	}

	// hooks may register further hooks
	for i := 0; i < len(state.beforeCommit); i++ {
		if err = state.beforeCommit[i](txCtx); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit transaction: %w", op, err)
	}

	return nil
}

// BeforeCommit registers hook to run just before the transaction in ctx commits.
func BeforeCommit(ctx context.Context, hook func(ctx context.Context) error) error {
	state, ok := ctx.Value(txKey{}).(*txState)
	if !ok {
		return internalErrors.ErrNoTransaction
	}

	state.beforeCommit = append(state.beforeCommit, hook)

	return nil
}

// GetTx returns the transaction in ctx, or db when there is none.
func GetTx(ctx context.Context, db *sqlx.DB) Querier {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		return state.tx
	}

	return db
}
