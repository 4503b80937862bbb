package paymentprocess

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/database"
	internalErrors "github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/errors"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/logger"
)

const (
	uniqueViolation = "23505"

	// ActiveRequestKeyConstraint guards single-flight per (user, order, provider).
	ActiveRequestKeyConstraint = "uq_payment_processes_active_request_key"

	// PgTransactionIndex makes a provider transaction id unique among non-cancel rows.
	PgTransactionIndex = "uq_payment_processes_pg_tx"
)

const selectColumns = `id, reference_id, order_id, user_id, order_number, provider, merchant_id, amount,
	status, origin_process_id, origin_source, pg_transaction_id, approval_code, code, message,
	active_request_key, request_payload, response_payload, trace_id, span_id, created_at, updated_at`

const insertStatement = `INSERT INTO payment_processes (
			reference_id, order_id, user_id, order_number, provider, merchant_id, amount, status,
			origin_process_id, origin_source, pg_transaction_id, approval_code, code, message,
			active_request_key, request_payload, response_payload, trace_id, span_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

const (
	insertActiveQuery = insertStatement + `
		ON CONFLICT ON CONSTRAINT ` + ActiveRequestKeyConstraint + ` DO NOTHING
		RETURNING id, created_at, updated_at`

	insertExternalQuery = insertStatement + `
		ON CONFLICT (provider, pg_transaction_id)
			WHERE origin_process_id IS NULL AND pg_transaction_id IS NOT NULL DO NOTHING
		RETURNING id, created_at, updated_at`
)

type Repository struct {
	log *slog.Logger
	db  *sqlx.DB
}

func New(log *slog.Logger, db *sqlx.DB) *Repository {
	return &Repository{log: log, db: db}
}

// Insert stores p and fills its id and timestamps. A collision on the active
// request key means another attempt for the same order is still in flight.
// External transactions carry no key and are unique per provider transaction
// id instead, so a repeated webhook reports ErrTransactionRecorded.
func (r *Repository) Insert(ctx context.Context, p *models.PaymentProcess) error {
	const op = "repository.paymentprocess.Insert"

	query, conflict := insertActiveQuery, internalErrors.ErrProcessInProgress
	if p.IsExternal() {
		query, conflict = insertExternalQuery, internalErrors.ErrTransactionRecorded
	}

	row := database.GetTx(ctx, r.db).QueryRowxContext(ctx, query,
		p.ReferenceID, p.OrderID, p.UserID, p.OrderNumber, p.Provider, p.MerchantID, p.Amount, p.Status,
		p.OriginProcessID, p.OriginSource, p.PgTransactionID, p.ApprovalCode, p.Code, p.Message,
		p.ActiveRequestKey, p.RequestPayload, p.ResponsePayload, p.TraceID, p.SpanID,
	)

	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		// DO NOTHING leaves the surrounding transaction usable
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", op, conflict)
		}

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			switch pqErr.Constraint {
			case ActiveRequestKeyConstraint:
				return fmt.Errorf("%s: %w", op, internalErrors.ErrProcessInProgress)
			case PgTransactionIndex:
				return fmt.Errorf("%s: %w", op, internalErrors.ErrTransactionRecorded)
			}
		}

		r.log.Error(op, logger.Err(err))
		return fmt.Errorf("%s: insert payment process: %w", op, err)
	}

	return nil
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*models.PaymentProcess, error) {
	const op = "repository.paymentprocess.FindByID"

	return r.getOne(ctx, op, `SELECT `+selectColumns+` FROM payment_processes WHERE id = $1`, id)
}

// FindActive returns the UNKNOWN/PENDING row holding activeKey.
func (r *Repository) FindActive(ctx context.Context, activeKey string) (*models.PaymentProcess, error) {
	const op = "repository.paymentprocess.FindActive"

	return r.getOne(ctx, op, `SELECT `+selectColumns+` FROM payment_processes
		WHERE active_request_key = $1 AND status = ANY($2)`,
		activeKey, statusArray(models.AwaitingOutcome),
	)
}

func (r *Repository) FindByPgTransaction(
	ctx context.Context,
	provider models.Provider,
	pgTransactionID string,
) (*models.PaymentProcess, error) {
	const op = "repository.paymentprocess.FindByPgTransaction"

	return r.getOne(ctx, op, `SELECT `+selectColumns+` FROM payment_processes
		WHERE provider = $1 AND pg_transaction_id = $2
		ORDER BY id DESC LIMIT 1`,
		provider, pgTransactionID,
	)
}

func (r *Repository) FindByReferenceID(ctx context.Context, referenceID string) (*models.PaymentProcess, error) {
	const op = "repository.paymentprocess.FindByReferenceID"

	return r.getOne(ctx, op, `SELECT `+selectColumns+` FROM payment_processes WHERE reference_id = $1`, referenceID)
}

// FindApprovedPayment returns the latest successful non-cancel row of an order.
func (r *Repository) FindApprovedPayment(
	ctx context.Context,
	orderID string,
	provider models.Provider,
) (*models.PaymentProcess, error) {
	const op = "repository.paymentprocess.FindApprovedPayment"

	return r.getOne(ctx, op, `SELECT `+selectColumns+` FROM payment_processes
		WHERE order_id = $1 AND provider = $2 AND status = $3 AND origin_process_id IS NULL
		ORDER BY id DESC LIMIT 1`,
		orderID, provider, models.StatusSuccess,
	)
}

// CompareAndSwap moves row p.ID to p.Status only while its stored status is one
// of expected, writing the provider-side fields of p. A terminal target
// releases the active request key. It reports whether a row was updated.
func (r *Repository) CompareAndSwap(
	ctx context.Context,
	p *models.PaymentProcess,
	expected []models.ProcessStatus,
) (bool, error) {
	const op = "repository.paymentprocess.CompareAndSwap"

	const query = `UPDATE payment_processes SET
			status = $1,
			pg_transaction_id = COALESCE($2, pg_transaction_id),
			approval_code = COALESCE($3, approval_code),
			code = $4,
			message = $5,
			response_payload = COALESCE($6, response_payload),
			active_request_key = CASE WHEN $7::boolean THEN NULL ELSE active_request_key END,
			updated_at = NOW()
		WHERE id = $8 AND status = ANY($9)`

	res, err := database.GetTx(ctx, r.db).ExecContext(ctx, query,
		p.Status, p.PgTransactionID, p.ApprovalCode, p.Code, p.Message, p.ResponsePayload,
		p.Status.IsTerminal(), p.ID, statusArray(expected),
	)
	if err != nil {
		r.log.Error(op, logger.Err(err), slog.Int64("id", p.ID))
		return false, fmt.Errorf("%s: update status: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: rows affected: %w", op, err)
	}

	if affected > 0 && p.Status.IsTerminal() {
		p.ActiveRequestKey = nil
	}

	return affected > 0, nil
}

func (r *Repository) getOne(ctx context.Context, op, query string, args ...any) (*models.PaymentProcess, error) {
	var p models.PaymentProcess

	if err := sqlx.GetContext(ctx, database.GetTx(ctx, r.db), &p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, internalErrors.ErrProcessNotFound)
		}

		r.log.Error(op, logger.Err(err))
		return nil, fmt.Errorf("%s: select payment process: %w", op, err)
	}

	return &p, nil
}

func statusArray(statuses []models.ProcessStatus) any {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}

	return pq.Array(values)
}
