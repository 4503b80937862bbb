package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/database"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/logger"
)

const uniqueViolation = "23505"

// ErrDuplicateEvent is returned when an event id is already in the outbox.
var ErrDuplicateEvent = errors.New("outbox event already recorded")

type Repository struct {
	db *sqlx.DB

	log *slog.Logger
}

func New(log *slog.Logger, db *sqlx.DB) *Repository {
	return &Repository{db: db, log: log}
}

// Insert writes e through the transaction in ctx.
func (or *Repository) Insert(ctx context.Context, e *models.OutboxEvent) error {
	const op = "repository.outbox.Insert"

	const outboxQuery = `INSERT INTO outbox_events
			(event_id, event_type, aggregate_id, aggregate_type, topic, payload, trace_id, span_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	row := database.GetTx(ctx, or.db).QueryRowxContext(ctx, outboxQuery,
		e.EventID, e.EventType, e.AggregateID, e.AggregateType, e.Topic, e.Payload, e.TraceID, e.SpanID, models.OutboxPending,
	)
	if err := row.Scan(&e.ID, &e.CreatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%s: %s: %w", op, e.EventID, ErrDuplicateEvent)
		}

		or.log.Error(op, logger.Err(err), slog.String("event_id", e.EventID))
		return fmt.Errorf("%s: outbox insert error: %w", op, err)
	}
	e.Status = models.OutboxPending

	return nil
}

// ClaimPending locks up to limit PENDING rows, oldest first. Rows locked by
// another relay instance are skipped.
func (or *Repository) ClaimPending(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	const op = "repository.outbox.ClaimPending"

	const outboxSelectQuery = `SELECT id, event_id, event_type, aggregate_id, aggregate_type, topic, payload,
			trace_id, span_id, status, retry_count, error_message, created_at, published_at
		FROM outbox_events
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT $2
		FOR UPDATE SKIP LOCKED`

	var events []models.OutboxEvent
	if err := sqlx.SelectContext(ctx, database.GetTx(ctx, or.db), &events, outboxSelectQuery, models.OutboxPending, limit); err != nil {
		or.log.Error(op, logger.Err(err))
		return nil, fmt.Errorf("%s: query outbox: %w", op, err)
	}

	return events, nil
}

// SaveAttempt persists the outcome of one publish attempt.
func (or *Repository) SaveAttempt(ctx context.Context, e *models.OutboxEvent) error {
	const op = "repository.outbox.SaveAttempt"

	const outboxUpdateQuery = `UPDATE outbox_events
		SET status = $1, retry_count = $2, error_message = $3, published_at = $4
		WHERE id = $5`

	if _, err := database.GetTx(ctx, or.db).ExecContext(ctx, outboxUpdateQuery,
		e.Status, e.RetryCount, e.ErrorMessage, e.PublishedAt, e.ID,
	); err != nil {
		or.log.Error(op, logger.Err(err), slog.String("event_id", e.EventID))
		return fmt.Errorf("%s: update outbox: %w", op, err)
	}

	return nil
}

// DeletePublishedBefore purges PUBLISHED rows older than before.
func (or *Repository) DeletePublishedBefore(ctx context.Context, before time.Time) (int64, error) {
	const op = "repository.outbox.DeletePublishedBefore"

	const query = `DELETE FROM outbox_events WHERE status = $1 AND published_at < $2`

	res, err := database.GetTx(ctx, or.db).ExecContext(ctx, query, models.OutboxPublished, before)
	if err != nil {
		or.log.Error(op, logger.Err(err))
		return 0, fmt.Errorf("%s: delete published: %w", op, err)
	}

	return res.RowsAffected()
}
