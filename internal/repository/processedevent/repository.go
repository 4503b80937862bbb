package processedevent

import (
	"context"
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

const uniqueViolation = "23505"

type Repository struct {
	log *slog.Logger
	db  *sqlx.DB
}

func New(log *slog.Logger, db *sqlx.DB) *Repository {
	return &Repository{log: log, db: db}
}

func (r *Repository) Exists(ctx context.Context, eventID string) (bool, error) {
	const op = "repository.processedevent.Exists"

	const query = `SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)`

	var exists bool
	if err := sqlx.GetContext(ctx, database.GetTx(ctx, r.db), &exists, query, eventID); err != nil {
		r.log.Error(op, logger.Err(err), slog.String("event_id", eventID))
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

// Insert records e as handled. A concurrent delivery that got there first
// surfaces as ErrEventAlreadyProcessed.
func (r *Repository) Insert(ctx context.Context, e *models.ProcessedEvent) error {
	const op = "repository.processedevent.Insert"

	const query = `INSERT INTO processed_events (event_id, event_type, consumed_by) VALUES ($1, $2, $3)`

	if _, err := database.GetTx(ctx, r.db).ExecContext(ctx, query, e.EventID, e.EventType, e.ConsumedBy); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%s: %s: %w", op, e.EventID, internalErrors.ErrEventAlreadyProcessed)
		}

		r.log.Error(op, logger.Err(err), slog.String("event_id", e.EventID))
		return fmt.Errorf("%s: insert processed event: %w", op, err)
	}

	return nil
}
