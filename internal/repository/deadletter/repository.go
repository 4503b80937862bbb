package deadletter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/logger"
)

type Repository struct {
	log *slog.Logger
	db  *sqlx.DB
}

func New(log *slog.Logger, db *sqlx.DB) *Repository {
	return &Repository{log: log, db: db}
}

func (r *Repository) Insert(ctx context.Context, m *models.DeadLetterMessage) error {
	const op = "repository.deadletter.Insert"

	const query = `INSERT INTO dead_letter_messages (
			dead_letter_topic, original_topic, kafka_partition, kafka_offset, message_key, payload, headers,
			event_id, event_type, aggregate_id, trace_id,
			failed_service, failed_consumer_group, failed_reason, failed_at)
		VALUES (:dead_letter_topic, :original_topic, :kafka_partition, :kafka_offset, :message_key, :payload, :headers,
			:event_id, :event_type, :aggregate_id, :trace_id,
			:failed_service, :failed_consumer_group, :failed_reason, :failed_at)
		ON CONFLICT (dead_letter_topic, kafka_partition, kafka_offset) DO NOTHING`

	if _, err := sqlx.NamedExecContext(ctx, r.db, query, m); err != nil {
		r.log.Error(op, logger.Err(err), slog.String("topic", m.DeadLetterTopic))
		return fmt.Errorf("%s: insert dead letter: %w", op, err)
	}

	return nil
}
