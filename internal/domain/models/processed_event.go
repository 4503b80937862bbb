package models

import "time"

type ProcessedEvent struct {
	ID          int64     `db:"id"`
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ConsumedBy  string    `db:"consumed_by"`
	ProcessedAt time.Time `db:"processed_at"`
}
