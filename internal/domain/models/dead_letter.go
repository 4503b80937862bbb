package models

import "time"

// DeadLetterMessage is a dead-lettered record kept for manual inspection.
type DeadLetterMessage struct {
	ID              int64     `db:"id"`
	DeadLetterTopic string    `db:"dead_letter_topic"`
	OriginalTopic   *string   `db:"original_topic"`
	Partition       int32     `db:"kafka_partition"`
	Offset          int64     `db:"kafka_offset"`
	MessageKey      *string   `db:"message_key"`
	Payload         string    `db:"payload"`
	Headers         []byte    `db:"headers"`
	EventID         *string   `db:"event_id"`
	EventType       *string   `db:"event_type"`
	AggregateID     *string   `db:"aggregate_id"`
	TraceID         *string   `db:"trace_id"`
	FailedService   *string   `db:"failed_service"`
	FailedGroup     *string   `db:"failed_consumer_group"`
	FailedReason    *string   `db:"failed_reason"`
	FailedAt        *string   `db:"failed_at"`
	ReceivedAt      time.Time `db:"received_at"`
}
