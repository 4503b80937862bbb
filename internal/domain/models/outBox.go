package models

import "time"

type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "PENDING"
	OutboxPublished OutboxStatus = "PUBLISHED"
	OutboxFailed    OutboxStatus = "FAILED"
)

type OutboxEvent struct {
	ID            int64        `db:"id"`
	EventID       string       `db:"event_id"`
	EventType     string       `db:"event_type"`
	AggregateID   string       `db:"aggregate_id"`
	AggregateType string       `db:"aggregate_type"`
	Topic         string       `db:"topic"`
	Payload       []byte       `db:"payload"`
	TraceID       *string      `db:"trace_id"`
	SpanID        *string      `db:"span_id"`
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	ErrorMessage  *string      `db:"error_message"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

func (e *OutboxEvent) MarkPublished(at time.Time) {
	e.Status = OutboxPublished
	e.PublishedAt = &at
	e.ErrorMessage = nil
}

// MarkFailedAttempt counts a failed publish; the row turns FAILED once
// maxRetries attempts have failed.
func (e *OutboxEvent) MarkFailedAttempt(reason string, maxRetries int) {
	e.RetryCount++
	e.ErrorMessage = &reason
	if e.RetryCount >= maxRetries {
		e.Status = OutboxFailed
	}
}
