package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a business fact recorded to the outbox in the transaction that produced it.
type DomainEvent interface {
	EventID() string
	EventType() string
	AggregateID() string
	AggregateType() string
	Topic() string
	TraceID() string
	SpanID() string
	OccurredAt() time.Time
}

// BaseEvent carries the envelope metadata. Its fields never reach the
// serialized payload.
type BaseEvent struct {
	ID         string    `json:"-"`
	Aggregate  string    `json:"-"`
	Kind       string    `json:"-"`
	Channel    string    `json:"-"`
	Trace      string    `json:"-"`
	Span       string    `json:"-"`
	OccurredOn time.Time `json:"-"`
}

func NewBaseEvent(aggregateID, aggregateType, topic string) BaseEvent {
	return BaseEvent{
		ID:         uuid.NewString(),
		Aggregate:  aggregateID,
		Kind:       aggregateType,
		Channel:    topic,
		OccurredOn: time.Now().UTC(),
	}
}

func (b BaseEvent) EventID() string       { return b.ID }
func (b BaseEvent) AggregateID() string   { return b.Aggregate }
func (b BaseEvent) AggregateType() string { return b.Kind }
func (b BaseEvent) Topic() string         { return b.Channel }
func (b BaseEvent) TraceID() string       { return b.Trace }
func (b BaseEvent) SpanID() string        { return b.Span }
func (b BaseEvent) OccurredAt() time.Time { return b.OccurredOn }

// Envelope is the wire shape of every event on every topic.
type Envelope struct {
	EventType   string          `json:"eventType" validate:"required"`
	AggregateID string          `json:"aggregateId" validate:"required"`
	Payload     json.RawMessage `json:"payload" validate:"required"`
	Metadata    EventMetadata   `json:"metadata"`
}

type EventMetadata struct {
	EventID    string     `json:"eventId,omitempty"`
	TraceID    string     `json:"traceId,omitempty"`
	SpanID     string     `json:"spanId,omitempty"`
	OccurredAt *time.Time `json:"occurredAt,omitempty"`
}

// ParsedEvent is an inbound envelope after validation.
type ParsedEvent struct {
	EventType   string
	AggregateID string
	EventID     string
	TraceID     string
	SpanID      string
	OccurredAt  *time.Time
	Payload     json.RawMessage
}

func (e ParsedEvent) HasEventID() bool {
	return e.EventID != ""
}
