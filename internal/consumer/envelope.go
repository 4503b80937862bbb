package consumer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
	internalErrors "github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/errors"
)

var validate = validator.New()

// ParseEnvelope decodes and validates the common event envelope. Every
// failure wraps ErrInvalidEnvelope.
func ParseEnvelope(raw []byte) (*models.ParsedEvent, error) {
	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", internalErrors.ErrInvalidEnvelope, err)
	}

	if err := validate.Struct(env); err != nil {
		return nil, fmt.Errorf("%w: %w", internalErrors.ErrInvalidEnvelope, err)
	}

	if payload := bytes.TrimSpace(env.Payload); len(payload) == 0 || payload[0] != '{' {
		return nil, fmt.Errorf("%w: payload must be a JSON object", internalErrors.ErrInvalidEnvelope)
	}

	return &models.ParsedEvent{
		EventType:   env.EventType,
		AggregateID: env.AggregateID,
		EventID:     env.Metadata.EventID,
		TraceID:     env.Metadata.TraceID,
		SpanID:      env.Metadata.SpanID,
		OccurredAt:  env.Metadata.OccurredAt,
		Payload:     env.Payload,
	}, nil
}

// DecodePayload unmarshals the event payload into dst and validates it.
func DecodePayload(event *models.ParsedEvent, dst any) error {
	if err := json.Unmarshal(event.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.EventType, err)
	}

	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s payload: %w", internalErrors.ErrInvalidArgument, event.EventType, err)
	}

	return nil
}
