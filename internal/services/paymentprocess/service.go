// Package paymentprocess owns every status transition of a payment process.
// Transitions are conditional updates; the caller's unit of work (from ctx)
// carries the row write and the resulting domain event together.
package paymentprocess

//go:generate mockgen -source=service.go -destination=mocks/mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
	internalErrors "github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/errors"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/tracing"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/logger"
)

type Store interface {
	Insert(ctx context.Context, p *models.PaymentProcess) error
	FindByID(ctx context.Context, id int64) (*models.PaymentProcess, error)
	FindActive(ctx context.Context, activeKey string) (*models.PaymentProcess, error)
	FindApprovedPayment(ctx context.Context, orderID string, provider models.Provider) (*models.PaymentProcess, error)
	CompareAndSwap(ctx context.Context, p *models.PaymentProcess, expected []models.ProcessStatus) (bool, error)
}

type EventRecorder interface {
	Record(ctx context.Context, event models.DomainEvent) error
}

type Service struct {
	log    *slog.Logger
	store  Store
	events EventRecorder

	topic string
}

func New(log *slog.Logger, store Store, events EventRecorder, topic string) *Service {
	return &Service{
		log:    log,
		store:  store,
		events: events,
		topic:  topic,
	}
}

// RecordRequest inserts a new process. Caller-originated processes are
// single-flight per (order, user, provider); externally originated ones skip
// the check and are stored in whatever status they arrive with, once per
// provider transaction id.
func (s *Service) RecordRequest(ctx context.Context, p *models.PaymentProcess) error {
	const op = "services.paymentprocess.RecordRequest"

	log := s.log.With(logger.Op(op), slog.String("reference_id", p.ReferenceID))

	if p.Status == "" {
		p.Status = models.StatusUnknown
	}
	if p.TraceID == nil {
		traceID, spanID := tracing.IDs(ctx)
		p.TraceID, p.SpanID = models.NullableString(traceID), models.NullableString(spanID)
	}

	if p.IsExternal() {
		p.ActiveRequestKey = nil
		if err := s.store.Insert(ctx, p); err != nil {
			if errors.Is(err, internalErrors.ErrTransactionRecorded) {
				log.Info("external transaction already recorded", slog.String("tid", models.Deref(p.PgTransactionID)))
				return nil
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		log.Info("external transaction recorded",
			slog.String("origin_source", models.Deref(p.OriginSource)),
			slog.String("status", string(p.Status)),
		)

		if p.Status == models.StatusSuccess {
			return s.record(ctx, op, models.NewPaymentApprovedEvent(p, s.topic))
		}
		return nil
	}

	if p.OrderID == nil || p.UserID == nil {
		return fmt.Errorf("%s: order and user are required: %w", op, internalErrors.ErrInvalidArgument)
	}

	key := models.ActiveRequestKey(*p.UserID, *p.OrderID, p.Provider)

	existing, err := s.store.FindActive(ctx, key)
	switch {
	case err == nil:
		log.Warn("payment process already in progress", slog.String("existing_reference_id", existing.ReferenceID))
		return fmt.Errorf("%s: order %s: %w", op, *p.OrderID, internalErrors.ErrProcessInProgress)
	case !errors.Is(err, internalErrors.ErrProcessNotFound):
		return fmt.Errorf("%s: %w", op, err)
	}

	p.ActiveRequestKey = &key
	if err = s.store.Insert(ctx, p); err != nil {
		if errors.Is(err, internalErrors.ErrProcessInProgress) {
			log.Warn("payment process already in progress, lost insert race")
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("payment process started", slog.Int64("process_id", p.ID))

	return nil
}

// MarkAccepted records the provider's acknowledgement: UNKNOWN -> PENDING.
func (s *Service) MarkAccepted(ctx context.Context, p *models.PaymentProcess, pgTransactionID string) (bool, error) {
	const op = "services.paymentprocess.MarkAccepted"

	next := *p
	next.Status = models.StatusPending
	next.PgTransactionID = models.NullableString(pgTransactionID)

	return s.transition(ctx, op, p, &next, []models.ProcessStatus{models.StatusUnknown})
}

// RecordSuccess moves an awaiting process to SUCCESS and emits the approval.
func (s *Service) RecordSuccess(ctx context.Context, p *models.PaymentProcess, outcome models.Outcome) (bool, error) {
	const op = "services.paymentprocess.RecordSuccess"

	next := *p
	next.ApplyOutcome(outcome)
	next.Status = models.StatusSuccess

	ok, err := s.transition(ctx, op, p, &next, models.AwaitingOutcome)
	if err != nil || !ok {
		return ok, err
	}

	return true, s.record(ctx, op, models.NewPaymentApprovedEvent(p, s.topic))
}

// RecordFailure moves an awaiting process to FAILED. Only payment rows emit
// a failure event; a failed cancel leaves the approval in place.
func (s *Service) RecordFailure(ctx context.Context, p *models.PaymentProcess, outcome models.Outcome) (bool, error) {
	const op = "services.paymentprocess.RecordFailure"

	next := *p
	next.ApplyOutcome(outcome)
	next.Status = models.StatusFailed

	ok, err := s.transition(ctx, op, p, &next, models.AwaitingOutcome)
	if err != nil || !ok {
		return ok, err
	}

	if p.IsCancel() {
		return true, nil
	}

	return true, s.record(ctx, op, models.NewPaymentFailedEvent(p, s.topic))
}

// RecordCancelSuccess moves a cancel attempt to CANCELLED and emits the
// cancellation against the approval it reverses. A missing approval is a
// consistency violation and fails the whole unit of work.
func (s *Service) RecordCancelSuccess(ctx context.Context, cancel *models.PaymentProcess, outcome models.Outcome) (bool, error) {
	const op = "services.paymentprocess.RecordCancelSuccess"

	next := *cancel
	next.ApplyOutcome(outcome)
	next.Status = models.StatusCancelled

	ok, err := s.transition(ctx, op, cancel, &next, models.AwaitingOutcome)
	if err != nil || !ok {
		return ok, err
	}

	origin, err := s.originOf(ctx, cancel)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, s.record(ctx, op, models.NewPaymentCancelledEvent(cancel, origin, s.topic))
}

// FindApprovedPayment returns the approval a cancel would reverse.
func (s *Service) FindApprovedPayment(ctx context.Context, orderID string, provider models.Provider) (*models.PaymentProcess, error) {
	const op = "services.paymentprocess.FindApprovedPayment"

	origin, err := s.store.FindApprovedPayment(ctx, orderID, provider)
	if err != nil {
		if errors.Is(err, internalErrors.ErrProcessNotFound) {
			return nil, fmt.Errorf("%s: order %s: %w", op, orderID, internalErrors.ErrOriginPaymentNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return origin, nil
}

func (s *Service) originOf(ctx context.Context, cancel *models.PaymentProcess) (*models.PaymentProcess, error) {
	if cancel.OriginProcessID != nil {
		origin, err := s.store.FindByID(ctx, *cancel.OriginProcessID)
		if err != nil {
			if errors.Is(err, internalErrors.ErrProcessNotFound) {
				return nil, internalErrors.ErrOriginPaymentNotFound
			}
			return nil, err
		}
		return origin, nil
	}

	if cancel.OrderID == nil {
		return nil, internalErrors.ErrOriginPaymentNotFound
	}

	return s.FindApprovedPayment(ctx, *cancel.OrderID, cancel.Provider)
}

// transition applies next over p only if the stored status is still one of
// expected. A lost race is logged and reported as false, not as an error.
func (s *Service) transition(
	ctx context.Context,
	op string,
	p, next *models.PaymentProcess,
	expected []models.ProcessStatus,
) (bool, error) {
	ok, err := s.store.CompareAndSwap(ctx, next, expected)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if !ok {
		s.log.Warn("status transition skipped, process no longer in expected status",
			logger.Op(op),
			slog.Int64("process_id", p.ID),
			slog.String("from", string(p.Status)),
			slog.String("to", string(next.Status)),
		)
		return false, nil
	}

	*p = *next
	s.log.Info("status transition applied",
		logger.Op(op),
		slog.Int64("process_id", p.ID),
		slog.String("status", string(p.Status)),
	)

	return true, nil
}

func (s *Service) record(ctx context.Context, op string, event models.DomainEvent) error {
	if err := s.events.Record(ctx, event); err != nil {
		return fmt.Errorf("%s: record %s: %w", op, event.EventType(), err)
	}

	return nil
}
