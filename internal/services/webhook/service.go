package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/database"
	internalErrors "github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/errors"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/metrics"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/logger"
)

const (
	outcomeApplied  = "applied"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

type webhookHandler interface {
	HandleWebhook(ctx context.Context, provider models.Provider, payload []byte) error
}

// Service applies one provider callback per transaction. The row transition
// and any event it emits commit or roll back together.
type Service struct {
	log     *slog.Logger
	tm      database.TxManager
	driver  webhookHandler
	metrics metrics.EventMetrics
}

func New(log *slog.Logger, tm database.TxManager, driver webhookHandler, em metrics.EventMetrics) *Service {
	return &Service{
		log:     log,
		tm:      tm,
		driver:  driver,
		metrics: em,
	}
}

func (s *Service) Handle(ctx context.Context, provider models.Provider, payload []byte) error {
	const op = "services.webhook.Handle"

	err := s.tm.WithTx(ctx, func(ctx context.Context) error {
		return s.driver.HandleWebhook(ctx, provider, payload)
	})
	if err != nil {
		if isClientError(err) {
			s.metrics.RecordEvent(ctx, metrics.ComponentWebhook, outcomeRejected)
			s.log.Warn("webhook rejected", logger.Op(op), slog.String("provider", string(provider)), logger.Err(err))
		} else {
			s.metrics.RecordEvent(ctx, metrics.ComponentWebhook, outcomeFailed)
			s.log.Error("webhook failed", logger.Op(op), slog.String("provider", string(provider)), logger.Err(err))
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.RecordEvent(ctx, metrics.ComponentWebhook, outcomeApplied)

	return nil
}

func isClientError(err error) bool {
	return errors.Is(err, internalErrors.ErrUnknownProvider) ||
		errors.Is(err, internalErrors.ErrInvalidWebhook) ||
		errors.Is(err, internalErrors.ErrMissingTransactionID)
}
