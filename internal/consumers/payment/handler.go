// Package payment turns order events into payment gateway requests.
package payment

//go:generate mockgen -source=handler.go -destination=mocks/mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/consumer"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/gateway"
	internalErrors "github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/errors"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/logger"
)

const Name = "payment"

type PaymentDriver interface {
	SendPayment(ctx context.Context, req gateway.PaymentRequest) error
	SendCancel(ctx context.Context, req gateway.CancelRequest) error
}

type Handler struct {
	log    *slog.Logger
	driver PaymentDriver
}

func New(log *slog.Logger, driver PaymentDriver) *Handler {
	return &Handler{
		log:    log,
		driver: driver,
	}
}

func (h *Handler) Name() string {
	return Name
}

func (h *Handler) HandleEvent(ctx context.Context, event *models.ParsedEvent) error {
	const op = "consumers.payment.HandleEvent"

	switch event.EventType {
	case models.EventOrderStockReserved:
		return h.charge(ctx, event)
	case models.EventOrderCancelled:
		return h.cancel(ctx, event)
	default:
		return fmt.Errorf("%s: %w: unhandled event type %s", op, internalErrors.ErrInvalidArgument, event.EventType)
	}
}

func (h *Handler) charge(ctx context.Context, event *models.ParsedEvent) error {
	const op = "consumers.payment.charge"

	var order models.OrderStockReserved
	if err := consumer.DecodePayload(event, &order); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err := h.driver.SendPayment(ctx, gateway.PaymentRequest{
		Provider:    models.ProviderOrDefault(order.Provider),
		OrderID:     order.OrderID,
		UserID:      order.UserID,
		OrderNumber: order.OrderNumber,
		Amount:      order.Amount,
	})
	if errors.Is(err, internalErrors.ErrProcessInProgress) {
		h.log.Warn("payment already in progress, request declined",
			logger.Op(op),
			slog.String("order_id", order.OrderID),
			slog.String("user_id", order.UserID),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (h *Handler) cancel(ctx context.Context, event *models.ParsedEvent) error {
	const op = "consumers.payment.cancel"

	var order models.OrderCancelled
	if err := consumer.DecodePayload(event, &order); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err := h.driver.SendCancel(ctx, gateway.CancelRequest{
		Provider: models.ProviderOrDefault(order.Provider),
		OrderID:  order.OrderID,
		UserID:   order.UserID,
	})
	if errors.Is(err, internalErrors.ErrOriginPaymentNotFound) {
		h.log.Info("order has no approved payment, nothing to cancel",
			logger.Op(op),
			slog.String("order_id", order.OrderID),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
