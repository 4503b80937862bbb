package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/consumers/payment/mocks"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/gateway"
	internalErrors "github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/errors"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/logger"
)

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()
	gatewayDown := errors.New("cancel rejected")

	type mockBehavior func(driver *mocks.MockPaymentDriver)

	tCases := []struct {
		name         string
		eventType    string
		payload      string
		mockBehavior mockBehavior
		expErr       error
	}{
		{
			name:      "stock_reserved_charges",
			eventType: models.EventOrderStockReserved,
			payload:   `{"orderPublicId":"order-1","userPublicId":"user-1","orderNumber":"ORD-1","amount":15000}`,
			mockBehavior: func(driver *mocks.MockPaymentDriver) {
				driver.EXPECT().SendPayment(ctx, gateway.PaymentRequest{
					Provider:    models.ProviderDummy,
					OrderID:     "order-1",
					UserID:      "user-1",
					OrderNumber: "ORD-1",
					Amount:      decimal.NewFromInt(15000),
				}).Return(nil)
			},
		},
		{
			name:      "payment_in_progress_declined",
			eventType: models.EventOrderStockReserved,
			payload:   `{"orderPublicId":"order-1","userPublicId":"user-1","amount":1}`,
			mockBehavior: func(driver *mocks.MockPaymentDriver) {
				driver.EXPECT().SendPayment(ctx, gomock.Any()).
					Return(fmt.Errorf("record: %w", internalErrors.ErrProcessInProgress))
			},
		},
		{
			name:         "stock_reserved_without_user",
			eventType:    models.EventOrderStockReserved,
			payload:      `{"orderPublicId":"order-1","amount":1}`,
			mockBehavior: func(*mocks.MockPaymentDriver) {},
			expErr:       internalErrors.ErrInvalidArgument,
		},
		{
			name:      "order_cancelled",
			eventType: models.EventOrderCancelled,
			payload:   `{"orderPublicId":"order-1","userPublicId":"user-1","provider":"DUMMY"}`,
			mockBehavior: func(driver *mocks.MockPaymentDriver) {
				driver.EXPECT().SendCancel(ctx, gateway.CancelRequest{
					Provider: models.ProviderDummy,
					OrderID:  "order-1",
					UserID:   "user-1",
				}).Return(nil)
			},
		},
		{
			name:      "order_cancelled_before_payment",
			eventType: models.EventOrderCancelled,
			payload:   `{"orderPublicId":"order-1","userPublicId":"user-1"}`,
			mockBehavior: func(driver *mocks.MockPaymentDriver) {
				driver.EXPECT().SendCancel(ctx, gomock.Any()).Return(internalErrors.ErrOriginPaymentNotFound)
			},
		},
		{
			name:      "cancel_rejected",
			eventType: models.EventOrderCancelled,
			payload:   `{"orderPublicId":"order-1","userPublicId":"user-1"}`,
			mockBehavior: func(driver *mocks.MockPaymentDriver) {
				driver.EXPECT().SendCancel(ctx, gomock.Any()).Return(gatewayDown)
			},
			expErr: gatewayDown,
		},
		{
			name:         "unknown_type",
			eventType:    "ProductCreatedEvent",
			payload:      `{}`,
			mockBehavior: func(*mocks.MockPaymentDriver) {},
			expErr:       internalErrors.ErrInvalidArgument,
		},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			ctl := gomock.NewController(t)
			driver := mocks.NewMockPaymentDriver(ctl)
			tCase.mockBehavior(driver)

			h := New(logger.Discard(), driver)

			err := h.HandleEvent(ctx, &models.ParsedEvent{
				EventType:   tCase.eventType,
				AggregateID: "order-1",
				Payload:     []byte(tCase.payload),
			})
			if tCase.expErr != nil {
				require.ErrorIs(t, err, tCase.expErr)
				return
			}
			require.NoError(t, err)
		})
	}
}
