// Package gateway drives outbound payment-gateway calls and inbound webhooks
// for any provider registered behind the Provider interface.
package gateway

import (
	"github.com/shopspring/decimal"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
)

type RequestKind int

const (
	KindPayment RequestKind = iota + 1
	KindCancel
)

// PaymentContext is everything a provider needs to build one outbound request.
type PaymentContext struct {
	Kind        RequestKind
	ReferenceID string
	OrderID     string
	UserID      string
	OrderNumber string
	Amount      decimal.Decimal

	// OriginPgTransactionID is the approval being reversed, cancel only.
	OriginPgTransactionID string
}

// Response is a provider response or webhook normalized to one shape.
type Response struct {
	PgTransactionID string
	MerchantID      string
	UserID          string
	OrderID         string
	ApprovalCode    string
	Code            string
	Message         string
	Amount          decimal.Decimal
	// ReferenceID is our gateway reference echoed back, empty for
	// provider-initiated transactions.
	ReferenceID string
	Raw         string
}

func (r *Response) Outcome() models.Outcome {
	return models.Outcome{
		PgTransactionID: r.PgTransactionID,
		ApprovalCode:    r.ApprovalCode,
		Code:            r.Code,
		Message:         r.Message,
		RawPayload:      r.Raw,
	}
}

type Provider interface {
	Name() models.Provider
	Endpoint() string
	MerchantID() string
	PrepareRequest(pc PaymentContext) (any, error)
	ParseResponse(payload []byte) (*Response, error)
	IsSuccess(r *Response) bool
}

// Acknowledger is implemented by providers whose synchronous payment
// acknowledgement carries their transaction id.
type Acknowledger interface {
	AcknowledgedTransaction(payload []byte) string
}
