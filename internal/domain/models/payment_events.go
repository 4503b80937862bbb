package models

import "github.com/shopspring/decimal"

const (
	AggregatePaymentProcess = "PaymentProcess"

	EventPaymentApproved  = "PaymentApprovedEvent"
	EventPaymentFailed    = "PaymentFailedEvent"
	EventPaymentCancelled = "PaymentCancelledEvent"
)

type PaymentApprovedEvent struct {
	BaseEvent

	ReferenceID     string          `json:"referenceId"`
	OrderID         *string         `json:"orderPublicId"`
	UserID          *string         `json:"userPublicId"`
	OrderNumber     *string         `json:"orderNumber,omitempty"`
	Provider        Provider        `json:"provider"`
	MerchantID      string          `json:"mid"`
	Amount          decimal.Decimal `json:"amount"`
	PgTransactionID string          `json:"pgTransaction"`
	ApprovalCode    string          `json:"pgApprovalNo"`
	OriginSource    *string         `json:"originSource,omitempty"`
}

func (PaymentApprovedEvent) EventType() string { return EventPaymentApproved }

func NewPaymentApprovedEvent(p *PaymentProcess, topic string) *PaymentApprovedEvent {
	return &PaymentApprovedEvent{
		BaseEvent:       NewBaseEvent(p.AggregateID(), AggregatePaymentProcess, topic),
		ReferenceID:     p.ReferenceID,
		OrderID:         p.OrderID,
		UserID:          p.UserID,
		OrderNumber:     p.OrderNumber,
		Provider:        p.Provider,
		MerchantID:      p.MerchantID,
		Amount:          p.Amount,
		PgTransactionID: Deref(p.PgTransactionID),
		ApprovalCode:    Deref(p.ApprovalCode),
		OriginSource:    p.OriginSource,
	}
}

type PaymentFailedEvent struct {
	BaseEvent

	ReferenceID  string          `json:"referenceId"`
	OrderID      *string         `json:"orderPublicId"`
	UserID       *string         `json:"userPublicId"`
	OrderNumber  *string         `json:"orderNumber,omitempty"`
	Provider     Provider        `json:"provider"`
	MerchantID   string          `json:"mid"`
	Amount       decimal.Decimal `json:"amount"`
	Code         *string         `json:"code"`
	Message      *string         `json:"message"`
	Reason       string          `json:"reason"`
	OriginSource *string         `json:"originSource,omitempty"`
}

func (PaymentFailedEvent) EventType() string { return EventPaymentFailed }

func NewPaymentFailedEvent(p *PaymentProcess, topic string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent:    NewBaseEvent(p.AggregateID(), AggregatePaymentProcess, topic),
		ReferenceID:  p.ReferenceID,
		OrderID:      p.OrderID,
		UserID:       p.UserID,
		OrderNumber:  p.OrderNumber,
		Provider:     p.Provider,
		MerchantID:   p.MerchantID,
		Amount:       p.Amount,
		Code:         p.Code,
		Message:      p.Message,
		Reason:       p.FailureReason(),
		OriginSource: p.OriginSource,
	}
}

// PaymentCancelledEvent references both the cancel attempt and the approval it reverses.
type PaymentCancelledEvent struct {
	BaseEvent

	ReferenceID           string          `json:"referenceId"`
	OriginReferenceID     string          `json:"originReferenceId"`
	OrderID               *string         `json:"orderPublicId"`
	UserID                *string         `json:"userPublicId"`
	Provider              Provider        `json:"provider"`
	MerchantID            string          `json:"mid"`
	Amount                decimal.Decimal `json:"amount"`
	PgTransactionID       string          `json:"pgTransaction"`
	OriginPgTransactionID string          `json:"originPgTransaction"`
	OriginApprovalCode    string          `json:"pgApprovalNo"`
}

func (PaymentCancelledEvent) EventType() string { return EventPaymentCancelled }

func NewPaymentCancelledEvent(cancel, origin *PaymentProcess, topic string) *PaymentCancelledEvent {
	return &PaymentCancelledEvent{
		BaseEvent:             NewBaseEvent(cancel.AggregateID(), AggregatePaymentProcess, topic),
		ReferenceID:           cancel.ReferenceID,
		OriginReferenceID:     origin.ReferenceID,
		OrderID:               cancel.OrderID,
		UserID:                cancel.UserID,
		Provider:              cancel.Provider,
		MerchantID:            cancel.MerchantID,
		Amount:                cancel.Amount,
		PgTransactionID:       Deref(cancel.PgTransactionID),
		OriginPgTransactionID: Deref(origin.PgTransactionID),
		OriginApprovalCode:    Deref(origin.ApprovalCode),
	}
}
