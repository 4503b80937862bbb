package models

import "github.com/shopspring/decimal"

const (
	EventOrderStockReserved = "OrderStockReservedEvent"
	EventOrderCancelled     = "OrderCancelledEvent"
)

// OrderStockReserved asks for the order to be charged.
type OrderStockReserved struct {
	OrderID     string          `json:"orderPublicId" validate:"required"`
	UserID      string          `json:"userPublicId" validate:"required"`
	OrderNumber string          `json:"orderNumber"`
	Provider    Provider        `json:"provider"`
	Amount      decimal.Decimal `json:"amount"`
}

type OrderCancelled struct {
	OrderID  string   `json:"orderPublicId" validate:"required"`
	UserID   string   `json:"userPublicId" validate:"required"`
	Provider Provider `json:"provider"`
	Reason   string   `json:"reason"`
}

// ProviderOrDefault falls back to the reference provider when the order did not name one.
func ProviderOrDefault(p Provider) Provider {
	if p == "" {
		return ProviderDummy
	}

	return p
}
