package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Provider string

const ProviderDummy Provider = "DUMMY"

type ProcessStatus string

const (
	// StatusUnknown: request recorded, outcome not known yet.
	StatusUnknown ProcessStatus = "UNKNOWN"
	// StatusPending: provider acknowledged the request and its transaction id is known.
	StatusPending   ProcessStatus = "PENDING"
	StatusSuccess   ProcessStatus = "SUCCESS"
	StatusFailed    ProcessStatus = "FAILED"
	StatusCancelled ProcessStatus = "CANCELLED"
)

// AwaitingOutcome are the statuses a webhook or a cancel response may transition from.
var AwaitingOutcome = []ProcessStatus{StatusUnknown, StatusPending}

func (s ProcessStatus) IsActive() bool {
	return s == StatusUnknown || s == StatusPending
}

func (s ProcessStatus) IsTerminal() bool {
	return !s.IsActive()
}

const (
	CodeServerDown     = "PG_SERVER_DOWN"
	CodeHTTPStatusFmt  = "PG_HTTP_%d"
	unknownFailReason  = "Unknown error"
	externalOriginTail = "_WEBHOOK"
)

// PaymentProcess is one attempt to talk to an external payment gateway.
type PaymentProcess struct {
	ID               int64           `db:"id"`
	ReferenceID      string          `db:"reference_id"`
	OrderID          *string         `db:"order_id"`
	UserID           *string         `db:"user_id"`
	OrderNumber      *string         `db:"order_number"`
	Provider         Provider        `db:"provider"`
	MerchantID       string          `db:"merchant_id"`
	Amount           decimal.Decimal `db:"amount"`
	Status           ProcessStatus   `db:"status"`
	OriginProcessID  *int64          `db:"origin_process_id"`
	OriginSource     *string         `db:"origin_source"`
	PgTransactionID  *string         `db:"pg_transaction_id"`
	ApprovalCode     *string         `db:"approval_code"`
	Code             *string         `db:"code"`
	Message          *string         `db:"message"`
	ActiveRequestKey *string         `db:"active_request_key"`
	RequestPayload   *string         `db:"request_payload"`
	ResponsePayload  *string         `db:"response_payload"`
	TraceID          *string         `db:"trace_id"`
	SpanID           *string         `db:"span_id"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// IsExternal reports a provider-initiated transaction with no order of ours behind it.
func (p *PaymentProcess) IsExternal() bool {
	return p.OriginSource != nil
}

func (p *PaymentProcess) IsCancel() bool {
	return p.OriginProcessID != nil
}

// FailureReason is the message, else the code, else a generic reason.
func (p *PaymentProcess) FailureReason() string {
	if p.Message != nil && *p.Message != "" {
		return *p.Message
	}
	if p.Code != nil && *p.Code != "" {
		return *p.Code
	}

	return unknownFailReason
}

// AggregateID is the order reference when known, the gateway reference otherwise.
func (p *PaymentProcess) AggregateID() string {
	if p.OrderID != nil && *p.OrderID != "" {
		return *p.OrderID
	}

	return p.ReferenceID
}

// ApplyOutcome copies the provider-side fields of a normalized response.
func (p *PaymentProcess) ApplyOutcome(o Outcome) {
	if o.PgTransactionID != "" {
		p.PgTransactionID = StringPtr(o.PgTransactionID)
	}
	p.ApprovalCode = NullableString(o.ApprovalCode)
	p.Code = NullableString(o.Code)
	p.Message = NullableString(o.Message)
	if o.RawPayload != "" {
		p.ResponsePayload = StringPtr(o.RawPayload)
	}
}

// Outcome is what a response or webhook tells us about a process.
type Outcome struct {
	PgTransactionID string
	ApprovalCode    string
	Code            string
	Message         string
	RawPayload      string
}

func ActiveRequestKey(userID, orderID string, provider Provider) string {
	return fmt.Sprintf("%s-%s-%s", userID, orderID, provider)
}

// NewReferenceID builds {provider}_{merchantId}_{uniqueSuffix}.
func NewReferenceID(provider Provider, merchantID string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])

	return fmt.Sprintf("%s_%s_%s%s", provider, merchantID, time.Now().UTC().Format("20060102150405"), suffix)
}

func ExternalOrigin(provider Provider) string {
	return string(provider) + externalOriginTail
}

func StringPtr(s string) *string {
	return &s
}

func NullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func Deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
