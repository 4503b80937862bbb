// Package dummy is the reference payment provider: asynchronous approval,
// outcome delivered by webhook.
package dummy

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/gateway"
)

const (
	endpointPath = "/api/payment-process"

	statusCompleted = "COMPLETED"
	cancelMarker    = "CANCEL"

	CodeSuccess = "0000"
	CodeFailure = "9999"

	messageApproved = "approved"
	messageFailed   = "payment failed"
)

type paymentRequest struct {
	MidID   string          `json:"midId"`
	UserID  string          `json:"userId"`
	OrderID string          `json:"orderId"`
	Amount  decimal.Decimal `json:"amount"`
	TID     string          `json:"tid,omitempty"`
	Cancel  string          `json:"cancel,omitempty"`
	Echo    echo            `json:"echo"`
}

type echo struct {
	OrderNumber        string `json:"orderNumber,omitempty"`
	GatewayReferenceID string `json:"gatewayReferenceId,omitempty"`
}

type paymentResponse struct {
	TID           string          `json:"tid"`
	MidID         string          `json:"midId"`
	UserID        string          `json:"userId"`
	OrderID       string          `json:"orderId"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status" validate:"required"`
	ApprovalNo    string          `json:"approvalNo"`
	FailureReason string          `json:"failureReason"`
	// Echo comes back either as an object or as a JSON-encoded string.
	Echo json.RawMessage `json:"echo"`
}

type acknowledgement struct {
	TransactionID string `json:"transactionId"`
	TID           string `json:"tid"`
}

type Provider struct {
	baseURL    string
	merchantID string
	validate   *validator.Validate
}

func New(baseURL, merchantID string) *Provider {
	return &Provider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		merchantID: merchantID,
		validate:   validator.New(),
	}
}

func (p *Provider) Name() models.Provider {
	return models.ProviderDummy
}

func (p *Provider) Endpoint() string {
	return p.baseURL + endpointPath
}

func (p *Provider) MerchantID() string {
	return p.merchantID
}

func (p *Provider) PrepareRequest(pc gateway.PaymentContext) (any, error) {
	orderID := pc.OrderNumber
	if orderID == "" {
		orderID = pc.OrderID
	}

	req := paymentRequest{
		MidID:   p.merchantID,
		UserID:  pc.UserID,
		OrderID: orderID,
		Amount:  pc.Amount,
		Echo: echo{
			OrderNumber:        pc.OrderNumber,
			GatewayReferenceID: pc.ReferenceID,
		},
	}

	switch pc.Kind {
	case gateway.KindPayment:
	case gateway.KindCancel:
		if pc.OriginPgTransactionID == "" {
			return nil, fmt.Errorf("dummy: cancel of %s has no origin transaction", pc.OrderID)
		}
		req.TID = pc.OriginPgTransactionID
		req.Cancel = cancelMarker
	default:
		return nil, fmt.Errorf("dummy: unsupported request kind %d", pc.Kind)
	}

	return req, nil
}

func (p *Provider) ParseResponse(payload []byte) (*gateway.Response, error) {
	const op = "dummy.Provider.ParseResponse"

	var resp paymentResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := p.validate.Struct(resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	echoed, err := parseEcho(resp.Echo)
	if err != nil {
		return nil, fmt.Errorf("%s: echo: %w", op, err)
	}

	completed := resp.Status == statusCompleted

	out := &gateway.Response{
		PgTransactionID: resp.TID,
		MerchantID:      resp.MidID,
		UserID:          resp.UserID,
		OrderID:         resp.OrderID,
		ApprovalCode:    resp.ApprovalNo,
		Code:            CodeFailure,
		Message:         resp.FailureReason,
		Amount:          resp.Amount,
		ReferenceID:     echoed.GatewayReferenceID,
		Raw:             string(payload),
	}
	if completed {
		out.Code = CodeSuccess
	}
	if out.Message == "" {
		out.Message = messageFailed
		if completed {
			out.Message = messageApproved
		}
	}

	return out, nil
}

func (p *Provider) IsSuccess(r *gateway.Response) bool {
	return r != nil && r.Code == CodeSuccess
}

// AcknowledgedTransaction extracts the transaction id from the synchronous
// acceptance reply, empty when the reply carries none.
func (p *Provider) AcknowledgedTransaction(payload []byte) string {
	var ack acknowledgement
	if err := json.Unmarshal(payload, &ack); err != nil {
		return ""
	}

	if ack.TransactionID != "" {
		return ack.TransactionID
	}

	return ack.TID
}

func parseEcho(raw json.RawMessage) (echo, error) {
	var e echo
	if len(raw) == 0 || string(raw) == "null" {
		return e, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return e, err
		}
		if s == "" {
			return e, nil
		}
		raw = json.RawMessage(s)
	}

	if err := json.Unmarshal(raw, &e); err != nil {
		return e, err
	}

	return e, nil
}
