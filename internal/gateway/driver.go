package gateway

//go:generate mockgen -source=driver.go -destination=mocks/mock.go -package=mocks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
	internalErrors "github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/errors"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/tracing"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/logger"
)

const (
	maxResponseBytes = 1 << 20
	webhookSpanName  = "webhook-callback"
)

type ProcessStateService interface {
	RecordRequest(ctx context.Context, p *models.PaymentProcess) error
	MarkAccepted(ctx context.Context, p *models.PaymentProcess, pgTransactionID string) (bool, error)
	RecordSuccess(ctx context.Context, p *models.PaymentProcess, outcome models.Outcome) (bool, error)
	RecordFailure(ctx context.Context, p *models.PaymentProcess, outcome models.Outcome) (bool, error)
	RecordCancelSuccess(ctx context.Context, p *models.PaymentProcess, outcome models.Outcome) (bool, error)
	FindApprovedPayment(ctx context.Context, orderID string, provider models.Provider) (*models.PaymentProcess, error)
}

type ProcessFinder interface {
	FindByPgTransaction(ctx context.Context, provider models.Provider, pgTransactionID string) (*models.PaymentProcess, error)
	FindByReferenceID(ctx context.Context, referenceID string) (*models.PaymentProcess, error)
}

type PaymentRequest struct {
	Provider    models.Provider
	OrderID     string
	UserID      string
	OrderNumber string
	Amount      decimal.Decimal
}

type CancelRequest struct {
	Provider models.Provider
	OrderID  string
	UserID   string
}

// Driver runs the request/record/call protocol against a provider. Every
// method expects the caller's unit of work in ctx.
type Driver struct {
	log       *slog.Logger
	registry  *Registry
	client    *http.Client
	processes ProcessStateService
	finder    ProcessFinder
}

func NewDriver(
	log *slog.Logger,
	registry *Registry,
	client *http.Client,
	processes ProcessStateService,
	finder ProcessFinder,
) *Driver {
	return &Driver{
		log:       log,
		registry:  registry,
		client:    client,
		processes: processes,
		finder:    finder,
	}
}

// SendPayment records the request, then calls the provider. A 2xx reply
// only means the request was accepted; the outcome arrives by webhook.
// Transport failures and non-2xx replies are recorded as FAILED and are not
// returned, so the caller's transaction still commits.
func (d *Driver) SendPayment(ctx context.Context, req PaymentRequest) error {
	const op = "gateway.Driver.SendPayment"

	provider, err := d.registry.Get(req.Provider)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if req.Amount.Sign() <= 0 {
		return fmt.Errorf("%s: amount %s: %w", op, req.Amount, internalErrors.ErrInvalidArgument)
	}

	p := &models.PaymentProcess{
		ReferenceID: models.NewReferenceID(provider.Name(), provider.MerchantID()),
		OrderID:     models.StringPtr(req.OrderID),
		UserID:      models.StringPtr(req.UserID),
		OrderNumber: models.NullableString(req.OrderNumber),
		Provider:    provider.Name(),
		MerchantID:  provider.MerchantID(),
		Amount:      req.Amount,
		Status:      models.StatusUnknown,
	}

	body, err := d.prepare(provider, PaymentContext{
		Kind:        KindPayment,
		ReferenceID: p.ReferenceID,
		OrderID:     req.OrderID,
		UserID:      req.UserID,
		OrderNumber: req.OrderNumber,
		Amount:      req.Amount,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	p.RequestPayload = models.StringPtr(string(body))

	if err = d.processes.RecordRequest(ctx, p); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log := d.log.With(
		logger.Op(op),
		slog.String("provider", string(provider.Name())),
		slog.String("reference_id", p.ReferenceID),
	)
	log.Info("payment request sending", slog.String("endpoint", provider.Endpoint()))

	status, raw, err := d.post(ctx, provider.Endpoint(), body)
	if err != nil {
		log.Error("payment gateway unreachable", logger.Err(err))

		if _, err = d.processes.RecordFailure(ctx, p, models.Outcome{
			Code:    models.CodeServerDown,
			Message: "payment gateway unreachable: " + err.Error(),
		}); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	if !isSuccessStatus(status) {
		log.Warn("payment request rejected", slog.Int("http_status", status))

		if _, err = d.processes.RecordFailure(ctx, p, models.Outcome{
			Code:       fmt.Sprintf(models.CodeHTTPStatusFmt, status),
			Message:    http.StatusText(status),
			RawPayload: string(raw),
		}); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	if ack, ok := provider.(Acknowledger); ok {
		if tid := ack.AcknowledgedTransaction(raw); tid != "" {
			if _, err = d.processes.MarkAccepted(ctx, p, tid); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}
	}

	log.Info("payment request accepted, awaiting webhook")

	return nil
}

// SendCancel reverses the order's approved payment. Cancellation is decided
// by the synchronous reply; any failure is returned so the caller's
// transaction does not treat the payment as cancelled.
func (d *Driver) SendCancel(ctx context.Context, req CancelRequest) error {
	const op = "gateway.Driver.SendCancel"

	provider, err := d.registry.Get(req.Provider)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	origin, err := d.processes.FindApprovedPayment(ctx, req.OrderID, provider.Name())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	cancel := &models.PaymentProcess{
		ReferenceID:     models.NewReferenceID(provider.Name(), provider.MerchantID()),
		OrderID:         models.StringPtr(req.OrderID),
		UserID:          models.StringPtr(req.UserID),
		OrderNumber:     origin.OrderNumber,
		Provider:        provider.Name(),
		MerchantID:      origin.MerchantID,
		Amount:          origin.Amount.Neg(),
		Status:          models.StatusUnknown,
		OriginProcessID: &origin.ID,
	}

	body, err := d.prepare(provider, PaymentContext{
		Kind:                  KindCancel,
		ReferenceID:           cancel.ReferenceID,
		OrderID:               req.OrderID,
		UserID:                req.UserID,
		OrderNumber:           models.Deref(origin.OrderNumber),
		Amount:                origin.Amount,
		OriginPgTransactionID: models.Deref(origin.PgTransactionID),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	cancel.RequestPayload = models.StringPtr(string(body))

	if err = d.processes.RecordRequest(ctx, cancel); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log := d.log.With(
		logger.Op(op),
		slog.String("provider", string(provider.Name())),
		slog.String("reference_id", cancel.ReferenceID),
		slog.String("origin_reference_id", origin.ReferenceID),
	)
	log.Info("cancel request sending")

	status, raw, err := d.post(ctx, provider.Endpoint(), body)
	if err != nil {
		log.Error("payment gateway unreachable", logger.Err(err))

		_, recErr := d.processes.RecordFailure(ctx, cancel, models.Outcome{
			Code:    models.CodeServerDown,
			Message: "payment gateway unreachable: " + err.Error(),
		})
		return errors.Join(fmt.Errorf("%s: %w: %w", op, internalErrors.ErrGatewayUnavailable, err), recErr)
	}

	if !isSuccessStatus(status) {
		_, recErr := d.processes.RecordFailure(ctx, cancel, models.Outcome{
			Code:       fmt.Sprintf(models.CodeHTTPStatusFmt, status),
			Message:    http.StatusText(status),
			RawPayload: string(raw),
		})
		return errors.Join(fmt.Errorf("%s: http status %d: %w", op, status, internalErrors.ErrCancelRejected), recErr)
	}

	resp, err := provider.ParseResponse(raw)
	if err != nil {
		return fmt.Errorf("%s: parse cancel response: %w", op, err)
	}

	if !provider.IsSuccess(resp) {
		log.Error("cancel rejected", slog.String("code", resp.Code), slog.String("message", resp.Message))

		_, recErr := d.processes.RecordFailure(ctx, cancel, resp.Outcome())
		return errors.Join(
			fmt.Errorf("%s: code=%s message=%s: %w", op, resp.Code, resp.Message, internalErrors.ErrCancelRejected),
			recErr,
		)
	}

	if _, err = d.processes.RecordCancelSuccess(ctx, cancel, resp.Outcome()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("payment cancelled")

	return nil
}

// HandleWebhook applies a provider callback. Only rows still awaiting an
// outcome transition; anything else is acknowledged as a no-op so provider
// retries are harmless. A callback with no row and no echo of our reference
// is a provider-initiated transaction and is recorded as such.
func (d *Driver) HandleWebhook(ctx context.Context, providerName models.Provider, payload []byte) error {
	const op = "gateway.Driver.HandleWebhook"

	provider, err := d.registry.Get(providerName)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := provider.ParseResponse(payload)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, internalErrors.ErrInvalidWebhook, err)
	}

	if resp.PgTransactionID == "" {
		return fmt.Errorf("%s: %w", op, internalErrors.ErrMissingTransactionID)
	}

	log := d.log.With(
		logger.Op(op),
		slog.String("provider", string(provider.Name())),
		slog.String("tid", resp.PgTransactionID),
	)

	p, err := d.lookup(ctx, provider.Name(), resp)
	if err != nil {
		if !errors.Is(err, internalErrors.ErrProcessNotFound) {
			return fmt.Errorf("%s: %w", op, err)
		}

		if resp.ReferenceID != "" {
			log.Warn("webhook for unknown process ignored", slog.String("reference_id", resp.ReferenceID))
			return nil
		}

		return d.recordExternal(ctx, provider, resp)
	}

	ctx = tracing.Restore(ctx, models.Deref(p.TraceID), models.Deref(p.SpanID))
	ctx, span := tracing.Start(ctx, webhookSpanName)
	defer span.End()

	log = log.With(slog.String("reference_id", p.ReferenceID), slog.Int64("process_id", p.ID))

	if !p.Status.IsActive() || p.IsCancel() {
		log.Info("webhook ignored, process not awaiting outcome", slog.String("status", string(p.Status)))
		return nil
	}

	if provider.IsSuccess(resp) {
		_, err = d.processes.RecordSuccess(ctx, p, resp.Outcome())
	} else {
		_, err = d.processes.RecordFailure(ctx, p, resp.Outcome())
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (d *Driver) lookup(ctx context.Context, provider models.Provider, resp *Response) (*models.PaymentProcess, error) {
	p, err := d.finder.FindByPgTransaction(ctx, provider, resp.PgTransactionID)
	if err == nil || !errors.Is(err, internalErrors.ErrProcessNotFound) || resp.ReferenceID == "" {
		return p, err
	}

	// the webhook may arrive before the acknowledgement stored the tid
	return d.finder.FindByReferenceID(ctx, resp.ReferenceID)
}

func (d *Driver) recordExternal(ctx context.Context, provider Provider, resp *Response) error {
	const op = "gateway.Driver.recordExternal"

	status := models.StatusFailed
	if provider.IsSuccess(resp) {
		status = models.StatusSuccess
	}

	merchantID := resp.MerchantID
	if merchantID == "" {
		merchantID = provider.MerchantID()
	}

	p := &models.PaymentProcess{
		ReferenceID:  models.NewReferenceID(provider.Name(), merchantID),
		UserID:       models.NullableString(resp.UserID),
		OrderNumber:  models.NullableString(resp.OrderID),
		Provider:     provider.Name(),
		MerchantID:   merchantID,
		Amount:       resp.Amount,
		Status:       status,
		OriginSource: models.StringPtr(models.ExternalOrigin(provider.Name())),
	}
	p.ApplyOutcome(resp.Outcome())

	if err := d.processes.RecordRequest(ctx, p); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (d *Driver) prepare(provider Provider, pc PaymentContext) ([]byte, error) {
	request, err := provider.PrepareRequest(pc)
	if err != nil {
		return nil, fmt.Errorf("prepare request: %w", err)
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	return body, nil
}

func (d *Driver) post(ctx context.Context, endpoint string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := d.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, err
	}

	return res.StatusCode, raw, nil
}

func isSuccessStatus(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}
