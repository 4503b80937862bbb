package errors

import "errors"

var (
	ErrProcessInProgress     = errors.New("payment process already in progress")
	ErrProcessNotFound       = errors.New("payment process not found")
	ErrTransactionRecorded   = errors.New("provider transaction already recorded")
	ErrOriginPaymentNotFound = errors.New("original approved payment process not found")
	ErrCancelRejected        = errors.New("cancellation rejected by payment gateway")
	ErrGatewayUnavailable    = errors.New("payment gateway unavailable")
	ErrUnknownProvider       = errors.New("unknown payment provider")

	ErrInvalidWebhook       = errors.New("invalid webhook payload")
	ErrMissingTransactionID = errors.New("webhook has no provider transaction id")

	ErrInvalidEnvelope = errors.New("invalid event envelope")
	ErrInvalidArgument = errors.New("invalid argument")

	ErrEventAlreadyProcessed = errors.New("event already processed")
	ErrNoTransaction         = errors.New("no transaction in context")
)
