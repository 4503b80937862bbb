package cash_gateway_http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
	internalErrors "github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/errors"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/logger"
)

const maxWebhookBytes = 1 << 20

func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	const op = "delivery.http.webhook"

	provider := models.Provider(strings.ToUpper(chi.URLParam(r, "provider")))

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		h.log.Error(op, logger.Err(err))
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if err = h.webhooks.Handle(r.Context(), provider, payload); err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.log.Error(op, slog.String("provider", string(provider)), logger.Err(err))
			writeError(w, status, "webhook processing failed")
			return
		}

		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, internalErrors.ErrUnknownProvider):
		return http.StatusNotFound
	case errors.Is(err, internalErrors.ErrInvalidWebhook),
		errors.Is(err, internalErrors.ErrMissingTransactionID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
