package cash_gateway_http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
)

type Webhooks interface {
	Handle(ctx context.Context, provider models.Provider, payload []byte) error
}

type Handler struct {
	log *slog.Logger

	webhooks Webhooks
	metrics  http.Handler
}

func NewHandler(log *slog.Logger, webhooks Webhooks, metrics http.Handler) *Handler {
	return &Handler{
		log:      log,
		webhooks: webhooks,
		metrics:  metrics,
	}
}

func (h *Handler) InitRoutes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)

	mux.Route("/api/webhooks", func(r chi.Router) {
		r.Post("/{provider}", h.webhook)
	})

	mux.Get("/health", h.health)

	if h.metrics != nil {
		mux.Method(http.MethodGet, "/metrics", h.metrics)
	}

	return mux
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
