package httpapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	cash_gateway_http "github.com/tumbleweedd/two_services_system/cash_gateway/internal/delivery/http"
)

const readHeaderTimeout = 5 * time.Second

type App struct {
	log        *slog.Logger
	httpServer *http.Server
	port       int
}

func NewApp(log *slog.Logger, webhooks cash_gateway_http.Webhooks, metrics http.Handler, port int) *App {
	handler := cash_gateway_http.NewHandler(log, webhooks, metrics)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler.InitRoutes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return &App{
		log:        log,
		httpServer: httpServer,
		port:       port,
	}
}

func (a *App) Run() error {
	const op = "httpapp.run"

	log := a.log.With(slog.String("op", op), slog.Int("port", a.port))

	log.Info("starting http server")

	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (a *App) Stop(ctx context.Context) error {
	const op = "httpapp.stop"

	log := a.log.With(slog.String("op", op))

	log.Info("stopping http server")

	return a.httpServer.Shutdown(ctx)
}
