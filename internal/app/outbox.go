package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/IBM/sarama"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/config"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/database"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/metrics"
	outboxRepository "github.com/tumbleweedd/two_services_system/cash_gateway/internal/repository/outbox"
	outboxService "github.com/tumbleweedd/two_services_system/cash_gateway/internal/services/outbox"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/brokers/kafka/producer"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/databases/postgres"
)

// OutboxWorker is the relay process. Run a single instance per database;
// concurrent instances stay correct through row locks but gain nothing.
type OutboxWorker struct {
	log *slog.Logger

	db       *postgres.PgDB
	producer sarama.SyncProducer
	metrics  *metrics.Provider
	server   *http.Server
	relay    *outboxService.Relay
}

func NewOutboxWorker(ctx context.Context, log *slog.Logger, cfg *config.Config, dsn string) (*OutboxWorker, error) {
	const op = "app.NewOutboxWorker"

	db, err := postgres.NewPostgresDB(ctx, log, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	w := &OutboxWorker{log: log, db: db}

	if w.metrics, err = metrics.NewProvider(); err != nil {
		return nil, errors.Join(fmt.Errorf("%s: %w", op, err), w.Stop())
	}

	eventMetrics, err := metrics.NewEventMetrics(w.metrics.MeterProvider(), metricsNamespace)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("%s: %w", op, err), w.Stop())
	}

	if w.producer, err = producer.NewSyncProducer(cfg.Kafka.BrokerList, cfg.ServiceName+"-outbox"); err != nil {
		return nil, errors.Join(fmt.Errorf("%s: %w", op, err), w.Stop())
	}

	w.relay = outboxService.NewRelay(
		log,
		database.NewTxManager(db.GetDB()),
		outboxRepository.New(log, db.GetDB()),
		w.producer,
		eventMetrics,
		cfg.Outbox,
	)

	mux := chi.NewRouter()
	mux.Method(http.MethodGet, "/metrics", w.metrics.Handler())

	w.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Outbox.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return w, nil
}

// Run relays until ctx is done.
func (w *OutboxWorker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.relay.Run(ctx)
	})

	g.Go(func() error {
		if err := w.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return w.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (w *OutboxWorker) Stop() error {
	var errs []error

	if w.producer != nil {
		if err := w.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close producer: %w", err))
		}
	}

	if w.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := w.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown metrics: %w", err))
		}
	}

	if err := w.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close postgres: %w", err))
	}

	return errors.Join(errs...)
}
