package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/IBM/sarama"
	"golang.org/x/sync/errgroup"

	httpapp "github.com/tumbleweedd/two_services_system/cash_gateway/internal/app/http"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/cache_impl"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/config"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/consumer"
	deadLetterConsumer "github.com/tumbleweedd/two_services_system/cash_gateway/internal/consumers/deadletter"
	paymentConsumer "github.com/tumbleweedd/two_services_system/cash_gateway/internal/consumers/payment"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/deadletter"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/gateway"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/gateway/dummy"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/database"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/metrics"
	deadLetterRepository "github.com/tumbleweedd/two_services_system/cash_gateway/internal/repository/deadletter"
	outboxRepository "github.com/tumbleweedd/two_services_system/cash_gateway/internal/repository/outbox"
	paymentProcessRepository "github.com/tumbleweedd/two_services_system/cash_gateway/internal/repository/paymentprocess"
	processedEventRepository "github.com/tumbleweedd/two_services_system/cash_gateway/internal/repository/processedevent"
	outboxService "github.com/tumbleweedd/two_services_system/cash_gateway/internal/services/outbox"
	paymentProcessService "github.com/tumbleweedd/two_services_system/cash_gateway/internal/services/paymentprocess"
	webhookService "github.com/tumbleweedd/two_services_system/cash_gateway/internal/services/webhook"
	kafkaConsumer "github.com/tumbleweedd/two_services_system/cash_gateway/pkg/brokers/kafka/consumer"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/brokers/kafka/producer"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/databases/postgres"
)

const (
	metricsNamespace  = "cash_gateway"
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// App is the cash gateway process: webhook endpoint, order-events consumer
// and dead-letter inspector.
type App struct {
	log *slog.Logger

	HTTPServer *httpapp.App

	db        *postgres.PgDB
	producer  sarama.SyncProducer
	metrics   *metrics.Provider
	consumers []*kafkaConsumer.Group
}

func NewApp(ctx context.Context, log *slog.Logger, cfg *config.Config, dsn string) (*App, error) {
	const op = "app.NewApp"

	if err := config.ValidateRegistry(cfg.Kafka, cfg.ServiceName); err != nil {
		return nil, fmt.Errorf("%s: invalid event registry: %w", op, err)
	}
	registry := config.NewEventRegistry(cfg.Kafka)

	db, err := postgres.NewPostgresDB(ctx, log, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a := &App{log: log, db: db}

	if a.metrics, err = metrics.NewProvider(); err != nil {
		return nil, a.closeWith(fmt.Errorf("%s: %w", op, err))
	}

	eventMetrics, err := metrics.NewEventMetrics(a.metrics.MeterProvider(), metricsNamespace)
	if err != nil {
		return nil, a.closeWith(fmt.Errorf("%s: %w", op, err))
	}

	if a.producer, err = producer.NewSyncProducer(cfg.Kafka.BrokerList, cfg.ServiceName); err != nil {
		return nil, a.closeWith(fmt.Errorf("%s: %w", op, err))
	}

	providers, err := setupProviders(cfg.Gateway)
	if err != nil {
		return nil, a.closeWith(fmt.Errorf("%s: %w", op, err))
	}
	log.Info("payment providers registered", slog.Any("providers", providers.Names()))

	tm := database.NewTxManager(db.GetDB())

	processes := paymentProcessRepository.New(log, db.GetDB())
	recorder := outboxService.NewRecorder(log, outboxRepository.New(log, db.GetDB()))
	processSvc := paymentProcessService.New(log, processes, recorder, cfg.Kafka.PaymentEventTopic)

	driver := gateway.NewDriver(log, providers, &http.Client{Timeout: cfg.Gateway.Timeout}, processSvc, processes)

	a.HTTPServer = httpapp.NewApp(
		log,
		webhookService.New(log, tm, driver, eventMetrics),
		a.metrics.Handler(),
		cfg.HTTP.Port,
	)

	policy := deadletter.New(log, a.producer, eventMetrics, cfg.ServiceName, cfg.Kafka.ConsumerGroup, cfg.Retry)

	payments := consumer.New(
		log,
		tm,
		registry,
		processedEventRepository.New(log, db.GetDB()),
		cache_impl.NewExpirableProcessedEvents(cfg.Dedup.CacheSize, cfg.Dedup.TTL, log),
		paymentConsumer.New(log, driver),
		eventMetrics,
	)

	if topics := registry.SubscribedTopics(); len(topics) > 0 {
		group, err := kafkaConsumer.NewGroup(log, cfg.Kafka.BrokerList, cfg.Kafka.ConsumerGroup, topics,
			func(ctx context.Context, msg *sarama.ConsumerMessage, ack func()) error {
				return policy.Handle(ctx, msg, ack, func(ctx context.Context, ack func()) error {
					return payments.Consume(ctx, msg.Topic, msg.Value, ack)
				})
			},
		)
		if err != nil {
			return nil, a.closeWith(fmt.Errorf("%s: %w", op, err))
		}
		a.consumers = append(a.consumers, group)
	}

	inspector := deadLetterConsumer.New(log, deadLetterRepository.New(log, db.GetDB()), eventMetrics)

	if topics := registry.DeadLetterTopics(); len(topics) > 0 {
		group, err := kafkaConsumer.NewGroup(log, cfg.Kafka.BrokerList, cfg.Kafka.DeadLetterGroup, topics, inspector.Inspect)
		if err != nil {
			return nil, a.closeWith(fmt.Errorf("%s: %w", op, err))
		}
		a.consumers = append(a.consumers, group)
	}

	return a, nil
}

// Run serves until ctx is done or one of the runners fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(a.HTTPServer.Run)

	for _, c := range a.consumers {
		c := c
		g.Go(func() error {
			return c.Run(ctx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return a.HTTPServer.Stop(shutdownCtx)
	})

	return g.Wait()
}

func (a *App) Stop() error {
	var errs []error

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close consumer group: %w", err))
		}
	}

	return errors.Join(append(errs, a.closeWith(nil))...)
}

func (a *App) closeWith(err error) error {
	errs := []error{err}

	if a.producer != nil {
		if closeErr := a.producer.Close(); closeErr != nil {
			errs = append(errs, fmt.Errorf("close producer: %w", closeErr))
		}
	}

	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if shutdownErr := a.metrics.Shutdown(ctx); shutdownErr != nil {
			errs = append(errs, fmt.Errorf("shutdown metrics: %w", shutdownErr))
		}
	}

	if closeErr := a.db.Close(); closeErr != nil {
		errs = append(errs, fmt.Errorf("close postgres: %w", closeErr))
	}

	a.log.Info("postgres db closed")

	return errors.Join(errs...)
}

func setupProviders(cfg config.GatewayConfig) (*gateway.Registry, error) {
	providers := make([]gateway.Provider, 0, len(cfg.Providers))

	for _, p := range cfg.Providers {
		switch p.Name {
		case string(models.ProviderDummy):
			providers = append(providers, dummy.New(p.URL, p.MerchantID))
		default:
			return nil, fmt.Errorf("gateway provider %q is not supported", p.Name)
		}
	}

	return gateway.NewRegistry(providers...)
}
