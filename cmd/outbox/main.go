package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/app"
	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/config"
	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/logger"
)

func main() {
	cfg := config.InitConfig()

	log := logger.SetupLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	worker, err := app.NewOutboxWorker(ctx, log, &cfg, postgresDSN(&cfg.Postgres))
	if err != nil {
		panic(fmt.Sprintf("failed to create outbox worker: %v", err.Error()))
	}

	log.Info("outbox relay started",
		logger.String("interval", cfg.Outbox.Interval.String()),
		logger.Int("batch_size", cfg.Outbox.BatchSize),
	)

	if err = worker.Run(ctx); err != nil {
		log.Error("outbox relay stopped with error", logger.Err(err))
	}

	if err = worker.Stop(); err != nil {
		panic(fmt.Sprintf("failed to stop outbox worker: %v", err.Error()))
	}

	log.Info("outbox relay stopped")
}

func postgresDSN(psqlCfg *config.PostgresConfig) string {
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		psqlCfg.Host, psqlCfg.Port, psqlCfg.User, psqlCfg.DbName, psqlCfg.Pwd, psqlCfg.SslMode)
}
