// Command sweeper runs a single reconciliation pass over the current period
// and exits. It is meant for cron-style schedulers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	"fintrack/internal/database"
	"fintrack/internal/jobs"
	"fintrack/internal/logger"
	"fintrack/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Sweep error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.LogLevel != "" {
		if err := logger.SetLevel(cfg.LogLevel); err != nil {
			return err
		}
	}

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() { _ = dbManager.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var publisher services.NotificationPublisher
	if cfg.AMQPURL != "" {
		p, err := amqp.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			return fmt.Errorf("failed to connect notification publisher: %w", err)
		}
		defer func() { _ = p.Close() }()
		publisher = p
	}

	notifications := services.NewNotificationService(dbManager.DB(), publisher)
	sweeper := jobs.NewSweeper(services.NewReconciler(dbManager.DB(), notifications), 0)

	result, err := sweeper.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	logger.Get().Infow("Sweep finished",
		"month", result.Period.Month,
		"year", result.Period.Year,
		"checked", result.Checked,
		"alerted", result.Alerted,
		"failed", result.Failed,
	)
	return nil
}
