// Package main provides the notification worker entry point
// (owasp_run_notification_worker).
//
// The worker consumes the main notification stream as part of a consumer
// group, recovers stuck pending entries at startup, fans events out to
// subscribers via email, and quarantines terminal failures in the DLQ. It
// runs until killed.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"nestnotify/internal/app"
	"nestnotify/internal/config"
	"nestnotify/internal/infrastructure/database"
	communityRepo "nestnotify/internal/infrastructure/repository/community"
	notificationRepo "nestnotify/internal/infrastructure/repository/notification"
	"nestnotify/internal/infrastructure/streams"
	"nestnotify/internal/workers"
	"nestnotify/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLogrusLogger(cfg.Logging.Level, cfg.Logging.Format)
	slogger := logging.NewLoggerWithFormat(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)

	postgres, err := database.NewPostgresDB(cfg, slogger)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer postgres.Close()

	redis, err := database.NewRedisDB(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	sender, err := app.NewEmailSender(cfg)
	if err != nil {
		log.Fatalf("Failed to configure email transport: %v", err)
	}

	engine := workers.NewDeliveryEngine(
		notificationRepo.NewNotificationRepository(postgres.DB),
		sender,
		logger,
		workers.DeliveryEngineConfig{
			MaxRetries:      cfg.Notifications.MaxRetries,
			BaseDelay:       cfg.Notifications.BaseDelay,
			DelayMultiplier: cfg.Notifications.DelayMultiplier,
		},
	)

	worker := workers.NewNotificationWorker(
		streams.NewClient(redis.Client),
		workers.NotificationWorkerConfig{
			Stream:       cfg.Notifications.Stream,
			Group:        cfg.Notifications.Group,
			DLQStream:    cfg.Notifications.DLQStream,
			SiteURL:      cfg.Notifications.SiteURL,
			ReadBlock:    cfg.Notifications.ReadBlock,
			ClaimMinIdle: cfg.Notifications.ClaimMinIdle,
			ClaimCount:   int64(cfg.Notifications.ClaimCount),
			ErrorBackoff: cfg.Notifications.ErrorBackoff,
		},
		communityRepo.NewChapterRepository(postgres.DB),
		communityRepo.NewEventRepository(postgres.DB),
		communityRepo.NewSnapshotRepository(postgres.DB),
		notificationRepo.NewSubscriptionRepository(postgres.DB),
		engine,
		logger,
		os.Stdout,
	)

	if cfg.Monitoring.Enabled {
		go serveMetrics(cfg, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		fmt.Println("Shutting down notification worker...")
		cancel()
	}()

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Worker stopped: %v", err)
	}
}

func serveMetrics(cfg *config.Config, logger *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Monitoring.MetricsPath, promhttp.Handler())
	addr := fmt.Sprintf(":%d", cfg.Monitoring.MetricsPort)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.WithError(err).Error("Metrics server stopped")
	}
}
