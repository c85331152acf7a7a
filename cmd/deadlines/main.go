// Package main provides the deadline scanner entry point
// (owasp_check_event_deadlines).
//
// Run once per calendar day. It queues one event_deadline_reminder per
// event starting in 7, 3, or 1 days; the delivery engine's idempotency
// check makes same-day reruns harmless.
package main

import (
	"context"
	"log"
	"os"

	"nestnotify/internal/config"
	"nestnotify/internal/infrastructure/database"
	communityRepo "nestnotify/internal/infrastructure/repository/community"
	"nestnotify/internal/infrastructure/streams"
	"nestnotify/internal/services"
	"nestnotify/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLogrusLogger(cfg.Logging.Level, cfg.Logging.Format)
	slogger := logging.NewTextLogger(logging.ParseLevel(cfg.Logging.Level))

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

	publisher := services.NewPublisher(streams.NewClient(redis.Client), cfg.Notifications.Stream, logger)
	scanner := services.NewDeadlineScanner(
		communityRepo.NewEventRepository(postgres.DB),
		publisher,
		logger,
		os.Stdout,
	)

	if _, err := scanner.Run(context.Background()); err != nil {
		log.Fatalf("Deadline scan failed: %v", err)
	}
}
