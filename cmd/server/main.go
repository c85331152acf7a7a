// Package main provides the entity API server. Chapter, event, and
// snapshot writes flow through this process; its commit path is what
// feeds the notification stream.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"nestnotify/internal/config"
	"nestnotify/internal/infrastructure/database"
	communityRepo "nestnotify/internal/infrastructure/repository/community"
	"nestnotify/internal/infrastructure/streams"
	"nestnotify/internal/services"
	transportHTTP "nestnotify/internal/transport/http"
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

	publisher := services.NewPublisher(streams.NewClient(redis.Client), cfg.Notifications.Stream, logger)
	service := services.NewCommunityService(
		communityRepo.NewChapterRepository(postgres.DB),
		communityRepo.NewEventRepository(postgres.DB),
		communityRepo.NewSnapshotRepository(postgres.DB),
		publisher,
		logger,
	)

	server := transportHTTP.NewServer(cfg, service, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Forced shutdown")
	}
}
