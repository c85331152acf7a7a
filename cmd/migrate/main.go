// Package main provides the schema migration tool. It creates or updates
// the entity, subscription, and notification ledger tables.
package main

import (
	"log"

	"nestnotify/internal/config"
	"nestnotify/internal/core/domain/community"
	"nestnotify/internal/core/domain/notification"
	"nestnotify/internal/core/domain/user"
	"nestnotify/internal/infrastructure/database"
	"nestnotify/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	slogger := logging.NewTextLogger(logging.ParseLevel(cfg.Logging.Level))

	postgres, err := database.NewPostgresDB(cfg, slogger)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer postgres.Close()

	err = postgres.DB.AutoMigrate(
		&user.User{},
		&community.Chapter{},
		&community.Event{},
		&community.Snapshot{},
		&notification.Subscription{},
		&notification.Notification{},
	)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	slogger.Info("Migration complete")
}
