// Package main provides the DLQ administrator CLI
// (owasp_notification_dlq).
//
//	owasp_notification_dlq list
//	owasp_notification_dlq retry --id ID | --all
//	owasp_notification_dlq remove --id ID | --all
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"nestnotify/internal/app"
	"nestnotify/internal/config"
	"nestnotify/internal/infrastructure/database"
	"nestnotify/internal/infrastructure/streams"
	"nestnotify/internal/services"
	"nestnotify/pkg/logging"
)

var (
	flagID  string
	flagAll bool
)

func main() {
	root := &cobra.Command{
		Use:           "owasp_notification_dlq",
		Short:         "Manage the notification DLQ: list, retry, or remove failed notifications",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all failed notifications in the DLQ",
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, cleanup, err := newAdmin()
			if err != nil {
				return err
			}
			defer cleanup()
			return admin.List(context.Background())
		},
	}

	retryCmd := &cobra.Command{
		Use:   "retry",
		Short: "Retry failed notification(s)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireTarget(); err != nil {
				return err
			}
			admin, cleanup, err := newAdmin()
			if err != nil {
				return err
			}
			defer cleanup()
			return admin.Retry(context.Background(), flagID, flagAll)
		},
	}
	addTargetFlags(retryCmd)

	removeCmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove failed notification(s) from the DLQ",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireTarget(); err != nil {
				return err
			}
			admin, cleanup, err := newAdmin()
			if err != nil {
				return err
			}
			defer cleanup()
			return admin.Remove(context.Background(), flagID, flagAll)
		},
	}
	addTargetFlags(removeCmd)

	root.AddCommand(listCmd, retryCmd, removeCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagID, "id", "", "Specific message ID to act on")
	cmd.Flags().BoolVar(&flagAll, "all", false, "Apply action to all messages")
}

func requireTarget() error {
	if flagID == "" && !flagAll {
		return fmt.Errorf("--id or --all is required")
	}
	return nil
}

func newAdmin() (*services.DLQAdmin, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogrusLogger(cfg.Logging.Level, cfg.Logging.Format)

	redis, err := database.NewRedisDB(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	sender, err := app.NewEmailSender(cfg)
	if err != nil {
		redis.Close()
		return nil, nil, fmt.Errorf("failed to configure email transport: %w", err)
	}

	admin := services.NewDLQAdmin(
		streams.NewClient(redis.Client),
		cfg.Notifications.DLQStream,
		sender,
		logger,
		os.Stdout,
	)
	cleanup := func() {
		if err := redis.Close(); err != nil {
			log.Printf("Failed to close Redis connection: %v", err)
		}
	}
	return admin, cleanup, nil
}
