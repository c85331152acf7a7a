// Package app wires shared dependencies for the program entry points.
package app

import (
	"nestnotify/internal/config"
	"nestnotify/pkg/email"
)

// NewEmailSender constructs the configured email transport.
func NewEmailSender(cfg *config.Config) (email.Sender, error) {
	ec := cfg.External.Email
	switch ec.Provider {
	case "ses":
		return email.NewSESClient(email.SESConfig{
			Region:    ec.SESRegion,
			AccessKey: ec.SESAccessKey,
			SecretKey: ec.SESSecretKey,
			FromEmail: ec.FromEmail,
			FromName:  ec.FromName,
		})
	default:
		return email.NewSMTPClient(email.SMTPConfig{
			Host:      ec.SMTPHost,
			Port:      ec.SMTPPort,
			Username:  ec.SMTPUsername,
			Password:  ec.SMTPPassword,
			FromEmail: ec.FromEmail,
			FromName:  ec.FromName,
			UseTLS:    ec.SMTPUseTLS,
		}), nil
	}
}
