package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "owasp_notifications", cfg.Notifications.Stream)
	assert.Equal(t, "notification_group", cfg.Notifications.Group)
	assert.Equal(t, "owasp_notifications_dlq", cfg.Notifications.DLQStream)
	assert.Equal(t, 5, cfg.Notifications.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Notifications.BaseDelay)
	assert.Equal(t, 2, cfg.Notifications.DelayMultiplier)
	assert.Equal(t, 5*time.Second, cfg.Notifications.ReadBlock)
	assert.Equal(t, 5*time.Minute, cfg.Notifications.ClaimMinIdle)
	assert.Equal(t, 10, cfg.Notifications.ClaimCount)

	assert.Equal(t, "noreply@owasp.org", cfg.External.Email.FromEmail)
	assert.Equal(t, "smtp", cfg.External.Email.Provider)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SITE_URL", "https://staging.nest.owasp.org")
	t.Setenv("NOTIFICATIONS_MAX_RETRIES", "3")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://staging.nest.owasp.org", cfg.Notifications.SiteURL)
	assert.Equal(t, 3, cfg.Notifications.MaxRetries)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEmailConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     EmailConfig
		wantErr bool
	}{
		{
			name: "valid smtp",
			cfg:  EmailConfig{Provider: "smtp", FromEmail: "noreply@owasp.org", SMTPHost: "localhost", SMTPPort: 25},
		},
		{
			name:    "missing from email",
			cfg:     EmailConfig{Provider: "smtp", SMTPHost: "localhost", SMTPPort: 25},
			wantErr: true,
		},
		{
			name:    "smtp without host",
			cfg:     EmailConfig{Provider: "smtp", FromEmail: "noreply@owasp.org", SMTPPort: 25},
			wantErr: true,
		},
		{
			name:    "ses without region",
			cfg:     EmailConfig{Provider: "ses", FromEmail: "noreply@owasp.org"},
			wantErr: true,
		},
		{
			name: "valid ses",
			cfg:  EmailConfig{Provider: "ses", FromEmail: "noreply@owasp.org", SESRegion: "us-east-1"},
		},
		{
			name:    "unknown provider",
			cfg:     EmailConfig{Provider: "pigeon", FromEmail: "noreply@owasp.org"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
