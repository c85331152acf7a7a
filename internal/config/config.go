// Package config provides configuration management for the notification
// pipeline.
//
// Configuration is loaded from multiple sources in this order:
// 1. Configuration files (YAML)
// 2. Environment variables
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Environment   string              `mapstructure:"environment"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	External      ExternalConfig      `mapstructure:"external"`
	Monitoring    MonitoringConfig    `mapstructure:"monitoring"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// AppConfig contains application-level configuration.
type AppConfig struct {
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig contains HTTP server configuration for the entity API.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains PostgreSQL database configuration.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// NotificationsConfig contains notification pipeline configuration.
type NotificationsConfig struct {
	// SiteURL is the base URL used when composing related links.
	SiteURL string `mapstructure:"site_url"`

	Stream    string `mapstructure:"stream"`
	Group     string `mapstructure:"group"`
	DLQStream string `mapstructure:"dlq_stream"`

	// Delivery retry policy: delays are BaseDelay * DelayMultiplier^(n-1).
	MaxRetries      int           `mapstructure:"max_retries"`
	BaseDelay       time.Duration `mapstructure:"base_delay"`
	DelayMultiplier int           `mapstructure:"delay_multiplier"`

	// Consumer tuning.
	ReadBlock     time.Duration `mapstructure:"read_block"`
	ClaimMinIdle  time.Duration `mapstructure:"claim_min_idle"`
	ClaimCount    int           `mapstructure:"claim_count"`
	ErrorBackoff  time.Duration `mapstructure:"error_backoff"`
}

// ExternalConfig contains external service configurations.
type ExternalConfig struct {
	Email EmailConfig `mapstructure:"email"`
}

// EmailConfig contains email service configuration.
// Supported providers: smtp (default), ses
type EmailConfig struct {
	Provider string `mapstructure:"provider"` // smtp, ses

	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`

	// SMTP provider
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
	SMTPUseTLS   bool   `mapstructure:"smtp_use_tls"`

	// AWS SES provider (uses default credential chain if keys not provided)
	SESRegion    string `mapstructure:"ses_region"`
	SESAccessKey string `mapstructure:"ses_access_key"`
	SESSecretKey string `mapstructure:"ses_secret_key"`
}

// MonitoringConfig contains metrics configuration for the worker.
type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
}

// Load loads configuration from files and environment variables.
func Load() (*Config, error) {
	// Load .env file if present (development convenience)
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()
	bindEnvVars()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; env vars and defaults apply
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the complete configuration.
func (c *Config) Validate() error {
	if err := c.Redis.Validate(); err != nil {
		return err
	}
	if err := c.Notifications.Validate(); err != nil {
		return err
	}
	if err := c.External.Email.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate validates Redis configuration.
func (rc *RedisConfig) Validate() error {
	if rc.URL == "" {
		return errors.New("REDIS_URL is required")
	}
	return nil
}

// Validate validates notification pipeline configuration.
func (nc *NotificationsConfig) Validate() error {
	if nc.Stream == "" {
		return errors.New("notifications.stream is required")
	}
	if nc.Group == "" {
		return errors.New("notifications.group is required")
	}
	if nc.DLQStream == "" {
		return errors.New("notifications.dlq_stream is required")
	}
	if nc.MaxRetries < 0 {
		return fmt.Errorf("notifications.max_retries must be >= 0, got %d", nc.MaxRetries)
	}
	if nc.DelayMultiplier < 1 {
		return fmt.Errorf("notifications.delay_multiplier must be >= 1, got %d", nc.DelayMultiplier)
	}
	return nil
}

// Validate validates email configuration.
func (ec *EmailConfig) Validate() error {
	if ec.FromEmail == "" {
		return errors.New("EMAIL_FROM_EMAIL is required")
	}

	switch ec.Provider {
	case "smtp":
		if ec.SMTPHost == "" {
			return errors.New("SMTP_HOST is required for SMTP provider")
		}
		if ec.SMTPPort <= 0 || ec.SMTPPort > 65535 {
			return fmt.Errorf("invalid SMTP_PORT: %d (must be 1-65535)", ec.SMTPPort)
		}
	case "ses":
		if ec.SESRegion == "" {
			return errors.New("SES_REGION is required for SES provider")
		}
	default:
		return fmt.Errorf("unsupported email provider: %s", ec.Provider)
	}

	return nil
}

// GetDatabaseURL returns the database connection string, preferring the URL
// form when set.
func (c *Config) GetDatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// IsProduction returns true when running in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func bindEnvVars() {
	viper.BindEnv("environment", "ENVIRONMENT")

	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("server.port", "SERVER_PORT")

	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.database", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")
	viper.BindEnv("database.auto_migrate", "DATABASE_AUTO_MIGRATE")

	viper.BindEnv("redis.url", "REDIS_URL")

	viper.BindEnv("notifications.site_url", "SITE_URL")
	viper.BindEnv("notifications.stream", "NOTIFICATIONS_STREAM")
	viper.BindEnv("notifications.group", "NOTIFICATIONS_GROUP")
	viper.BindEnv("notifications.dlq_stream", "NOTIFICATIONS_DLQ_STREAM")
	viper.BindEnv("notifications.max_retries", "NOTIFICATIONS_MAX_RETRIES")

	// Email (multi-provider: smtp, ses)
	viper.BindEnv("external.email.provider", "EMAIL_PROVIDER")
	viper.BindEnv("external.email.from_email", "EMAIL_FROM_EMAIL")
	viper.BindEnv("external.email.from_name", "EMAIL_FROM_NAME")
	viper.BindEnv("external.email.smtp_host", "SMTP_HOST")
	viper.BindEnv("external.email.smtp_port", "SMTP_PORT")
	viper.BindEnv("external.email.smtp_username", "SMTP_USERNAME")
	viper.BindEnv("external.email.smtp_password", "SMTP_PASSWORD")
	viper.BindEnv("external.email.smtp_use_tls", "SMTP_USE_TLS")
	viper.BindEnv("external.email.ses_region", "SES_REGION")
	viper.BindEnv("external.email.ses_access_key", "SES_ACCESS_KEY")
	viper.BindEnv("external.email.ses_secret_key", "SES_SECRET_KEY")

	viper.BindEnv("monitoring.enabled", "METRICS_ENABLED")
	viper.BindEnv("monitoring.metrics_port", "METRICS_PORT")

	viper.BindEnv("logging.level", "LOG_LEVEL")
	viper.BindEnv("logging.format", "LOG_FORMAT")
}

func setDefaults() {
	viper.SetDefault("app.name", "OWASP Nest Notifications")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("environment", "development")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "nest")
	viper.SetDefault("database.database", "nest")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "1h")
	viper.SetDefault("database.auto_migrate", false)

	viper.SetDefault("redis.url", "redis://localhost:6379/0")

	viper.SetDefault("notifications.site_url", "https://nest.owasp.org")
	viper.SetDefault("notifications.stream", "owasp_notifications")
	viper.SetDefault("notifications.group", "notification_group")
	viper.SetDefault("notifications.dlq_stream", "owasp_notifications_dlq")
	viper.SetDefault("notifications.max_retries", 5)
	viper.SetDefault("notifications.base_delay", "2s")
	viper.SetDefault("notifications.delay_multiplier", 2)
	viper.SetDefault("notifications.read_block", "5s")
	viper.SetDefault("notifications.claim_min_idle", "5m")
	viper.SetDefault("notifications.claim_count", 10)
	viper.SetDefault("notifications.error_backoff", "1s")

	viper.SetDefault("external.email.provider", "smtp")
	viper.SetDefault("external.email.from_email", "noreply@owasp.org")
	viper.SetDefault("external.email.smtp_host", "localhost")
	viper.SetDefault("external.email.smtp_port", 25)
	viper.SetDefault("external.email.smtp_use_tls", false)

	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")
	viper.SetDefault("monitoring.metrics_port", 9090)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}
