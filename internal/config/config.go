package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// DefaultWebhookURL is the destination every session starts with.
const DefaultWebhookURL = "https://agentonline-u29564.vm.elestio.app/webhook-test/61e8b566-40c1-4925-940b-c6e74b9563cc"

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string `env:"DB_HOST"`
	Port               string `env:"DB_PORT" envDefault:"5432"`
	User               string `env:"DB_USER"`
	Password           string `env:"DB_PASSWORD"`
	Name               string `env:"DB_NAME"`
	SSLMode            string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns       int    `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns       int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetimeSec int    `env:"DB_CONN_MAX_LIFETIME_SEC" envDefault:"300"`
	PingAttempts       int    `env:"DB_PING_ATTEMPTS" envDefault:"5"`
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET"`
	UseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
}

// WebhookConfig controls outbound deliveries and document fetches.
type WebhookConfig struct {
	DefaultURL      string `env:"WEBHOOK_DEFAULT_URL"`
	TimeoutSec      int    `env:"WEBHOOK_TIMEOUT_SEC" envDefault:"30"`
	UserAgent       string `env:"WEBHOOK_USER_AGENT" envDefault:"Book-Buddy-Enhanced/1.1.0"`
	FetchTimeoutSec int    `env:"FETCH_TIMEOUT_SEC" envDefault:"30"`
}

// Timeout returns the delivery timeout as a duration.
func (w WebhookConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSec) * time.Second
}

// FetchTimeout returns the inbound fetch timeout as a duration.
func (w WebhookConfig) FetchTimeout() time.Duration {
	return time.Duration(w.FetchTimeoutSec) * time.Second
}

// SessionConfig bounds in-memory operator sessions.
type SessionConfig struct {
	IdleTTLSec  int `env:"SESSION_IDLE_TTL_SEC" envDefault:"3600"`
	MaxSessions int `env:"SESSION_MAX" envDefault:"500"`
}

// IdleTTL returns the idle expiry as a duration.
func (s SessionConfig) IdleTTL() time.Duration {
	return time.Duration(s.IdleTTLSec) * time.Second
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost               string `env:"APP_HOST" envDefault:"localhost:8080"`
	Port                  string `env:"PORT" envDefault:"8080"`
	TimeZone              string `env:"APP_TIMEZONE" envDefault:"UTC"`
	RenditionURLExpirySec int    `env:"RENDITION_URL_EXPIRY_SEC" envDefault:"900"`
	Database              DatabaseConfig
	MinIO                 MinIOConfig
	Webhook               WebhookConfig
	Session               SessionConfig
}

// Location resolves TimeZone, falling back to UTC when it is unknown.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Webhook.DefaultURL == "" {
		cfg.Webhook.DefaultURL = DefaultWebhookURL
	}
	if cfg.Webhook.TimeoutSec <= 0 {
		cfg.Webhook.TimeoutSec = 30
	}
	if cfg.Webhook.FetchTimeoutSec <= 0 {
		cfg.Webhook.FetchTimeoutSec = 30
	}
	return cfg, nil
}
