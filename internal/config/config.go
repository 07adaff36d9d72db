package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY,required" validate:"required"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required" validate:"required"`

	// Identity provider settings. Authentication is delegated entirely to the
	// provider; Velora only completes the authorization-code flow and keeps a
	// session cookie.
	AuthIssuerURL    string   `env:"AUTH_ISSUER_URL" validate:"omitempty,url"`
	AuthClientID     string   `env:"AUTH_CLIENT_ID"`
	AuthClientSecret string   `env:"AUTH_CLIENT_SECRET"`
	AdminEmails      []string `env:"ADMIN_EMAILS" envSeparator:","`

	BaseURL string `env:"BASE_URL" validate:"omitempty,url"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	SessionStoreProvider  string `env:"SESSION_STORE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis,required_if=SessionStoreProvider redis"`

	EncryptionKey string `env:"ENCRYPTION_KEY,required" validate:"required,len=32"`

	EmailProvider string `env:"EMAIL_PROVIDER" envDefault:"resend" validate:"omitempty,oneof=resend postmark mailgun"`
	EmailAPIKey   string `env:"EMAIL_API_KEY"`
	EmailFrom     string `env:"EMAIL_FROM" validate:"omitempty,email"`
	EmailDomain   string `env:"EMAIL_DOMAIN"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	hasAuthClientID := strings.TrimSpace(c.AuthClientID) != ""
	hasAuthClientSecret := strings.TrimSpace(c.AuthClientSecret) != ""
	if hasAuthClientID != hasAuthClientSecret {
		return fmt.Errorf("AUTH_CLIENT_ID and AUTH_CLIENT_SECRET must be set together")
	}
	if hasAuthClientID && strings.TrimSpace(c.AuthIssuerURL) == "" {
		return fmt.Errorf("AUTH_ISSUER_URL is required when login is enabled")
	}

	baseURL := strings.TrimSpace(c.BaseURL)
	if hasAuthClientID && baseURL == "" {
		return fmt.Errorf("BASE_URL is required when login is enabled")
	}

	if baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Hostname() == "" {
			return fmt.Errorf("BASE_URL must be a valid absolute URL")
		}
		if !isLocalHost(parsed.Hostname()) && !strings.EqualFold(parsed.Scheme, "https") {
			return fmt.Errorf("BASE_URL must use https outside local development")
		}
	}

	return nil
}

func isLocalHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
