package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

const (
	PaymentModeStripe   = "stripe"
	PaymentModeSimulate = "simulate"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	BaseURL     string `env:"BASE_URL,required" validate:"required,url"`

	CatalogPath     string `env:"CATALOG_PATH" envDefault:"products.yaml" validate:"required"`
	DefaultCurrency string `env:"DEFAULT_CURRENCY" envDefault:"EUR" validate:"oneof=EUR USD"`

	PaymentMode         string `env:"PAYMENT_MODE" envDefault:"stripe" validate:"oneof=stripe simulate"`
	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	SessionStoreProvider  string `env:"SESSION_STORE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis,required_if=SessionStoreProvider redis"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	EmailFrom    string `env:"EMAIL_FROM" envDefault:"Mateabags <pedidos@mateabags.com>"`

	AdminEmail        string `env:"ADMIN_EMAIL" validate:"omitempty,email"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`
	JWTSigningKey     string `env:"JWT_SIGNING_KEY" validate:"required_with=AdminEmail,omitempty,min=32"`

	LaunchAt string `env:"LAUNCH_AT"`

	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"5m"`
	PaymentWindow     time.Duration `env:"PAYMENT_WINDOW" envDefault:"30m"`

	SentryDSN string `env:"SENTRY_DSN"`

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

	if c.PaymentMode == PaymentModeStripe {
		if strings.TrimSpace(c.StripeSecretKey) == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required when PAYMENT_MODE is stripe")
		}
		if strings.TrimSpace(c.StripeWebhookSecret) == "" {
			return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required when PAYMENT_MODE is stripe")
		}
	}

	hasAdminEmail := strings.TrimSpace(c.AdminEmail) != ""
	hasAdminHash := strings.TrimSpace(c.AdminPasswordHash) != ""
	if hasAdminEmail != hasAdminHash {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD_HASH must be set together")
	}

	if _, err := c.LaunchTime(); err != nil {
		return err
	}

	parsed, err := url.Parse(strings.TrimSpace(c.BaseURL))
	if err != nil || parsed.Hostname() == "" {
		return fmt.Errorf("BASE_URL must be a valid absolute URL")
	}
	if !isLocalHost(parsed.Hostname()) && !strings.EqualFold(parsed.Scheme, "https") {
		return fmt.Errorf("BASE_URL must use https outside local development")
	}

	return nil
}

// LaunchTime parses LAUNCH_AT. A zero time means the storefront launched
// immediately and the waitlist gate is open.
func (c *Config) LaunchTime() (time.Time, error) {
	raw := strings.TrimSpace(c.LaunchAt)
	if raw == "" {
		return time.Time{}, nil
	}
	launch, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("LAUNCH_AT must be RFC3339: %w", err)
	}
	return launch, nil
}

func isLocalHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
