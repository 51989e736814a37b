package cache

// Package cache provides shared key/value storage for webhook idempotency,
// cart snapshots, and checkout submission locks.

import (
	"context"
	"fmt"
	"time"
)

// Provider defines the interface for short-lived key/value storage.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// SetNX stores the value only if the key is absent and reports whether
	// it was stored. Used as the checkout double-submit lock.
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider()
	case "redis":
		return NewRedisProvider(cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

func WebhookKey(source, eventID string) string {
	return fmt.Sprintf("webhook:%s:%s", source, eventID)
}

// CartKey is the single well-known key a visitor's cart snapshot lives
// under. The snapshot is overwritten whole on every mutation.
func CartKey(cartID string) string {
	return fmt.Sprintf("cart:%s", cartID)
}

func CheckoutLockKey(cartID string) string {
	return fmt.Sprintf("checkout:lock:%s", cartID)
}
