// Package email renders and sends transactional order emails.
package email

import (
	"context"
	"fmt"
)

type Provider interface {
	SendEmail(ctx context.Context, email *Email) error
	ValidateAPIKey(ctx context.Context) error
}

type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Config struct {
	Provider string
	APIKey   string
	From     string
}

func NewProvider(config Config) (Provider, error) {
	switch config.Provider {
	case "resend":
		return NewResendProvider(config.APIKey, config.From), nil
	case "noop", "":
		return NoopProvider{}, nil
	default:
		return nil, fmt.Errorf("EMAIL_PROVIDER must be either 'resend' or 'noop'")
	}
}

// NoopProvider drops every email. Used in development and in tests where a
// real delivery provider is not configured.
type NoopProvider struct{}

func (NoopProvider) SendEmail(_ context.Context, _ *Email) error { return nil }

func (NoopProvider) ValidateAPIKey(_ context.Context) error { return nil }
