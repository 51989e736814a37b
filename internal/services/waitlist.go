package services

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/mateabags/storefront/internal/email"
	"github.com/mateabags/storefront/internal/logging"
)

var ErrInvalidEmail = errors.New("invalid email address")

type waitlistStore interface {
	Add(ctx context.Context, email string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// WaitlistService gates the storefront until launch and collects signups
// while it is closed.
type WaitlistService struct {
	store    waitlistStore
	emails   email.Provider
	launchAt time.Time
	logger   *slog.Logger
	now      func() time.Time
}

func NewWaitlistService(store waitlistStore, emails email.Provider, launchAt time.Time, logger *slog.Logger) *WaitlistService {
	if emails == nil {
		emails = email.NoopProvider{}
	}
	return &WaitlistService{
		store:    store,
		emails:   emails,
		launchAt: launchAt,
		logger:   logger,
		now:      time.Now,
	}
}

// Launched reports whether the shop is open. A zero launch time means the
// shop launched immediately.
func (s *WaitlistService) Launched() bool {
	return s.launchAt.IsZero() || !s.now().Before(s.launchAt)
}

// LaunchAt returns the configured launch time, zero if none.
func (s *WaitlistService) LaunchAt() time.Time {
	return s.launchAt
}

// Join adds an email to the waitlist. Resubmitting the same email is not an
// error; Join reports whether the signup was new. A welcome email goes out
// best-effort on new signups only.
func (s *WaitlistService) Join(ctx context.Context, address string) (bool, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if _, err := mail.ParseAddress(address); err != nil {
		return false, ErrInvalidEmail
	}

	created, err := s.store.Add(ctx, address)
	if err != nil {
		return false, err
	}
	if created {
		s.sendWelcome(ctx, address)
	}
	return created, nil
}

func (s *WaitlistService) sendWelcome(ctx context.Context, address string) {
	msg := &email.Email{
		To:      address,
		Subject: "You're on the Mateabags waitlist",
		Text:    "Thanks for signing up! We'll email you the moment the shop opens.",
	}
	if err := s.emails.SendEmail(ctx, msg); err != nil {
		logging.FromContext(ctx, s.logger).Warn("failed to send waitlist welcome email", "error", err)
	}
}

func (s *WaitlistService) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}
