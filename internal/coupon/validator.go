// Package coupon validates discount codes against a cart subtotal.
package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mateabags/storefront/internal/models"
)

// ErrNotFound is returned by a Source when no coupon matches the code.
var ErrNotFound = errors.New("coupon not found")

// Source resolves an active coupon by its upper-cased code. The Postgres
// coupon store is the authoritative implementation; validation always runs
// server-side at order-submission time regardless of what the client saw.
type Source interface {
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
}

// Result is the outcome of validating a code against a subtotal. It is
// transient: nothing here is persisted beyond the active checkout.
type Result struct {
	Valid         bool              `json:"valid"`
	DiscountCents int               `json:"discount_cents"`
	Code          string            `json:"code,omitempty"`
	Kind          models.CouponKind `json:"kind,omitempty"`
	NewTotalCents int               `json:"new_total_cents"`
	Message       string            `json:"message,omitempty"`
}

type Validator struct {
	source Source
	now    func() time.Time
}

func NewValidator(source Source) *Validator {
	return &Validator{
		source: source,
		now:    time.Now,
	}
}

// Validate checks a code against a subtotal. A blank code is the no-coupon
// case: valid with zero effect, and no source call is made. Source failures
// come back as an invalid result plus the error, never as a panic.
func (v *Validator) Validate(ctx context.Context, code string, subtotalCents int) (Result, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return Result{
			Valid:         true,
			DiscountCents: 0,
			NewTotalCents: subtotalCents,
		}, nil
	}

	c, err := v.source.GetByCode(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return invalid(code, subtotalCents, "coupon not found"), nil
	}
	if err != nil {
		return invalid(code, subtotalCents, "coupon validation unavailable"), fmt.Errorf("coupon lookup failed: %w", err)
	}

	if !c.Active {
		return invalid(code, subtotalCents, "coupon is not active"), nil
	}
	if !WindowOpen(c.StartsAt, c.ExpiresAt, v.now()) {
		return invalid(code, subtotalCents, "coupon is outside its validity window"), nil
	}
	if c.UsageLimit > 0 && c.TimesRedeemed >= c.UsageLimit {
		return invalid(code, subtotalCents, "coupon usage limit reached"), nil
	}
	if c.MinSubtotalCents > 0 && subtotalCents < c.MinSubtotalCents {
		return invalid(code, subtotalCents, "order subtotal below coupon minimum"), nil
	}

	discount := discountCents(c, subtotalCents)
	return Result{
		Valid:         true,
		DiscountCents: discount,
		Code:          c.Code,
		Kind:          c.Kind,
		NewTotalCents: subtotalCents - discount,
	}, nil
}

// WindowOpen reports whether now falls inside the coupon's activity window.
// It is the local advisory gate; the source remains authoritative.
func WindowOpen(startsAt, expiresAt *time.Time, now time.Time) bool {
	if startsAt != nil && now.Before(*startsAt) {
		return false
	}
	if expiresAt != nil && now.After(*expiresAt) {
		return false
	}
	return true
}

func discountCents(c *models.Coupon, subtotalCents int) int {
	var discount int
	switch c.Kind {
	case models.CouponPercent:
		discount = subtotalCents * c.Value / 100
	default:
		discount = c.Value
	}
	if discount > subtotalCents {
		discount = subtotalCents
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

func invalid(code string, subtotalCents int, message string) Result {
	return Result{
		Valid:         false,
		Code:          code,
		NewTotalCents: subtotalCents,
		Message:       message,
	}
}
