package models

import (
	"time"

	"github.com/google/uuid"
)

type CouponKind string

const (
	CouponAmount  CouponKind = "amount"
	CouponPercent CouponKind = "percent"
)

type Coupon struct {
	ID               uuid.UUID  `json:"id"`
	Code             string     `json:"code"`
	Description      string     `json:"description,omitempty"`
	Kind             CouponKind `json:"kind"`
	Value            int        `json:"value"`
	Active           bool       `json:"active"`
	MinSubtotalCents int        `json:"min_subtotal_cents,omitempty"`
	UsageLimit       int        `json:"usage_limit,omitempty"`
	TimesRedeemed    int        `json:"times_redeemed"`
	StartsAt         *time.Time `json:"starts_at,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
