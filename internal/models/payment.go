package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus tracks the payment-provider session/intent independently of
// the order status. The webhook processors keep the two consistent.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentSucceeded  PaymentStatus = "succeeded"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
	PaymentRefunded   PaymentStatus = "refunded"
	PaymentDisputed   PaymentStatus = "disputed"
)

type Payment struct {
	ID                      uuid.UUID     `json:"id"`
	OrderID                 uuid.UUID     `json:"order_id"`
	AmountCents             int           `json:"amount_cents"`
	Currency                string        `json:"currency"`
	Status                  PaymentStatus `json:"status"`
	StripeCheckoutSessionID string        `json:"stripe_checkout_session_id,omitempty"`
	StripePaymentIntentID   string        `json:"stripe_payment_intent_id,omitempty"`
	StripeChargeID          string        `json:"stripe_charge_id,omitempty"`
	PaymentMethodType       string        `json:"payment_method_type,omitempty"`
	CardBrand               string        `json:"card_brand,omitempty"`
	CardLast4               string        `json:"card_last4,omitempty"`
	RefundedCents           int           `json:"refunded_cents,omitempty"`
	RefundedAt              time.Time     `json:"refunded_at,omitempty"`
	CreatedAt               time.Time     `json:"created_at"`
	UpdatedAt               time.Time     `json:"updated_at"`
}

// PaymentAttempt is an append-only log entry for failed charge attempts.
type PaymentAttempt struct {
	ID                    uuid.UUID `json:"id"`
	OrderID               uuid.UUID `json:"order_id"`
	PaymentID             uuid.UUID `json:"payment_id"`
	StripePaymentIntentID string    `json:"stripe_payment_intent_id"`
	FailureCode           string    `json:"failure_code"`
	FailureMessage        string    `json:"failure_message"`
	CreatedAt             time.Time `json:"created_at"`
}
