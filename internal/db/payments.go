package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mateabags/storefront/internal/models"
)

type PaymentStore struct {
	pool *pgxpool.Pool
}

func NewPaymentStore(pool *pgxpool.Pool) *PaymentStore {
	return &PaymentStore{pool: pool}
}

func (s *PaymentStore) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (order_id, amount_cents, currency, status, stripe_checkout_session_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	if payment.Status == "" {
		payment.Status = models.PaymentPending
	}
	return s.pool.QueryRow(ctx, query,
		payment.OrderID,
		payment.AmountCents,
		payment.Currency,
		string(payment.Status),
		textOrNull(payment.StripeCheckoutSessionID),
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
}

func (s *PaymentStore) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	query := selectPayment + ` WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1`
	return s.getPayment(ctx, query, orderID)
}

func (s *PaymentStore) GetBySessionID(ctx context.Context, sessionID string) (*models.Payment, error) {
	query := selectPayment + ` WHERE stripe_checkout_session_id = $1`
	return s.getPayment(ctx, query, sessionID)
}

func (s *PaymentStore) GetByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	query := selectPayment + ` WHERE stripe_payment_intent_id = $1`
	return s.getPayment(ctx, query, intentID)
}

func (s *PaymentStore) GetByChargeID(ctx context.Context, chargeID string) (*models.Payment, error) {
	query := selectPayment + ` WHERE stripe_charge_id = $1`
	return s.getPayment(ctx, query, chargeID)
}

func (s *PaymentStore) getPayment(ctx context.Context, query string, args ...any) (*models.Payment, error) {
	payment, err := scanPayment(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("payment: %w", ErrNotFound)
	}
	return payment, err
}

// SetIntentID attaches the payment intent once the checkout session reports
// it. Unconditional: the intent never changes once Stripe assigns it.
func (s *PaymentStore) SetIntentID(ctx context.Context, paymentID uuid.UUID, intentID string) error {
	query := `
		UPDATE payments
		SET stripe_payment_intent_id = $1, updated_at = NOW()
		WHERE id = $2
	`
	_, err := s.pool.Exec(ctx, query, intentID, paymentID)
	return err
}

func (s *PaymentStore) MarkProcessing(ctx context.Context, paymentID uuid.UUID) error {
	query := `
		UPDATE payments
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending'
	`
	return s.transition(ctx, query, "pending", models.PaymentProcessing, paymentID)
}

// MarkSucceeded records the charge details captured from the webhook payload.
func (s *PaymentStore) MarkSucceeded(ctx context.Context, paymentID uuid.UUID, chargeID, methodType, cardBrand, cardLast4 string) error {
	query := `
		UPDATE payments
		SET status = $1, stripe_charge_id = $3, payment_method_type = $4,
		    card_brand = $5, card_last4 = $6, updated_at = NOW()
		WHERE id = $2 AND status IN ('pending', 'processing')
	`
	cmdTag, err := s.pool.Exec(ctx, query, string(models.PaymentSucceeded), paymentID,
		textOrNull(chargeID), textOrNull(methodType), textOrNull(cardBrand), textOrNull(cardLast4))
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected pending/processing", ErrInvalidStatusTransition)
	}
	return nil
}

func (s *PaymentStore) MarkFailed(ctx context.Context, paymentID uuid.UUID) error {
	query := `
		UPDATE payments
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ('pending', 'processing')
	`
	return s.transition(ctx, query, "pending/processing", models.PaymentFailed, paymentID)
}

func (s *PaymentStore) MarkCancelled(ctx context.Context, paymentID uuid.UUID) error {
	query := `
		UPDATE payments
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ('pending', 'processing', 'failed')
	`
	return s.transition(ctx, query, "pending/processing/failed", models.PaymentCancelled, paymentID)
}

func (s *PaymentStore) MarkRefunded(ctx context.Context, paymentID uuid.UUID, refundedCents int) error {
	query := `
		UPDATE payments
		SET status = $1, refunded_cents = $3, refunded_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND status IN ('succeeded', 'disputed')
	`
	cmdTag, err := s.pool.Exec(ctx, query, string(models.PaymentRefunded), paymentID, refundedCents)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected succeeded/disputed", ErrInvalidStatusTransition)
	}
	return nil
}

func (s *PaymentStore) MarkDisputed(ctx context.Context, paymentID uuid.UUID) error {
	query := `
		UPDATE payments
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'succeeded'
	`
	return s.transition(ctx, query, "succeeded", models.PaymentDisputed, paymentID)
}

func (s *PaymentStore) transition(ctx context.Context, query, expected string, to models.PaymentStatus, paymentID uuid.UUID) error {
	cmdTag, err := s.pool.Exec(ctx, query, string(to), paymentID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected %s", ErrInvalidStatusTransition, expected)
	}
	return nil
}

// RecordAttempt appends a failed charge attempt to the audit log.
func (s *PaymentStore) RecordAttempt(ctx context.Context, attempt *models.PaymentAttempt) error {
	query := `
		INSERT INTO payment_attempts (order_id, payment_id, stripe_payment_intent_id, failure_code, failure_message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	return s.pool.QueryRow(ctx, query,
		attempt.OrderID,
		attempt.PaymentID,
		textOrNull(attempt.StripePaymentIntentID),
		textOrNull(attempt.FailureCode),
		textOrNull(attempt.FailureMessage),
	).Scan(&attempt.ID, &attempt.CreatedAt)
}

const selectPayment = `
	SELECT id, order_id, amount_cents, currency, status, stripe_checkout_session_id,
	       stripe_payment_intent_id, stripe_charge_id, payment_method_type, card_brand,
	       card_last4, refunded_cents, refunded_at, created_at, updated_at
	FROM payments`

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var (
		p                                                       models.Payment
		status                                                  string
		sessionID, intentID, chargeID, methodType, brand, last4 pgtype.Text
		refundedAt                                              pgtype.Timestamptz
	)
	err := row.Scan(
		&p.ID, &p.OrderID, &p.AmountCents, &p.Currency, &status, &sessionID,
		&intentID, &chargeID, &methodType, &brand, &last4,
		&p.RefundedCents, &refundedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = models.PaymentStatus(status)
	p.StripeCheckoutSessionID = sessionID.String
	p.StripePaymentIntentID = intentID.String
	p.StripeChargeID = chargeID.String
	p.PaymentMethodType = methodType.String
	p.CardBrand = brand.String
	p.CardLast4 = last4.String
	if refundedAt.Valid {
		p.RefundedAt = refundedAt.Time
	}
	return &p, nil
}
