package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mateabags/storefront/internal/coupon"
	"github.com/mateabags/storefront/internal/models"
)

// CouponStore is the authoritative coupon.Source.
type CouponStore struct {
	pool *pgxpool.Pool
}

func NewCouponStore(pool *pgxpool.Pool) *CouponStore {
	return &CouponStore{pool: pool}
}

func (s *CouponStore) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	query := `
		SELECT id, code, description, kind, value, active, min_subtotal_cents,
		       usage_limit, times_redeemed, starts_at, expires_at, created_at
		FROM coupons
		WHERE code = $1
	`
	var (
		c                   models.Coupon
		kind                string
		description         pgtype.Text
		startsAt, expiresAt pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx, query, strings.ToUpper(strings.TrimSpace(code))).Scan(
		&c.ID, &c.Code, &description, &kind, &c.Value, &c.Active, &c.MinSubtotalCents,
		&c.UsageLimit, &c.TimesRedeemed, &startsAt, &expiresAt, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, coupon.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Kind = models.CouponKind(kind)
	c.Description = description.String
	if startsAt.Valid {
		t := startsAt.Time
		c.StartsAt = &t
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		c.ExpiresAt = &t
	}
	return &c, nil
}

// IncrementUsage bumps the redemption counter without exceeding the limit.
// A zero usage_limit means unlimited.
func (s *CouponStore) IncrementUsage(ctx context.Context, couponID uuid.UUID) error {
	query := `
		UPDATE coupons
		SET times_redeemed = times_redeemed + 1
		WHERE id = $1 AND (usage_limit = 0 OR times_redeemed < usage_limit)
	`
	cmdTag, err := s.pool.Exec(ctx, query, couponID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("coupon %s: usage limit reached", couponID)
	}
	return nil
}

// RecordRedemption links the coupon to the order it discounted.
func (s *CouponStore) RecordRedemption(ctx context.Context, orderID, couponID uuid.UUID, discountCents int) error {
	query := `
		INSERT INTO order_coupons (order_id, coupon_id, discount_cents)
		VALUES ($1, $2, $3)
	`
	_, err := s.pool.Exec(ctx, query, orderID, couponID, discountCents)
	return err
}
