package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mateabags/storefront/internal/db"
	"github.com/mateabags/storefront/internal/models"
)

type reconcilerOrderStore interface {
	CancelExpired(ctx context.Context) ([]uuid.UUID, error)
}

type reconcilerPaymentStore interface {
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	MarkCancelled(ctx context.Context, paymentID uuid.UUID) error
}

// Reconciler is the safety net under the webhook flow: on a timer it cancels
// pending orders whose payment deadline has passed, covering the case where
// Stripe's expiry event never arrived.
type Reconciler struct {
	orders   reconcilerOrderStore
	payments reconcilerPaymentStore
	interval time.Duration
	logger   *slog.Logger
}

func NewReconciler(orders reconcilerOrderStore, payments reconcilerPaymentStore, interval time.Duration, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		orders:   orders,
		payments: payments,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until the context is cancelled, reconciling once per interval.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ReconcileOnce(ctx)
		}
	}
}

// ReconcileOnce cancels every expired pending order and its payment.
func (r *Reconciler) ReconcileOnce(ctx context.Context) {
	cancelled, err := r.orders.CancelExpired(ctx)
	if err != nil {
		r.logger.Error("failed to cancel expired orders", "error", err)
		return
	}
	if len(cancelled) == 0 {
		return
	}

	for _, orderID := range cancelled {
		payment, err := r.payments.GetByOrderID(ctx, orderID)
		if errors.Is(err, db.ErrNotFound) {
			continue
		}
		if err != nil {
			r.logger.Error("failed to get payment for expired order", "order_id", orderID, "error", err)
			continue
		}
		if err := r.payments.MarkCancelled(ctx, payment.ID); err != nil && !errors.Is(err, db.ErrInvalidStatusTransition) {
			r.logger.Error("failed to cancel payment for expired order", "order_id", orderID, "payment_id", payment.ID, "error", err)
		}
	}

	r.logger.Info("cancelled expired pending orders", "count", len(cancelled))
}
