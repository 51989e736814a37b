package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/mateabags/storefront/internal/db"
	"github.com/mateabags/storefront/internal/models"
)

type orderSummary struct {
	OrderID    uuid.UUID          `json:"order_id"`
	Status     models.OrderStatus `json:"status"`
	TotalCents int                `json:"total_cents"`
	Currency   string             `json:"currency"`
	Items      []models.OrderItem `json:"items,omitempty"`
}

// CheckoutSuccess is where Stripe sends the customer back after paying. The
// webhook remains the source of truth for the order status; this endpoint
// only shows the current state and releases the session's pending marker.
func (h *Handlers) CheckoutSuccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, ok := h.orderIDFromQuery(w, r)
	if !ok {
		return
	}

	details, err := h.orderStore.GetDetails(ctx, orderID)
	if errors.Is(err, db.ErrNotFound) {
		h.respondError(w, ctx, http.StatusNotFound, codeOrderNotFound, "order not found")
		return
	}
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to load order for success page", "order_id", orderID, "error", err)
		h.respondError(w, ctx, http.StatusInternalServerError, codeInternal, "failed to load order")
		return
	}

	h.clearPendingOrder(r, orderID)

	h.respondData(w, ctx, http.StatusOK, orderSummary{
		OrderID:    details.Order.ID,
		Status:     details.Order.Status,
		TotalCents: details.Order.TotalCents,
		Currency:   details.Order.Currency,
		Items:      details.Items,
	})
}

// CheckoutCancel handles the customer backing out of the hosted payment
// page. Cancellation is best-effort: a concurrent paid webhook wins the race
// and the response simply reports the order as paid.
func (h *Handlers) CheckoutCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	orderID, ok := h.orderIDFromQuery(w, r)
	if !ok {
		return
	}

	order, err := h.orderStore.GetByID(ctx, orderID)
	if errors.Is(err, db.ErrNotFound) {
		h.respondError(w, ctx, http.StatusNotFound, codeOrderNotFound, "order not found")
		return
	}
	if err != nil {
		logger.Error("failed to load order for cancel page", "order_id", orderID, "error", err)
		h.respondError(w, ctx, http.StatusInternalServerError, codeInternal, "failed to load order")
		return
	}

	if order.Status == models.StatusPending {
		if cancelErr := h.orderStore.Cancel(ctx, orderID); cancelErr == nil {
			order.Status = models.StatusCancelled
			h.cancelPayment(r, orderID)
		} else if !errors.Is(cancelErr, db.ErrInvalidStatusTransition) {
			logger.Error("failed to cancel order", "order_id", orderID, "error", cancelErr)
		} else if current, err := h.orderStore.GetByID(ctx, orderID); err == nil {
			order = current
		}
	}

	h.clearPendingOrder(r, orderID)

	h.respondData(w, ctx, http.StatusOK, orderSummary{
		OrderID:    order.ID,
		Status:     order.Status,
		TotalCents: order.TotalCents,
		Currency:   order.Currency,
	})
}

// orderIDFromQuery requires an explicit order_id; it is never guessed from
// the session.
func (h *Handlers) orderIDFromQuery(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.URL.Query().Get("order_id")
	if raw == "" {
		h.respondError(w, r.Context(), http.StatusBadRequest, codeOrderNotFound, "order_id is required")
		return uuid.Nil, false
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		h.respondError(w, r.Context(), http.StatusBadRequest, codeOrderNotFound, "order_id is not valid")
		return uuid.Nil, false
	}
	return orderID, true
}

func (h *Handlers) cancelPayment(r *http.Request, orderID uuid.UUID) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	payment, err := h.paymentStore.GetByOrderID(ctx, orderID)
	if errors.Is(err, db.ErrNotFound) {
		return
	}
	if err != nil {
		logger.Error("failed to load payment for cancelled order", "order_id", orderID, "error", err)
		return
	}
	if err := h.paymentStore.MarkCancelled(ctx, payment.ID); err != nil && !errors.Is(err, db.ErrInvalidStatusTransition) {
		logger.Error("failed to cancel payment", "payment_id", payment.ID, "error", err)
	}
}

func (h *Handlers) clearPendingOrder(r *http.Request, orderID uuid.UUID) {
	ctx := r.Context()

	sess, err := h.sessionManager.GetSession(ctx, r)
	if err != nil || sess.PendingOrderID != orderID {
		return
	}

	sess.PendingOrderID = uuid.Nil
	sess.PendingOrderSetAt = 0
	if err := h.sessionManager.UpdateSession(ctx, r, sess); err != nil {
		h.loggerFromContext(ctx).Error("failed to clear pending order from session", "order_id", orderID, "error", err)
	}
}
