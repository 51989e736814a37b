package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mateabags/storefront/internal/cache"
	"github.com/mateabags/storefront/internal/models"
	"github.com/mateabags/storefront/internal/services"
	"github.com/mateabags/storefront/internal/session"
)

var checkoutPayloadValidator = validator.New()

// checkoutLockTTL bounds how long a submission can hold the per-cart lock.
const checkoutLockTTL = time.Minute

type checkoutRequest struct {
	Customer    services.CustomerInput `json:"customer"`
	Address     services.AddressInput  `json:"address"`
	Note        string                 `json:"note"`
	IsGift      bool                   `json:"is_gift"`
	GiftMessage string                 `json:"gift_message"`
}

type checkoutResponse struct {
	OrderID     uuid.UUID `json:"order_id"`
	CheckoutURL string    `json:"checkout_url"`
	TotalCents  int       `json:"total_cents"`
	Simulated   bool      `json:"simulated,omitempty"`
}

// CheckoutSubmit turns the visitor's cart into a pending order and a payment
// session. Two guards sit in front of the pipeline: the session's pending
// order marker and a cache lock on the cart ID against concurrent submits.
func (h *Handlers) CheckoutSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if !h.waitlistService.Launched() {
		h.respondError(w, ctx, http.StatusForbidden, codeNotLaunched, "the shop has not launched yet")
		return
	}

	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, ctx, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}
	if err := checkoutPayloadValidator.Struct(req); err != nil {
		h.respondError(w, ctx, http.StatusBadRequest, codeValidation, "customer email and shipping address are required")
		return
	}

	sess, err := h.ensureSession(w, r)
	if err != nil {
		logger.Error("failed to establish session", "error", err)
		h.respondError(w, ctx, http.StatusInternalServerError, codeInternal, "failed to establish session")
		return
	}

	if h.pendingOrderActive(r, sess) {
		h.respondError(w, ctx, http.StatusConflict, codeCheckoutInFlight, "an order from this cart is already awaiting payment")
		return
	}

	lockKey := cache.CheckoutLockKey(sess.CartID)
	locked, err := h.cacheProvider.SetNX(ctx, lockKey, "locked", checkoutLockTTL)
	if err != nil {
		logger.Error("failed to acquire checkout lock", "cart_id", sess.CartID, "error", err)
		h.respondError(w, ctx, http.StatusInternalServerError, codeInternal, "checkout is unavailable")
		return
	}
	if !locked {
		h.respondError(w, ctx, http.StatusConflict, codeCheckoutInFlight, "a checkout for this cart is already in flight")
		return
	}
	defer func() {
		if err := h.cacheProvider.Delete(ctx, lockKey); err != nil {
			logger.Error("failed to release checkout lock", "cart_id", sess.CartID, "error", err)
		}
	}()

	state, err := h.cartStore.Load(ctx, sess.CartID)
	if err != nil {
		logger.Error("failed to load cart", "cart_id", sess.CartID, "error", err)
		h.respondError(w, ctx, http.StatusInternalServerError, codeInternal, "failed to load cart")
		return
	}

	result, err := h.checkoutService.Submit(ctx, services.SubmitInput{
		Cart:        state,
		Customer:    req.Customer,
		Address:     req.Address,
		Note:        req.Note,
		IsGift:      req.IsGift,
		GiftMessage: req.GiftMessage,
	})
	if err != nil {
		h.respondSubmitError(w, r, err)
		return
	}

	// The cart and the pending-order marker only change after the pipeline
	// succeeded; a failed submit leaves the cart intact for a retry.
	if err := h.cartStore.Delete(ctx, sess.CartID); err != nil {
		logger.Error("failed to clear cart after checkout", "cart_id", sess.CartID, "error", err)
	}
	sess.PendingOrderID = result.Order.ID
	sess.PendingOrderSetAt = time.Now().Unix()
	if err := h.sessionManager.UpdateSession(ctx, r, sess); err != nil {
		logger.Error("failed to record pending order on session", "order_id", result.Order.ID, "error", err)
	}

	h.respondData(w, ctx, http.StatusOK, checkoutResponse{
		OrderID:     result.Order.ID,
		CheckoutURL: result.RedirectURL,
		TotalCents:  result.Order.TotalCents,
		Simulated:   result.Simulated,
	})
}

// pendingOrderActive reports whether the session already points at an order
// still inside its payment window. A paid, cancelled, or expired order frees
// the session for a new submission.
func (h *Handlers) pendingOrderActive(r *http.Request, sess *session.Data) bool {
	if sess.PendingOrderID == uuid.Nil {
		return false
	}

	order, err := h.orderStore.GetByID(r.Context(), sess.PendingOrderID)
	if err != nil {
		return false
	}
	if order.Status != models.StatusPending {
		return false
	}
	return order.PaymentDeadline.IsZero() || time.Now().Before(order.PaymentDeadline)
}

func (h *Handlers) respondSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	switch {
	case errors.Is(err, services.ErrEmptyCart):
		h.respondError(w, ctx, http.StatusUnprocessableEntity, codeCartEmpty, "cart is empty")
	case errors.Is(err, services.ErrProductUnavailable):
		h.respondError(w, ctx, http.StatusUnprocessableEntity, codeProductUnavailable, "a product in the cart is no longer available")
	case errors.Is(err, services.ErrCouponRejected):
		h.respondError(w, ctx, http.StatusUnprocessableEntity, codeCouponRejected, "the applied coupon is no longer valid")
	default:
		h.loggerFromContext(ctx).Error("checkout submission failed", "error", err)
		h.respondError(w, ctx, http.StatusInternalServerError, codeInternal, "checkout failed")
	}
}
