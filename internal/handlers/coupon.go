package handlers

import (
	"net/http"

	"github.com/mateabags/storefront/internal/cart"
)

// CartApplyCoupon validates a code against the current subtotal and records
// the discount on the snapshot. The checkout pipeline re-validates the code
// server-side at submission time regardless of what happens here.
func (h *Handlers) CartApplyCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, ctx, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}
	if req.Code == "" {
		h.respondError(w, ctx, http.StatusBadRequest, codeValidation, "a coupon code is required")
		return
	}

	sess, state, ok := h.loadCart(w, r)
	if !ok {
		return
	}
	if state.IsEmpty() {
		h.respondError(w, ctx, http.StatusUnprocessableEntity, codeCartEmpty, "cart is empty")
		return
	}

	result, err := h.couponValidator.Validate(ctx, req.Code, state.SubtotalCents)
	if err != nil {
		h.loggerFromContext(ctx).Error("coupon validation failed", "code", req.Code, "error", err)
		h.respondError(w, ctx, http.StatusInternalServerError, codeInternal, "coupon validation unavailable")
		return
	}
	if !result.Valid {
		h.respondError(w, ctx, http.StatusUnprocessableEntity, codeCouponRejected, result.Message)
		return
	}

	state = cart.ApplyDiscount(state, result.DiscountCents, result.Code)
	if err := h.cartStore.Save(ctx, sess.CartID, state); err != nil {
		h.loggerFromContext(ctx).Error("failed to save cart", "cart_id", sess.CartID, "error", err)
		h.respondError(w, ctx, http.StatusInternalServerError, codeInternal, "failed to save cart")
		return
	}

	h.respondData(w, ctx, http.StatusOK, map[string]any{
		"cart":   state,
		"coupon": result,
	})
}

func (h *Handlers) CartRemoveCoupon(w http.ResponseWriter, r *http.Request) {
	sess, state, ok := h.loadCart(w, r)
	if !ok {
		return
	}

	h.saveCart(w, r, sess, cart.RemoveDiscount(state))
}
