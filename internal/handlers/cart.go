package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mateabags/storefront/internal/cart"
	"github.com/mateabags/storefront/internal/session"
)

// CartView returns the visitor's cart snapshot, creating the session on
// first contact.
func (h *Handlers) CartView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	_, state, ok := h.loadCart(w, r)
	if !ok {
		return
	}

	h.respondData(w, ctx, http.StatusOK, state)
}

func (h *Handlers) CartAddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, ctx, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	product := h.catalog.FindProduct(req.ProductID)
	if product == nil || !product.Active {
		h.respondError(w, ctx, http.StatusUnprocessableEntity, codeProductUnavailable, "product is not available")
		return
	}

	sess, state, ok := h.loadCart(w, r)
	if !ok {
		return
	}

	state = cart.AddLine(state, *product, req.Quantity, product.Image)
	h.saveCart(w, r, sess, state)
}

func (h *Handlers) CartSetQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, ctx, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	sess, state, ok := h.loadCart(w, r)
	if !ok {
		return
	}

	state = cart.SetQuantity(state, mux.Vars(r)["productID"], req.Quantity)
	h.saveCart(w, r, sess, state)
}

func (h *Handlers) CartRemoveItem(w http.ResponseWriter, r *http.Request) {
	sess, state, ok := h.loadCart(w, r)
	if !ok {
		return
	}

	state = cart.RemoveLine(state, mux.Vars(r)["productID"])
	h.saveCart(w, r, sess, state)
}

func (h *Handlers) CartClear(w http.ResponseWriter, r *http.Request) {
	sess, state, ok := h.loadCart(w, r)
	if !ok {
		return
	}

	h.saveCart(w, r, sess, cart.Clear(state))
}

func (h *Handlers) loadCart(w http.ResponseWriter, r *http.Request) (*session.Data, cart.State, bool) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	sess, err := h.ensureSession(w, r)
	if err != nil {
		logger.Error("failed to establish session", "error", err)
		h.respondError(w, ctx, http.StatusInternalServerError, codeInternal, "failed to establish session")
		return nil, cart.Empty(), false
	}

	state, err := h.cartStore.Load(ctx, sess.CartID)
	if err != nil {
		logger.Error("failed to load cart", "cart_id", sess.CartID, "error", err)
		h.respondError(w, ctx, http.StatusInternalServerError, codeInternal, "failed to load cart")
		return nil, cart.Empty(), false
	}
	return sess, state, true
}

// saveCart persists the mutated snapshot and echoes it back. Shipping rides
// along: the flat rate applies while the cart has lines, zero once empty.
func (h *Handlers) saveCart(w http.ResponseWriter, r *http.Request, sess *session.Data, state cart.State) {
	ctx := r.Context()

	shipping := 0
	if !state.IsEmpty() {
		shipping = h.catalog.ShippingCents()
	}
	state = cart.SetShipping(state, shipping)

	if err := h.cartStore.Save(ctx, sess.CartID, state); err != nil {
		h.loggerFromContext(ctx).Error("failed to save cart", "cart_id", sess.CartID, "error", err)
		h.respondError(w, ctx, http.StatusInternalServerError, codeInternal, "failed to save cart")
		return
	}

	h.respondData(w, ctx, http.StatusOK, state)
}
