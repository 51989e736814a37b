package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes surfaced in the API envelope. Raw internal errors never reach
// clients.
const (
	codeValidation         = "VALIDATION_ERROR"
	codeCartEmpty          = "CART_EMPTY"
	codeProductUnavailable = "PRODUCT_UNAVAILABLE"
	codeCouponRejected     = "COUPON_REJECTED"
	codeOrderNotFound      = "ORDER_NOT_FOUND"
	codeCheckoutInFlight   = "CHECKOUT_IN_PROGRESS"
	codeNotLaunched        = "NOT_LAUNCHED"
	codeUnauthorized       = "UNAUTHORIZED"
	codeInvalidTransition  = "INVALID_TRANSITION"
	codeInternal           = "INTERNAL_ERROR"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
	Success bool      `json:"success"`
}

func (h *Handlers) respondData(w http.ResponseWriter, ctx context.Context, status int, data any) {
	h.writeEnvelope(w, ctx, status, envelope{Data: data, Success: true})
}

func (h *Handlers) respondError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	h.writeEnvelope(w, ctx, status, envelope{Error: &apiError{Code: code, Message: message}, Success: false})
}

func (h *Handlers) writeEnvelope(w http.ResponseWriter, ctx context.Context, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.loggerFromContext(ctx).Error("failed to encode response", "error", err)
	}
}

const maxJSONBodyBytes = 64 << 10

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
