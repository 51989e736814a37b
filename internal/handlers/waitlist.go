package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/mateabags/storefront/internal/services"
)

// StorefrontStatus reports whether the shop has launched. The frontend shows
// either the sale page or the waitlist form based on this.
func (h *Handlers) StorefrontStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"launched": h.waitlistService.Launched(),
	}
	if launchAt := h.waitlistService.LaunchAt(); !launchAt.IsZero() {
		status["launch_at"] = launchAt.Format(time.RFC3339)
	}
	h.respondData(w, r.Context(), http.StatusOK, status)
}

func (h *Handlers) WaitlistJoin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, ctx, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	created, err := h.waitlistService.Join(ctx, req.Email)
	if errors.Is(err, services.ErrInvalidEmail) {
		h.respondError(w, ctx, http.StatusBadRequest, codeValidation, "a valid email address is required")
		return
	}
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to record waitlist signup", "error", err)
		h.respondError(w, ctx, http.StatusInternalServerError, codeInternal, "failed to join the waitlist")
		return
	}

	// A resubmitted email is reported as joined, not as an error.
	h.respondData(w, ctx, http.StatusOK, map[string]any{
		"joined": true,
		"new":    created,
	})
}
