package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mateabags/storefront/internal/cache"
	"github.com/mateabags/storefront/internal/db"
	stripewebhook "github.com/mateabags/storefront/internal/stripe"
)

// stripeWebhookIdempotencyTTL is how long webhook event IDs are kept in the
// cache fast path. The unique constraint in stripe_events backs it up with
// no expiry.
const stripeWebhookIdempotencyTTL = 24 * time.Hour

func (h *Handlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)

	event, err := stripewebhook.ReadWebhookEvent(r, h.config.StripeWebhookSecret)
	if err != nil {
		logger.Error("failed to read Stripe webhook payload", "error", err)
		http.Error(w, "Invalid webhook", http.StatusBadRequest)
		return
	}

	if event == nil || event.ID == "" {
		logger.Error("missing Stripe event ID")
		http.Error(w, "Missing event ID", http.StatusBadRequest)
		return
	}

	cacheKey := cache.WebhookKey("stripe", event.ID)
	if _, err := h.cacheProvider.Get(ctx, cacheKey); err == nil {
		logger.Info("webhook already processed", "event_id", event.ID)
		h.respondDuplicate(w, ctx)
		return
	}

	var payload []byte
	if event.Data != nil {
		payload = event.Data.Raw
	}
	eventRowID, err := h.eventStore.Insert(ctx, event.ID, string(event.Type), payload)
	if errors.Is(err, db.ErrDuplicateEvent) {
		logger.Info("webhook already recorded", "event_id", event.ID)
		h.markWebhookSeen(r, cacheKey)
		h.respondDuplicate(w, ctx)
		return
	}
	if err != nil {
		logger.Error("failed to record Stripe event", "event_id", event.ID, "error", err)
		http.Error(w, "Processing failed", http.StatusInternalServerError)
		return
	}

	if processErr := h.stripeRouter.Handle(ctx, event); processErr != nil {
		logger.Error("failed to process Stripe webhook", "error", processErr, "type", event.Type)
		if err := h.eventStore.MarkFailed(ctx, eventRowID); err != nil {
			logger.Error("failed to mark event as failed", "event_id", event.ID, "error", err)
		}
		// 500 makes Stripe redeliver; the dedup above lets the retry through
		// because the cache is only written on success.
		http.Error(w, "Processing failed", http.StatusInternalServerError)
		return
	}

	if err := h.eventStore.MarkProcessed(ctx, eventRowID, uuid.Nil, uuid.Nil); err != nil {
		logger.Error("failed to mark event as processed", "event_id", event.ID, "error", err)
	}
	h.markWebhookSeen(r, cacheKey)

	h.respondData(w, ctx, http.StatusOK, map[string]any{"received": true})
}

func (h *Handlers) respondDuplicate(w http.ResponseWriter, ctx context.Context) {
	h.respondData(w, ctx, http.StatusOK, map[string]any{
		"received": true,
		"status":   "duplicate",
	})
}

func (h *Handlers) markWebhookSeen(r *http.Request, cacheKey string) {
	ctx := r.Context()
	if err := h.cacheProvider.Set(ctx, cacheKey, "processed", stripeWebhookIdempotencyTTL); err != nil {
		h.loggerFromContext(ctx).Error("failed to mark webhook as processed in cache", "error", err)
	}
}
