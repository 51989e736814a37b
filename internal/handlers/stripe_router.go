package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/mateabags/storefront/internal/logging"
	"github.com/mateabags/storefront/internal/services"
)

// StripeEventRouter dispatches verified webhook events to their processors.
type StripeEventRouter struct {
	service *services.StripeEventService
	logger  *slog.Logger
}

func NewStripeEventRouter(service *services.StripeEventService, logger *slog.Logger) *StripeEventRouter {
	return &StripeEventRouter{
		service: service,
		logger:  logger,
	}
}

func (r *StripeEventRouter) Handle(ctx context.Context, event *stripeapi.Event) error {
	span := sentry.StartSpan(
		ctx,
		"handler.stripe_router.handle",
		sentry.WithOpName("handler.stripe_router"),
		sentry.WithDescription("StripeEventRouter.Handle"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	if event == nil {
		return fmt.Errorf("missing stripe event")
	}
	if event.Data == nil {
		return fmt.Errorf("missing stripe event data")
	}

	logger := logging.FromContext(ctx, r.logger)
	payload := event.Data.Raw

	switch event.Type {
	case "checkout.session.completed":
		if err := r.service.HandleCheckoutSessionCompleted(ctx, payload); err != nil {
			return err
		}
	case "checkout.session.expired":
		if err := r.service.HandleCheckoutSessionExpired(ctx, payload); err != nil {
			return err
		}
	case "payment_intent.succeeded":
		if err := r.service.HandlePaymentIntentSucceeded(ctx, payload); err != nil {
			return err
		}
	case "payment_intent.payment_failed":
		if err := r.service.HandlePaymentIntentFailed(ctx, payload); err != nil {
			return err
		}
	case "charge.refunded":
		if err := r.service.HandleChargeRefunded(ctx, payload); err != nil {
			return err
		}
	case "charge.dispute.created":
		if err := r.service.HandleChargeDisputeCreated(ctx, payload); err != nil {
			return err
		}
	default:
		logger.Info("unhandled Stripe event type", "type", event.Type)
	}

	span.Status = sentry.SpanStatusOK
	return nil
}
