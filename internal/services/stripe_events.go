package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/mateabags/storefront/internal/db"
	"github.com/mateabags/storefront/internal/logging"
	"github.com/mateabags/storefront/internal/models"
)

type eventOrderStore interface {
	GetDetails(ctx context.Context, orderID uuid.UUID) (*models.OrderDetails, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID) error
	MarkProcessing(ctx context.Context, orderID uuid.UUID) error
	Cancel(ctx context.Context, orderID uuid.UUID) error
	MarkRefunded(ctx context.Context, orderID uuid.UUID) error
}

type eventPaymentStore interface {
	GetBySessionID(ctx context.Context, sessionID string) (*models.Payment, error)
	GetByIntentID(ctx context.Context, intentID string) (*models.Payment, error)
	GetByChargeID(ctx context.Context, chargeID string) (*models.Payment, error)
	SetIntentID(ctx context.Context, paymentID uuid.UUID, intentID string) error
	MarkSucceeded(ctx context.Context, paymentID uuid.UUID, chargeID, methodType, cardBrand, cardLast4 string) error
	MarkFailed(ctx context.Context, paymentID uuid.UUID) error
	MarkCancelled(ctx context.Context, paymentID uuid.UUID) error
	MarkRefunded(ctx context.Context, paymentID uuid.UUID, refundedCents int) error
	MarkDisputed(ctx context.Context, paymentID uuid.UUID) error
	RecordAttempt(ctx context.Context, attempt *models.PaymentAttempt) error
}

// StripeEventService applies webhook events to orders and payments. Every
// processor is idempotent: a replayed event lands on the status guard in the
// store, which comes back as ErrInvalidStatusTransition and is ignored.
type StripeEventService struct {
	orders      eventOrderStore
	payments    eventPaymentStore
	emailSender OrderEmailSender
	logger      *slog.Logger
}

func NewStripeEventService(orders eventOrderStore, payments eventPaymentStore, emailSender OrderEmailSender, logger *slog.Logger) *StripeEventService {
	if emailSender == nil {
		emailSender = noopOrderEmailSender{}
	}
	return &StripeEventService{
		orders:      orders,
		payments:    payments,
		emailSender: emailSender,
		logger:      logger,
	}
}

func (s *StripeEventService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// HandleCheckoutSessionCompleted marks the order paid and sends the
// confirmation email. The order ID comes from the session metadata with the
// client reference ID as fallback.
func (s *StripeEventService) HandleCheckoutSessionCompleted(ctx context.Context, payload []byte) error {
	logger := s.loggerFromContext(ctx)

	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return fmt.Errorf("invalid event object: %w", err)
	}
	if session.ID == "" {
		return fmt.Errorf("missing session ID")
	}

	orderID, err := orderIDFromSession(&session)
	if err != nil {
		return err
	}

	// A redelivery after a partial failure must keep going past the order
	// guard: MarkPaid may have committed on the first attempt while the
	// payment settlement or the email did not.
	alreadyPaid := false
	if markErr := s.orders.MarkPaid(ctx, orderID); markErr != nil {
		if !errors.Is(markErr, db.ErrInvalidStatusTransition) {
			return fmt.Errorf("failed to mark order as paid: %w", markErr)
		}
		alreadyPaid = true
		logger.Info("order already paid; settling remaining state", "order_id", orderID, "session_id", session.ID)
	}

	payment, err := s.payments.GetBySessionID(ctx, session.ID)
	if err != nil {
		if alreadyPaid && errors.Is(err, db.ErrNotFound) {
			logger.Info("ignoring checkout.session.completed replay without payment", "order_id", orderID, "session_id", session.ID)
			return nil
		}
		return fmt.Errorf("failed to get payment for session %s: %w", session.ID, err)
	}

	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		if err := s.payments.SetIntentID(ctx, payment.ID, session.PaymentIntent.ID); err != nil {
			logger.Error("failed to attach payment intent", "payment_id", payment.ID, "error", err)
		}
	}

	settledNow := true
	if markErr := s.payments.MarkSucceeded(ctx, payment.ID, "", "card", "", ""); markErr != nil {
		if !errors.Is(markErr, db.ErrInvalidStatusTransition) {
			return fmt.Errorf("failed to mark payment succeeded: %w", markErr)
		}
		settledNow = false
		logger.Info("payment already settled", "payment_id", payment.ID)
	}

	if alreadyPaid && !settledNow {
		// Pure replay: both transitions had already happened, so the
		// confirmation email went out on an earlier delivery.
		logger.Info("ignoring checkout.session.completed replay", "order_id", orderID, "session_id", session.ID)
		return nil
	}

	details, err := s.orders.GetDetails(ctx, orderID)
	if err != nil {
		logger.Error("failed to load order details for confirmation email", "order_id", orderID, "error", err)
		return nil
	}
	if err := s.emailSender.SendOrderConfirmation(ctx, details); err != nil {
		logger.Error("failed to send order confirmation email", "order_id", orderID, "error", err)
	}

	logger.Info("checkout session completed handled", "order_id", orderID, "session_id", session.ID)
	return nil
}

// HandleCheckoutSessionExpired cancels the order whose session lapsed.
func (s *StripeEventService) HandleCheckoutSessionExpired(ctx context.Context, payload []byte) error {
	logger := s.loggerFromContext(ctx)

	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return fmt.Errorf("invalid event object: %w", err)
	}
	if session.ID == "" {
		return fmt.Errorf("missing session ID")
	}

	orderID, err := orderIDFromSession(&session)
	if err != nil {
		return err
	}

	if markErr := s.orders.Cancel(ctx, orderID); markErr != nil {
		if errors.Is(markErr, db.ErrInvalidStatusTransition) {
			logger.Info("ignoring checkout.session.expired due to state transition", "order_id", orderID, "session_id", session.ID, "error", markErr)
			return nil
		}
		return fmt.Errorf("failed to cancel order: %w", markErr)
	}

	payment, err := s.payments.GetBySessionID(ctx, session.ID)
	if err == nil {
		if markErr := s.payments.MarkCancelled(ctx, payment.ID); markErr != nil && !errors.Is(markErr, db.ErrInvalidStatusTransition) {
			logger.Error("failed to cancel payment", "payment_id", payment.ID, "error", markErr)
		}
	} else if !errors.Is(err, db.ErrNotFound) {
		logger.Error("failed to get payment for expired session", "session_id", session.ID, "error", err)
	}

	logger.Info("checkout session expired handled", "order_id", orderID, "session_id", session.ID)
	return nil
}

// HandlePaymentIntentSucceeded settles the payment with its charge and card
// details and moves the order into fulfilment. Arrival order relative to
// checkout.session.completed is not guaranteed; both sides tolerate the
// other having run first.
func (s *StripeEventService) HandlePaymentIntentSucceeded(ctx context.Context, payload []byte) error {
	logger := s.loggerFromContext(ctx)

	var intent stripeapi.PaymentIntent
	if err := json.Unmarshal(payload, &intent); err != nil {
		return fmt.Errorf("invalid event object: %w", err)
	}
	if intent.ID == "" {
		return fmt.Errorf("missing payment intent ID")
	}

	payment, err := s.payments.GetByIntentID(ctx, intent.ID)
	if errors.Is(err, db.ErrNotFound) {
		logger.Info("no payment matches succeeded intent; skipping", "intent_id", intent.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get payment for intent %s: %w", intent.ID, err)
	}

	chargeID, methodType, cardBrand, cardLast4 := chargeDetails(intent.LatestCharge)
	if markErr := s.payments.MarkSucceeded(ctx, payment.ID, chargeID, methodType, cardBrand, cardLast4); markErr != nil {
		if !errors.Is(markErr, db.ErrInvalidStatusTransition) {
			return fmt.Errorf("failed to mark payment succeeded: %w", markErr)
		}
		logger.Info("payment already settled", "payment_id", payment.ID, "intent_id", intent.ID)
	}

	if markErr := s.orders.MarkProcessing(ctx, payment.OrderID); markErr != nil && !errors.Is(markErr, db.ErrInvalidStatusTransition) {
		return fmt.Errorf("failed to move order to processing: %w", markErr)
	}

	logger.Info("payment intent succeeded handled", "order_id", payment.OrderID, "intent_id", intent.ID)
	return nil
}

func chargeDetails(charge *stripeapi.Charge) (chargeID, methodType, cardBrand, cardLast4 string) {
	methodType = "card"
	if charge == nil {
		return "", methodType, "", ""
	}
	chargeID = charge.ID
	if details := charge.PaymentMethodDetails; details != nil {
		if details.Type != "" {
			methodType = string(details.Type)
		}
		if details.Card != nil {
			cardBrand = string(details.Card.Brand)
			cardLast4 = details.Card.Last4
		}
	}
	return chargeID, methodType, cardBrand, cardLast4
}

// HandlePaymentIntentFailed records the failed attempt and marks the payment
// failed. The order stays pending: the customer can still retry inside the
// payment window, and the reconciler cancels it after the deadline.
func (s *StripeEventService) HandlePaymentIntentFailed(ctx context.Context, payload []byte) error {
	logger := s.loggerFromContext(ctx)

	var intent stripeapi.PaymentIntent
	if err := json.Unmarshal(payload, &intent); err != nil {
		return fmt.Errorf("invalid event object: %w", err)
	}
	if intent.ID == "" {
		return fmt.Errorf("missing payment intent ID")
	}

	payment, err := s.payments.GetByIntentID(ctx, intent.ID)
	if errors.Is(err, db.ErrNotFound) {
		logger.Info("no payment matches failed intent; skipping", "intent_id", intent.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get payment for intent %s: %w", intent.ID, err)
	}

	if markErr := s.payments.MarkFailed(ctx, payment.ID); markErr != nil {
		if errors.Is(markErr, db.ErrInvalidStatusTransition) {
			logger.Info("ignoring payment_intent.payment_failed due to state transition", "payment_id", payment.ID, "intent_id", intent.ID, "error", markErr)
			return nil
		}
		return fmt.Errorf("failed to mark payment failed: %w", markErr)
	}

	attempt := &models.PaymentAttempt{
		OrderID:               payment.OrderID,
		PaymentID:             payment.ID,
		StripePaymentIntentID: intent.ID,
	}
	if intent.LastPaymentError != nil {
		attempt.FailureCode = string(intent.LastPaymentError.Code)
		attempt.FailureMessage = intent.LastPaymentError.Msg
	}
	if err := s.payments.RecordAttempt(ctx, attempt); err != nil {
		logger.Error("failed to record payment attempt", "payment_id", payment.ID, "error", err)
	}

	logger.Info("payment failure handled", "order_id", payment.OrderID, "intent_id", intent.ID)
	return nil
}

// HandleChargeRefunded marks the payment refunded and moves the order to the
// refunded branch.
func (s *StripeEventService) HandleChargeRefunded(ctx context.Context, payload []byte) error {
	logger := s.loggerFromContext(ctx)

	var charge stripeapi.Charge
	if err := json.Unmarshal(payload, &charge); err != nil {
		return fmt.Errorf("invalid event object: %w", err)
	}
	if charge.ID == "" {
		return fmt.Errorf("missing charge ID")
	}

	payment, err := s.paymentForCharge(ctx, &charge)
	if errors.Is(err, db.ErrNotFound) {
		logger.Info("no payment matches refunded charge; skipping", "charge_id", charge.ID)
		return nil
	}
	if err != nil {
		return err
	}

	refundedCents := int(charge.AmountRefunded)
	if markErr := s.payments.MarkRefunded(ctx, payment.ID, refundedCents); markErr != nil {
		if errors.Is(markErr, db.ErrInvalidStatusTransition) {
			logger.Info("ignoring charge.refunded due to state transition", "payment_id", payment.ID, "charge_id", charge.ID, "error", markErr)
			return nil
		}
		return fmt.Errorf("failed to mark payment refunded: %w", markErr)
	}

	if markErr := s.orders.MarkRefunded(ctx, payment.OrderID); markErr != nil && !errors.Is(markErr, db.ErrInvalidStatusTransition) {
		return fmt.Errorf("failed to mark order refunded: %w", markErr)
	}

	logger.Info("charge refund handled", "order_id", payment.OrderID, "charge_id", charge.ID, "refunded_cents", refundedCents)
	return nil
}

// HandleChargeDisputeCreated flags the payment as disputed. The order is
// left alone until the dispute resolves.
func (s *StripeEventService) HandleChargeDisputeCreated(ctx context.Context, payload []byte) error {
	logger := s.loggerFromContext(ctx)

	var dispute stripeapi.Dispute
	if err := json.Unmarshal(payload, &dispute); err != nil {
		return fmt.Errorf("invalid event object: %w", err)
	}
	if dispute.Charge == nil || dispute.Charge.ID == "" {
		return fmt.Errorf("missing charge reference on dispute")
	}

	payment, err := s.paymentForCharge(ctx, dispute.Charge)
	if errors.Is(err, db.ErrNotFound) {
		logger.Info("no payment matches disputed charge; skipping", "charge_id", dispute.Charge.ID)
		return nil
	}
	if err != nil {
		return err
	}

	if markErr := s.payments.MarkDisputed(ctx, payment.ID); markErr != nil {
		if errors.Is(markErr, db.ErrInvalidStatusTransition) {
			logger.Info("ignoring charge.dispute.created due to state transition", "payment_id", payment.ID, "error", markErr)
			return nil
		}
		return fmt.Errorf("failed to mark payment disputed: %w", markErr)
	}

	logger.Warn("charge dispute opened", "order_id", payment.OrderID, "payment_id", payment.ID, "charge_id", dispute.Charge.ID)
	return nil
}

// paymentForCharge resolves a payment by charge ID, falling back to the
// payment intent. The charge ID is only recorded when Stripe sends it, so
// the intent is the more reliable key.
func (s *StripeEventService) paymentForCharge(ctx context.Context, charge *stripeapi.Charge) (*models.Payment, error) {
	payment, err := s.payments.GetByChargeID(ctx, charge.ID)
	if err == nil {
		return payment, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to get payment for charge %s: %w", charge.ID, err)
	}

	if charge.PaymentIntent != nil && charge.PaymentIntent.ID != "" {
		payment, err = s.payments.GetByIntentID(ctx, charge.PaymentIntent.ID)
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("failed to get payment for intent %s: %w", charge.PaymentIntent.ID, err)
		}
	}

	return nil, db.ErrNotFound
}

func orderIDFromSession(session *stripeapi.CheckoutSession) (uuid.UUID, error) {
	raw := ""
	if session.Metadata != nil {
		raw = session.Metadata["order_id"]
	}
	if raw == "" {
		raw = session.ClientReferenceID
	}
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing order_id in session metadata")
	}

	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid order_id: %w", err)
	}
	return orderID, nil
}
