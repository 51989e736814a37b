package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/mateabags/storefront/internal/db"
	"github.com/mateabags/storefront/internal/models"
)

func TestCheckoutSuccess_ReturnsOrderAndClearsPendingMarker(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	orderID := uuid.New()
	env.orders.orders[orderID] = &models.Order{
		ID:         orderID,
		Status:     models.StatusPaid,
		TotalCents: 9500,
		Currency:   "EUR",
	}
	env.orders.items[orderID] = []models.OrderItem{{ProductID: "mate-classic", Quantity: 2}}

	req, sess := env.newSessionRequest(t, http.MethodGet, "/checkout/success?order_id="+orderID.String(), nil)
	sess.PendingOrderID = orderID
	if err := env.handlers.sessionManager.UpdateSession(context.Background(), req, sess); err != nil {
		t.Fatalf("failed to update session: %v", err)
	}
	rec := httptest.NewRecorder()

	env.handlers.CheckoutSuccess(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var summary orderSummary
	decodeData(t, rec, &summary)
	if summary.OrderID != orderID || summary.Status != models.StatusPaid {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.Items) != 1 {
		t.Fatalf("expected one item in summary, got %d", len(summary.Items))
	}

	updated, err := env.handlers.sessionManager.GetSession(context.Background(), req)
	if err != nil {
		t.Fatalf("failed to reload session: %v", err)
	}
	if updated.PendingOrderID != uuid.Nil {
		t.Fatalf("expected pending marker cleared, got %s", updated.PendingOrderID)
	}
}

func TestCheckoutSuccess_KeepsMarkerForOtherOrder(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	orderID := uuid.New()
	otherID := uuid.New()
	env.orders.orders[orderID] = &models.Order{ID: orderID, Status: models.StatusPaid, Currency: "EUR"}

	req, sess := env.newSessionRequest(t, http.MethodGet, "/checkout/success?order_id="+orderID.String(), nil)
	sess.PendingOrderID = otherID
	if err := env.handlers.sessionManager.UpdateSession(context.Background(), req, sess); err != nil {
		t.Fatalf("failed to update session: %v", err)
	}
	rec := httptest.NewRecorder()

	env.handlers.CheckoutSuccess(rec, req)

	updated, err := env.handlers.sessionManager.GetSession(context.Background(), req)
	if err != nil {
		t.Fatalf("failed to reload session: %v", err)
	}
	if updated.PendingOrderID != otherID {
		t.Fatalf("expected unrelated pending marker to survive, got %s", updated.PendingOrderID)
	}
}

func TestCheckoutSuccess_MissingOrderID(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/checkout/success", nil)
	rec := httptest.NewRecorder()

	env.handlers.CheckoutSuccess(rec, req)

	requireErrorCode(t, rec, http.StatusBadRequest, codeOrderNotFound)
}

func TestCheckoutSuccess_UnknownOrder(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/checkout/success?order_id="+uuid.NewString(), nil)
	rec := httptest.NewRecorder()

	env.handlers.CheckoutSuccess(rec, req)

	requireErrorCode(t, rec, http.StatusNotFound, codeOrderNotFound)
}

func TestCheckoutCancel_CancelsPendingOrder(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	orderID := uuid.New()
	paymentID := uuid.New()
	env.orders.orders[orderID] = &models.Order{ID: orderID, Status: models.StatusPending, TotalCents: 4500, Currency: "EUR"}
	env.payments.byOrder[orderID] = &models.Payment{ID: paymentID, OrderID: orderID, Status: models.PaymentPending}

	req := httptest.NewRequest(http.MethodGet, "/checkout/cancel?order_id="+orderID.String(), nil)
	rec := httptest.NewRecorder()

	env.handlers.CheckoutCancel(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var summary orderSummary
	decodeData(t, rec, &summary)
	if summary.Status != models.StatusCancelled {
		t.Fatalf("expected cancelled status, got %s", summary.Status)
	}
	if len(env.orders.cancelled) != 1 {
		t.Fatalf("expected order cancellation, got %v", env.orders.cancelled)
	}
	if len(env.payments.cancelled) != 1 || env.payments.cancelled[0] != paymentID {
		t.Fatalf("expected payment cancellation, got %v", env.payments.cancelled)
	}
}

func TestCheckoutCancel_PaidOrderStaysPaid(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	orderID := uuid.New()
	env.orders.orders[orderID] = &models.Order{ID: orderID, Status: models.StatusPaid, Currency: "EUR"}

	req := httptest.NewRequest(http.MethodGet, "/checkout/cancel?order_id="+orderID.String(), nil)
	rec := httptest.NewRecorder()

	env.handlers.CheckoutCancel(rec, req)

	var summary orderSummary
	decodeData(t, rec, &summary)
	if summary.Status != models.StatusPaid {
		t.Fatalf("expected order to stay paid, got %s", summary.Status)
	}
	if len(env.orders.cancelled) != 0 {
		t.Fatal("expected no cancellation attempt on a paid order")
	}
}

func TestCheckoutCancel_LostRaceReportsCurrentStatus(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	// The payment webhook lands between our read and the cancel attempt.
	orderID := uuid.New()
	env.orders.orders[orderID] = &models.Order{ID: orderID, Status: models.StatusPending, Currency: "EUR"}
	env.orders.cancelErr = db.ErrInvalidStatusTransition
	env.orders.raceStatus = models.StatusPaid

	req := httptest.NewRequest(http.MethodGet, "/checkout/cancel?order_id="+orderID.String(), nil)
	rec := httptest.NewRecorder()

	env.handlers.CheckoutCancel(rec, req)

	var summary orderSummary
	decodeData(t, rec, &summary)
	if summary.Status != models.StatusPaid {
		t.Fatalf("expected the winning paid status, got %s", summary.Status)
	}
}
