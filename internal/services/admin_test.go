package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/mateabags/storefront/internal/db"
	"github.com/mateabags/storefront/internal/models"
)

type fakeAdminOrderStore struct {
	orders     []*models.Order
	status     models.OrderStatus
	processing []uuid.UUID
	shipped    []uuid.UUID
	delivered  []uuid.UUID
	cancelled  []uuid.UUID
	markErr    error
	lastStatus models.OrderStatus
	lastLimit  int
}

func (f *fakeAdminOrderStore) ListRecent(_ context.Context, limit int) ([]*models.Order, error) {
	f.lastStatus = ""
	f.lastLimit = limit
	return f.orders, nil
}

func (f *fakeAdminOrderStore) ListByStatus(_ context.Context, status models.OrderStatus, limit int) ([]*models.Order, error) {
	f.lastStatus = status
	f.lastLimit = limit
	return f.orders, nil
}

func (f *fakeAdminOrderStore) GetDetails(_ context.Context, orderID uuid.UUID) (*models.OrderDetails, error) {
	return &models.OrderDetails{
		Order:    models.Order{ID: orderID, Currency: "EUR", Status: f.status},
		Customer: &models.Customer{Email: "ana@example.com"},
	}, nil
}

func (f *fakeAdminOrderStore) Summarize(_ context.Context) (*db.SalesSummary, error) {
	return &db.SalesSummary{TotalOrders: len(f.orders), OrdersByStatus: map[string]int{}}, nil
}

func (f *fakeAdminOrderStore) MarkProcessing(_ context.Context, orderID uuid.UUID) error {
	f.processing = append(f.processing, orderID)
	return f.markErr
}

func (f *fakeAdminOrderStore) MarkShipped(_ context.Context, orderID uuid.UUID) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.shipped = append(f.shipped, orderID)
	return nil
}

func (f *fakeAdminOrderStore) MarkDelivered(_ context.Context, orderID uuid.UUID) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.delivered = append(f.delivered, orderID)
	return nil
}

func (f *fakeAdminOrderStore) Cancel(_ context.Context, orderID uuid.UUID) error {
	f.cancelled = append(f.cancelled, orderID)
	return f.markErr
}

func TestAdminListDefaults(t *testing.T) {
	t.Parallel()

	store := &fakeAdminOrderStore{}
	svc := NewAdminOrderService(store, nil, slog.Default())

	if _, err := svc.List(context.Background(), "", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.lastLimit != defaultListLimit {
		t.Fatalf("limit = %d, want %d", store.lastLimit, defaultListLimit)
	}

	if _, err := svc.List(context.Background(), models.StatusPaid, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.lastStatus != models.StatusPaid || store.lastLimit != 10 {
		t.Fatalf("status = %q limit = %d", store.lastStatus, store.lastLimit)
	}
}

func TestAdminShipSendsEmail(t *testing.T) {
	t.Parallel()

	store := &fakeAdminOrderStore{status: models.StatusProcessing}
	emails := &recordingEmailSender{}
	svc := NewAdminOrderService(store, emails, slog.Default())

	orderID := uuid.New()
	if err := svc.Ship(context.Background(), orderID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.shipped) != 1 {
		t.Fatal("order must be marked shipped")
	}
	if emails.shipped != 1 {
		t.Fatal("shipped email must be sent")
	}
}

func TestAdminDeliverSendsEmail(t *testing.T) {
	t.Parallel()

	store := &fakeAdminOrderStore{status: models.StatusShipped}
	emails := &recordingEmailSender{}
	svc := NewAdminOrderService(store, emails, slog.Default())

	if err := svc.Deliver(context.Background(), uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emails.delivered != 1 {
		t.Fatal("delivered email must be sent")
	}
}

func TestAdminShipInvalidTransition(t *testing.T) {
	t.Parallel()

	// A stale request against a still-pending order is refused by the
	// transition table before any write happens.
	store := &fakeAdminOrderStore{status: models.StatusPending}
	emails := &recordingEmailSender{}
	svc := NewAdminOrderService(store, emails, slog.Default())

	err := svc.Ship(context.Background(), uuid.New())
	if !errors.Is(err, db.ErrInvalidStatusTransition) {
		t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
	}
	if len(store.shipped) != 0 {
		t.Fatal("no write on refused transition")
	}
	if emails.shipped != 0 {
		t.Fatal("no email on failed transition")
	}
}

func TestAdminShipLostRace(t *testing.T) {
	t.Parallel()

	// The table check passes but a concurrent writer wins; the store guard
	// error comes back and no email goes out.
	store := &fakeAdminOrderStore{status: models.StatusProcessing, markErr: db.ErrInvalidStatusTransition}
	emails := &recordingEmailSender{}
	svc := NewAdminOrderService(store, emails, slog.Default())

	err := svc.Ship(context.Background(), uuid.New())
	if !errors.Is(err, db.ErrInvalidStatusTransition) {
		t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
	}
	if emails.shipped != 0 {
		t.Fatal("no email on failed transition")
	}
}

func TestAdminCancelTerminalOrder(t *testing.T) {
	t.Parallel()

	store := &fakeAdminOrderStore{status: models.StatusRefunded}
	svc := NewAdminOrderService(store, nil, slog.Default())

	err := svc.Cancel(context.Background(), uuid.New())
	if !errors.Is(err, db.ErrInvalidStatusTransition) {
		t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
	}
	if len(store.cancelled) != 0 {
		t.Fatal("terminal order must not be written")
	}
}
