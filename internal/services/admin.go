package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mateabags/storefront/internal/db"
	"github.com/mateabags/storefront/internal/logging"
	"github.com/mateabags/storefront/internal/models"
)

type adminOrderStore interface {
	ListRecent(ctx context.Context, limit int) ([]*models.Order, error)
	ListByStatus(ctx context.Context, status models.OrderStatus, limit int) ([]*models.Order, error)
	GetDetails(ctx context.Context, orderID uuid.UUID) (*models.OrderDetails, error)
	Summarize(ctx context.Context) (*db.SalesSummary, error)
	MarkProcessing(ctx context.Context, orderID uuid.UUID) error
	MarkShipped(ctx context.Context, orderID uuid.UUID) error
	MarkDelivered(ctx context.Context, orderID uuid.UUID) error
	Cancel(ctx context.Context, orderID uuid.UUID) error
}

// AdminOrderService is the back-office surface: listing orders and walking
// them through fulfilment. Transitions ride on the store's status guards, so
// an out-of-order action surfaces as ErrInvalidStatusTransition.
type AdminOrderService struct {
	orders      adminOrderStore
	emailSender OrderEmailSender
	logger      *slog.Logger
}

func NewAdminOrderService(orders adminOrderStore, emailSender OrderEmailSender, logger *slog.Logger) *AdminOrderService {
	if emailSender == nil {
		emailSender = noopOrderEmailSender{}
	}
	return &AdminOrderService{
		orders:      orders,
		emailSender: emailSender,
		logger:      logger,
	}
}

const defaultListLimit = 100

func (s *AdminOrderService) List(ctx context.Context, status models.OrderStatus, limit int) ([]*models.Order, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if status == "" {
		return s.orders.ListRecent(ctx, limit)
	}
	return s.orders.ListByStatus(ctx, status, limit)
}

func (s *AdminOrderService) Detail(ctx context.Context, orderID uuid.UUID) (*models.OrderDetails, error) {
	return s.orders.GetDetails(ctx, orderID)
}

func (s *AdminOrderService) Summary(ctx context.Context) (*db.SalesSummary, error) {
	return s.orders.Summarize(ctx)
}

func (s *AdminOrderService) MarkProcessing(ctx context.Context, orderID uuid.UUID) error {
	_, err := s.transition(ctx, orderID, models.StatusProcessing, s.orders.MarkProcessing)
	return err
}

// Ship moves the order to shipped and notifies the customer. Email failure
// does not undo the transition.
func (s *AdminOrderService) Ship(ctx context.Context, orderID uuid.UUID) error {
	details, err := s.transition(ctx, orderID, models.StatusShipped, s.orders.MarkShipped)
	if err != nil {
		return err
	}
	s.notify(ctx, details, s.emailSender.SendOrderShipped)
	return nil
}

func (s *AdminOrderService) Deliver(ctx context.Context, orderID uuid.UUID) error {
	details, err := s.transition(ctx, orderID, models.StatusDelivered, s.orders.MarkDelivered)
	if err != nil {
		return err
	}
	s.notify(ctx, details, s.emailSender.SendOrderDelivered)
	return nil
}

func (s *AdminOrderService) Cancel(ctx context.Context, orderID uuid.UUID) error {
	_, err := s.transition(ctx, orderID, models.StatusCancelled, s.orders.Cancel)
	return err
}

// transition loads the order, checks the transition table, then applies the
// guarded update. A concurrent writer can still win between the check and
// the write; the store guard reports that as ErrInvalidStatusTransition.
func (s *AdminOrderService) transition(ctx context.Context, orderID uuid.UUID, to models.OrderStatus, mark func(context.Context, uuid.UUID) error) (*models.OrderDetails, error) {
	details, err := s.orders.GetDetails(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if from := details.Order.Status; from.IsTerminal() || !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s order cannot become %s", db.ErrInvalidStatusTransition, from, to)
	}

	if err := mark(ctx, orderID); err != nil {
		return nil, err
	}
	details.Order.Status = to
	return details, nil
}

func (s *AdminOrderService) notify(ctx context.Context, details *models.OrderDetails, send func(context.Context, *models.OrderDetails) error) {
	logger := logging.FromContext(ctx, s.logger)

	if err := send(ctx, details); err != nil {
		logger.Error("failed to send order notification", "order_id", details.Order.ID, "error", err)
	}
}
