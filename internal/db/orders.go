package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mateabags/storefront/internal/models"
)

// ErrInvalidStatusTransition is returned when a status update matched no row,
// meaning the order was not in a state the transition allows. Webhook
// processors treat it as a benign replay and the admin surface reports it.
var ErrInvalidStatusTransition = errors.New("invalid order status transition")

type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// CreateWithItems inserts the order and its item snapshots in one
// transaction. Either everything lands or nothing does; a half-written order
// with no items can never be observed.
func (s *OrderStore) CreateWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	if len(items) == 0 {
		return fmt.Errorf("order must have at least one item")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	orderQuery := `
		INSERT INTO orders (customer_id, shipping_address_id, subtotal_cents, discount_cents,
		                    shipping_cents, total_cents, currency, status, note, payment_deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(ctx, orderQuery,
		order.CustomerID,
		order.ShippingAddressID,
		order.SubtotalCents,
		order.DiscountCents,
		order.ShippingCents,
		order.TotalCents,
		order.Currency,
		string(order.Status),
		textOrNull(order.Note),
		timestamptzOrNull(order.PaymentDeadline),
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return err
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, title, sku, quantity, unit_cents,
		                         total_cents, is_gift, gift_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	for i := range items {
		items[i].OrderID = order.ID
		err = tx.QueryRow(ctx, itemQuery,
			items[i].OrderID,
			items[i].ProductID,
			items[i].Title,
			textOrNull(items[i].SKU),
			items[i].Quantity,
			items[i].UnitCents,
			items[i].TotalCents,
			items[i].IsGift,
			textOrNull(items[i].GiftMessage),
		).Scan(&items[i].ID, &items[i].CreatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *OrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	query := selectOrder + ` WHERE id = $1`
	order, err := scanOrder(s.pool.QueryRow(ctx, query, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order by id: %w", ErrNotFound)
	}
	return order, err
}

// GetDetails joins the order with its items, customer, and shipping address.
func (s *OrderStore) GetDetails(ctx context.Context, orderID uuid.UUID) (*models.OrderDetails, error) {
	order, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	items, err := s.getItems(ctx, orderID)
	if err != nil {
		return nil, err
	}

	details := &models.OrderDetails{Order: *order, Items: items}

	customerQuery := `
		SELECT id, name, email, phone, created_at
		FROM customers
		WHERE id = $1
	`
	var (
		c           models.Customer
		name, phone pgtype.Text
	)
	err = s.pool.QueryRow(ctx, customerQuery, order.CustomerID).
		Scan(&c.ID, &name, &c.Email, &phone, &c.CreatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err == nil {
		c.Name = name.String
		c.Phone = phone.String
		details.Customer = &c
	}

	addressQuery := `
		SELECT id, customer_id, kind, recipient_name, line1, line2, city, state, postcode, country, created_at
		FROM addresses
		WHERE id = $1
	`
	var (
		a                            models.Address
		kind                         string
		recipientName, line2, state_ pgtype.Text
	)
	err = s.pool.QueryRow(ctx, addressQuery, order.ShippingAddressID).Scan(
		&a.ID, &a.CustomerID, &kind, &recipientName, &a.Line1, &line2,
		&a.City, &state_, &a.Postcode, &a.Country, &a.CreatedAt,
	)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err == nil {
		a.Kind = models.AddressKind(kind)
		a.RecipientName = recipientName.String
		a.Line2 = line2.String
		a.State = state_.String
		details.Address = &a
	}

	return details, nil
}

func (s *OrderStore) getItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, title, sku, quantity, unit_cents,
		       total_cents, is_gift, gift_message, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at
	`
	rows, err := s.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var (
			item             models.OrderItem
			sku, giftMessage pgtype.Text
		)
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Title, &sku,
			&item.Quantity, &item.UnitCents, &item.TotalCents, &item.IsGift, &giftMessage, &item.CreatedAt)
		if err != nil {
			return nil, err
		}
		item.SKU = sku.String
		item.GiftMessage = giftMessage.String
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *OrderStore) ListRecent(ctx context.Context, limit int) ([]*models.Order, error) {
	query := selectOrder + ` ORDER BY created_at DESC LIMIT $1`
	return s.listOrders(ctx, query, limit)
}

func (s *OrderStore) ListByStatus(ctx context.Context, status models.OrderStatus, limit int) ([]*models.Order, error) {
	query := selectOrder + ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2`
	return s.listOrders(ctx, query, string(status), limit)
}

func (s *OrderStore) listOrders(ctx context.Context, query string, args ...any) ([]*models.Order, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// MarkPaid flips a pending order to paid. Replayed webhooks hit the guard
// and come back as ErrInvalidStatusTransition.
func (s *OrderStore) MarkPaid(ctx context.Context, orderID uuid.UUID) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending'
	`
	return s.transition(ctx, query, "pending", models.StatusPaid, orderID)
}

func (s *OrderStore) MarkProcessing(ctx context.Context, orderID uuid.UUID) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'paid'
	`
	return s.transition(ctx, query, "paid", models.StatusProcessing, orderID)
}

func (s *OrderStore) MarkShipped(ctx context.Context, orderID uuid.UUID) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'processing'
	`
	return s.transition(ctx, query, "processing", models.StatusShipped, orderID)
}

func (s *OrderStore) MarkDelivered(ctx context.Context, orderID uuid.UUID) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'shipped'
	`
	return s.transition(ctx, query, "shipped", models.StatusDelivered, orderID)
}

func (s *OrderStore) Cancel(ctx context.Context, orderID uuid.UUID) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ('pending', 'paid', 'processing')
	`
	return s.transition(ctx, query, "pending/paid/processing", models.StatusCancelled, orderID)
}

// MarkRefunded moves any non-terminal order to refunded. Pending is included
// so a refund delivered before the session-completed event still lands.
func (s *OrderStore) MarkRefunded(ctx context.Context, orderID uuid.UUID) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ('pending', 'paid', 'processing', 'shipped', 'delivered')
	`
	return s.transition(ctx, query, "pending/paid/processing/shipped/delivered", models.StatusRefunded, orderID)
}

func (s *OrderStore) transition(ctx context.Context, query, expected string, to models.OrderStatus, orderID uuid.UUID) error {
	cmdTag, err := s.pool.Exec(ctx, query, to.String(), orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected %s", ErrInvalidStatusTransition, expected)
	}
	return nil
}

// CancelExpired cancels pending orders whose payment deadline has passed and
// returns their IDs. The reconciler runs this on a timer; the guard makes a
// concurrent webhook win the race cleanly.
func (s *OrderStore) CancelExpired(ctx context.Context) ([]uuid.UUID, error) {
	query := `
		UPDATE orders
		SET status = 'cancelled', updated_at = NOW()
		WHERE status = 'pending' AND payment_deadline IS NOT NULL AND payment_deadline < NOW()
		RETURNING id
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SalesSummary aggregates order counts and settled revenue for the admin
// dashboard. Revenue only counts orders that were actually paid for.
type SalesSummary struct {
	TotalOrders    int            `json:"total_orders"`
	OrdersByStatus map[string]int `json:"orders_by_status"`
	RevenueCents   int            `json:"revenue_cents"`
}

func (s *OrderStore) Summarize(ctx context.Context) (*SalesSummary, error) {
	query := `
		SELECT status, COUNT(*), COALESCE(SUM(total_cents), 0)
		FROM orders
		GROUP BY status
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := &SalesSummary{OrdersByStatus: map[string]int{}}
	for rows.Next() {
		var (
			status     string
			count      int
			totalCents int
		)
		if err := rows.Scan(&status, &count, &totalCents); err != nil {
			return nil, err
		}
		summary.TotalOrders += count
		summary.OrdersByStatus[status] = count
		switch models.OrderStatus(status) {
		case models.StatusPaid, models.StatusProcessing, models.StatusShipped, models.StatusDelivered:
			summary.RevenueCents += totalCents
		}
	}
	return summary, rows.Err()
}

const selectOrder = `
	SELECT id, customer_id, shipping_address_id, subtotal_cents, discount_cents,
	       shipping_cents, total_cents, currency, status, note, payment_deadline,
	       created_at, updated_at
	FROM orders`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		order    models.Order
		status   string
		note     pgtype.Text
		deadline pgtype.Timestamptz
	)
	err := row.Scan(
		&order.ID, &order.CustomerID, &order.ShippingAddressID,
		&order.SubtotalCents, &order.DiscountCents, &order.ShippingCents, &order.TotalCents,
		&order.Currency, &status, &note, &deadline, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.Status = models.OrderStatus(status)
	order.Note = note.String
	if deadline.Valid {
		order.PaymentDeadline = deadline.Time
	}
	return &order, nil
}
