package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusPaid       OrderStatus = "paid"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
	StatusRefunded   OrderStatus = "refunded"
)

// IsTerminal reports whether no further transition can leave the status.
// Delivered is not terminal: a delivered order can still be refunded.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusCancelled, StatusRefunded:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the move from s to the given status is
// allowed. The db layer enforces the same table with conditional updates;
// this is the in-memory form for checks before a write.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	switch to {
	case StatusPaid:
		return s == StatusPending
	case StatusProcessing:
		return s == StatusPaid
	case StatusShipped:
		return s == StatusProcessing
	case StatusDelivered:
		return s == StatusShipped
	case StatusCancelled:
		return s == StatusPending || s == StatusPaid || s == StatusProcessing
	case StatusRefunded:
		return !s.IsTerminal() && s != ""
	default:
		return false
	}
}

func (s OrderStatus) String() string {
	return string(s)
}

type Order struct {
	ID                uuid.UUID   `json:"id"`
	CustomerID        uuid.UUID   `json:"customer_id"`
	ShippingAddressID uuid.UUID   `json:"shipping_address_id"`
	SubtotalCents     int         `json:"subtotal_cents"`
	DiscountCents     int         `json:"discount_cents"`
	ShippingCents     int         `json:"shipping_cents"`
	TotalCents        int         `json:"total_cents"`
	Currency          string      `json:"currency"`
	Status            OrderStatus `json:"status"`
	Note              string      `json:"note,omitempty"`
	PaymentDeadline   time.Time   `json:"payment_deadline"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// OrderItem is a snapshot of a cart line at submission time. Rows are
// written once alongside the order and never mutated afterwards.
type OrderItem struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	ProductID   string    `json:"product_id"`
	Title       string    `json:"title"`
	SKU         string    `json:"sku,omitempty"`
	Quantity    int       `json:"quantity"`
	UnitCents   int       `json:"unit_cents"`
	TotalCents  int       `json:"total_cents"`
	IsGift      bool      `json:"is_gift,omitempty"`
	GiftMessage string    `json:"gift_message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// OrderDetails joins an order with its items, customer, and shipping
// address for receipts, confirmation emails, and the admin order view.
type OrderDetails struct {
	Order    Order       `json:"order"`
	Items    []OrderItem `json:"items"`
	Customer *Customer   `json:"customer,omitempty"`
	Address  *Address    `json:"shipping_address,omitempty"`
}
