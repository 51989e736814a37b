package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is looked up by normalized email at checkout time and created
// when absent. The checkout flow never updates an existing row in place.
type Customer struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type AddressKind string

const (
	AddressShipping AddressKind = "shipping"
	AddressBilling  AddressKind = "billing"
)

// Address rows are inserted once per order and never reused, so each order
// keeps an immutable record of where it shipped.
type Address struct {
	ID            uuid.UUID   `json:"id"`
	CustomerID    uuid.UUID   `json:"customer_id"`
	Kind          AddressKind `json:"kind"`
	RecipientName string      `json:"recipient_name,omitempty"`
	Line1         string      `json:"line1"`
	Line2         string      `json:"line2,omitempty"`
	City          string      `json:"city"`
	State         string      `json:"state,omitempty"`
	Postcode      string      `json:"postcode"`
	Country       string      `json:"country"`
	CreatedAt     time.Time   `json:"created_at"`
}
