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

type AddressStore struct {
	pool *pgxpool.Pool
}

func NewAddressStore(pool *pgxpool.Pool) *AddressStore {
	return &AddressStore{pool: pool}
}

// Create inserts a fresh address row. Addresses are never deduplicated or
// updated, so every order keeps an exact record of where it shipped.
func (s *AddressStore) Create(ctx context.Context, address *models.Address) error {
	if address.Kind == "" {
		address.Kind = models.AddressShipping
	}
	query := `
		INSERT INTO addresses (customer_id, kind, recipient_name, line1, line2, city, state, postcode, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	return s.pool.QueryRow(ctx, query,
		address.CustomerID,
		string(address.Kind),
		textOrNull(address.RecipientName),
		address.Line1,
		textOrNull(address.Line2),
		address.City,
		textOrNull(address.State),
		address.Postcode,
		address.Country,
	).Scan(&address.ID, &address.CreatedAt)
}

func (s *AddressStore) GetByID(ctx context.Context, addressID uuid.UUID) (*models.Address, error) {
	query := `
		SELECT id, customer_id, kind, recipient_name, line1, line2, city, state, postcode, country, created_at
		FROM addresses
		WHERE id = $1
	`
	var (
		a                            models.Address
		kind                         string
		recipientName, line2, state_ pgtype.Text
	)
	err := s.pool.QueryRow(ctx, query, addressID).Scan(
		&a.ID, &a.CustomerID, &kind, &recipientName, &a.Line1, &line2,
		&a.City, &state_, &a.Postcode, &a.Country, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("address by id: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	a.Kind = models.AddressKind(kind)
	a.RecipientName = recipientName.String
	a.Line2 = line2.String
	a.State = state_.String
	return &a, nil
}
