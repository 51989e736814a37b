package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mateabags/storefront/internal/models"
)

// ErrNotFound is returned by store getters when no row matches.
var ErrNotFound = errors.New("not found")

type CustomerStore struct {
	pool *pgxpool.Pool
}

func NewCustomerStore(pool *pgxpool.Pool) *CustomerStore {
	return &CustomerStore{pool: pool}
}

// NormalizeEmail is the canonical form used for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *CustomerStore) GetByEmail(ctx context.Context, email string) (*models.Customer, error) {
	query := `
		SELECT id, name, email, phone, created_at
		FROM customers
		WHERE email = $1
	`
	var (
		c           models.Customer
		name, phone pgtype.Text
	)
	err := s.pool.QueryRow(ctx, query, NormalizeEmail(email)).
		Scan(&c.ID, &name, &c.Email, &phone, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("customer by email: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	c.Name = name.String
	c.Phone = phone.String
	return &c, nil
}

func (s *CustomerStore) Create(ctx context.Context, customer *models.Customer) error {
	query := `
		INSERT INTO customers (name, email, phone)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	customer.Email = NormalizeEmail(customer.Email)
	return s.pool.QueryRow(ctx, query,
		textOrNull(customer.Name),
		customer.Email,
		textOrNull(customer.Phone),
	).Scan(&customer.ID, &customer.CreatedAt)
}

func textOrNull(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func timestamptzOrNull(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}
