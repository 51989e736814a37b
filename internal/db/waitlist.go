package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type WaitlistStore struct {
	pool *pgxpool.Pool
}

func NewWaitlistStore(pool *pgxpool.Pool) *WaitlistStore {
	return &WaitlistStore{pool: pool}
}

// Add records an email on the pre-launch waitlist. Resubmissions are
// idempotent: the unique constraint swallows them and Add reports whether
// the row was new.
func (s *WaitlistStore) Add(ctx context.Context, email string) (bool, error) {
	query := `
		INSERT INTO waitlist (email)
		VALUES ($1)
		ON CONFLICT (email) DO NOTHING
	`
	cmdTag, err := s.pool.Exec(ctx, query, NormalizeEmail(email))
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}

func (s *WaitlistStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM waitlist`).Scan(&count)
	return count, err
}
