package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateEvent is returned when a webhook event ID has already been
// recorded. The unique constraint on stripe_event_id is the authoritative
// dedup; the cache in front of it is only a fast path.
var ErrDuplicateEvent = errors.New("duplicate stripe event")

type EventStore struct {
	pool *pgxpool.Pool
}

func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Insert records a received webhook event. An event already recorded as
// received or processed maps to ErrDuplicateEvent so the handler can
// acknowledge the replay; a previously failed event is re-armed so the
// provider's retry gets another run.
func (s *EventStore) Insert(ctx context.Context, stripeEventID, kind string, payload []byte) (uuid.UUID, error) {
	query := `
		INSERT INTO stripe_events (stripe_event_id, kind, payload, status)
		VALUES ($1, $2, $3, 'received')
		ON CONFLICT (stripe_event_id) DO UPDATE
		SET status = 'received', processed_at = NULL
		WHERE stripe_events.status = 'failed'
		RETURNING id
	`
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, query, stripeEventID, kind, payload).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrDuplicateEvent
	}
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// MarkProcessed stamps the event once its processor ran, linking the order
// and payment it touched for audit queries.
func (s *EventStore) MarkProcessed(ctx context.Context, eventID uuid.UUID, orderID, paymentID uuid.UUID) error {
	query := `
		UPDATE stripe_events
		SET status = 'processed', order_id = $2, payment_id = $3, processed_at = NOW()
		WHERE id = $1
	`
	_, err := s.pool.Exec(ctx, query, eventID, uuidOrNull(orderID), uuidOrNull(paymentID))
	return err
}

// MarkFailed stamps the event when its processor returned an error, so the
// retry from Stripe can be correlated with the original failure.
func (s *EventStore) MarkFailed(ctx context.Context, eventID uuid.UUID) error {
	query := `
		UPDATE stripe_events
		SET status = 'failed', processed_at = NOW()
		WHERE id = $1
	`
	_, err := s.pool.Exec(ctx, query, eventID)
	return err
}

func uuidOrNull(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: id != uuid.Nil}
}
