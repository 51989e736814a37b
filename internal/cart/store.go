package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mateabags/storefront/internal/cache"
)

// snapshotTTL matches the session lifetime so an idle cart survives as long
// as the cookie that references it.
const snapshotTTL = 30 * 24 * time.Hour

// Store persists whole-state cart snapshots in the cache provider. Every
// mutation overwrites the snapshot under the cart's single key; there is no
// partial persistence.
type Store struct {
	provider cache.Provider
}

func NewStore(provider cache.Provider) *Store {
	return &Store{provider: provider}
}

// Load returns the cart for the given ID, or the empty state when no
// snapshot exists yet.
func (s *Store) Load(ctx context.Context, cartID string) (State, error) {
	raw, err := s.provider.Get(ctx, cache.CartKey(cartID))
	if errors.Is(err, cache.ErrNotFound) {
		return Empty(), nil
	}
	if err != nil {
		return Empty(), fmt.Errorf("failed to load cart snapshot: %w", err)
	}

	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return Empty(), fmt.Errorf("failed to decode cart snapshot: %w", err)
	}
	if state.Lines == nil {
		state.Lines = []Line{}
	}
	return state, nil
}

// Save overwrites the cart snapshot.
func (s *Store) Save(ctx context.Context, cartID string, state State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode cart snapshot: %w", err)
	}
	if err := s.provider.Set(ctx, cache.CartKey(cartID), string(raw), snapshotTTL); err != nil {
		return fmt.Errorf("failed to save cart snapshot: %w", err)
	}
	return nil
}

// Delete removes the snapshot, used after a successful checkout submission.
func (s *Store) Delete(ctx context.Context, cartID string) error {
	return s.provider.Delete(ctx, cache.CartKey(cartID))
}
