// Package session provides cookie-backed visitor sessions.
package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	cookieName = "mateabags_session"
	ttl        = 30 * 24 * time.Hour
)

// Data is what a visitor session carries: the cart snapshot key and, after
// a checkout submission, the order the visitor is currently paying for.
// PendingOrderID doubles as the double-submit guard and the "pending order"
// marker cleared by the success page.
type Data struct {
	CartID            string    `json:"cart_id"`
	PendingOrderID    uuid.UUID `json:"pending_order_id,omitempty"`
	PendingOrderSetAt int64     `json:"pending_order_set_at,omitempty"`
	CreatedAt         int64     `json:"created_at"`
}

// Manager handles session creation, retrieval, and storage.
type Manager struct {
	store  Store
	secure bool
}

// Store defines the interface for session storage.
type Store interface {
	Get(ctx context.Context, key string) (*Data, bool)
	Set(ctx context.Context, key string, data *Data, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Close() error
}

func NewManager(store Store, secure bool) *Manager {
	return &Manager{
		store:  store,
		secure: secure,
	}
}

func (m *Manager) Close() error {
	if m == nil || m.store == nil {
		return nil
	}
	return m.store.Close()
}

// CreateSession creates a new session with a fresh cart ID and sets the cookie.
func (m *Manager) CreateSession(ctx context.Context, w http.ResponseWriter) (*Data, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}

	sessionID := uuid.NewString()
	data := &Data{
		CartID:    uuid.NewString(),
		CreatedAt: time.Now().Unix(),
	}
	m.store.Set(ctx, sessionID, data, ttl)

	cookie := &http.Cookie{
		Name:     cookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, cookie)

	return cloneData(data), nil
}

// GetSession retrieves the session data from the request cookie.
func (m *Manager) GetSession(ctx context.Context, r *http.Request) (*Data, error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return nil, fmt.Errorf("no session cookie found: %w", err)
	}

	if ctx == nil {
		ctx = r.Context()
	}

	data, ok := m.store.Get(ctx, cookie.Value)
	if !ok {
		return nil, fmt.Errorf("session not found or expired")
	}

	if time.Now().Unix()-data.CreatedAt > int64(ttl.Seconds()) {
		m.store.Delete(ctx, cookie.Value)
		return nil, fmt.Errorf("session expired")
	}

	return data, nil
}

// UpdateSession rewrites the session data under the existing session ID.
func (m *Manager) UpdateSession(ctx context.Context, r *http.Request, data *Data) error {
	if data == nil {
		return fmt.Errorf("session data is required")
	}

	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return fmt.Errorf("no session cookie found: %w", err)
	}

	if ctx == nil {
		ctx = r.Context()
	}

	m.store.Set(ctx, cookie.Value, cloneData(data), ttl)
	return nil
}

// DestroySession removes the session and clears the cookie.
func (m *Manager) DestroySession(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(cookieName)
	if ctx == nil {
		ctx = r.Context()
	}
	if err == nil {
		m.store.Delete(ctx, cookie.Value)
	}

	clearCookie := &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, clearCookie)

	return nil
}

func cloneData(data *Data) *Data {
	if data == nil {
		return nil
	}
	cloned := *data
	return &cloned
}
