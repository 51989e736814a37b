package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestManager_CreateAndGetSession(t *testing.T) {
	t.Parallel()

	manager := NewManager(NewMemoryStore(), false)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	created, err := manager.CreateSession(ctx, rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.CartID == "" {
		t.Fatal("expected a cart ID on the fresh session")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	cookie := cookies[0]
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected cookie attributes: %+v", cookie)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	loaded, err := manager.GetSession(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.CartID != created.CartID {
		t.Fatalf("cart ID mismatch: got=%q want=%q", loaded.CartID, created.CartID)
	}
}

func TestManager_GetSessionWithoutCookie(t *testing.T) {
	t.Parallel()

	manager := NewManager(NewMemoryStore(), false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := manager.GetSession(context.Background(), req); err == nil {
		t.Fatal("expected error without a session cookie")
	}
}

func TestManager_UpdateSession(t *testing.T) {
	t.Parallel()

	manager := NewManager(NewMemoryStore(), false)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	sess, err := manager.CreateSession(ctx, rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])

	orderID := uuid.New()
	sess.PendingOrderID = orderID
	if err := manager.UpdateSession(ctx, req, sess); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := manager.GetSession(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.PendingOrderID != orderID {
		t.Fatalf("expected pending order %s, got %s", orderID, loaded.PendingOrderID)
	}
}

func TestManager_DestroySession(t *testing.T) {
	t.Parallel()

	manager := NewManager(NewMemoryStore(), false)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	if _, err := manager.CreateSession(ctx, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])

	clearRec := httptest.NewRecorder()
	if err := manager.DestroySession(ctx, clearRec, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := manager.GetSession(ctx, req); err == nil {
		t.Fatal("expected session to be gone after destroy")
	}

	cleared := clearRec.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge != -1 {
		t.Fatalf("expected an expiring cookie, got %+v", cleared)
	}
}

func TestMemoryStore_CloneIsolation(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	data := &Data{CartID: "cart-1"}
	store.Set(ctx, "sess", data, time.Hour)
	data.CartID = "mutated"

	loaded, ok := store.Get(ctx, "sess")
	if !ok || loaded.CartID != "cart-1" {
		t.Fatalf("expected stored snapshot, got %+v", loaded)
	}
	loaded.CartID = "mutated"

	again, ok := store.Get(ctx, "sess")
	if !ok || again.CartID != "cart-1" {
		t.Fatalf("store leaked internal state: %+v", again)
	}
}
