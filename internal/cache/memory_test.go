package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryProvider_SetGet(t *testing.T) {
	t.Parallel()

	provider, err := NewMemoryProvider()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	if err := provider.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, err := provider.Get(ctx, "k")
	if err != nil || value != "v" {
		t.Fatalf("unexpected get: value=%q err=%v", value, err)
	}
}

func TestMemoryProvider_MissingKey(t *testing.T) {
	t.Parallel()

	provider, _ := NewMemoryProvider()

	_, err := provider.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryProvider_Expiry(t *testing.T) {
	t.Parallel()

	provider, _ := NewMemoryProvider()
	ctx := context.Background()

	if err := provider.Set(ctx, "k", "v", -time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := provider.Get(ctx, "k")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired key, got %v", err)
	}
}

func TestMemoryProvider_SetNX(t *testing.T) {
	t.Parallel()

	provider, _ := NewMemoryProvider()
	ctx := context.Background()

	stored, err := provider.SetNX(ctx, "lock", "a", time.Minute)
	if err != nil || !stored {
		t.Fatalf("expected first SetNX to store: stored=%v err=%v", stored, err)
	}

	stored, err = provider.SetNX(ctx, "lock", "b", time.Minute)
	if err != nil || stored {
		t.Fatalf("expected second SetNX to be refused: stored=%v err=%v", stored, err)
	}

	value, err := provider.Get(ctx, "lock")
	if err != nil || value != "a" {
		t.Fatalf("expected original value to survive: value=%q err=%v", value, err)
	}
}

func TestMemoryProvider_SetNXAfterExpiry(t *testing.T) {
	t.Parallel()

	provider, _ := NewMemoryProvider()
	ctx := context.Background()

	if _, err := provider.SetNX(ctx, "lock", "a", -time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := provider.SetNX(ctx, "lock", "b", time.Minute)
	if err != nil || !stored {
		t.Fatalf("expected SetNX to win over expired key: stored=%v err=%v", stored, err)
	}
}

func TestMemoryProvider_Delete(t *testing.T) {
	t.Parallel()

	provider, _ := NewMemoryProvider()
	ctx := context.Background()

	_ = provider.Set(ctx, "k", "v", time.Minute)
	if err := provider.Delete(ctx, "k"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := provider.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestNewProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provider string
		wantErr  bool
	}{
		{name: "default provider", provider: "", wantErr: false},
		{name: "memory provider", provider: "memory", wantErr: false},
		{name: "unsupported provider", provider: "unsupported", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			provider, err := NewProvider(Config{Provider: tt.provider})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if err := provider.Close(); err != nil {
				t.Fatalf("expected close without error, got %v", err)
			}
		})
	}
}
