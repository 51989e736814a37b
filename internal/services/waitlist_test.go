package services

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

type fakeWaitlistStore struct {
	emails map[string]bool
}

func (f *fakeWaitlistStore) Add(_ context.Context, email string) (bool, error) {
	if f.emails == nil {
		f.emails = map[string]bool{}
	}
	if f.emails[email] {
		return false, nil
	}
	f.emails[email] = true
	return true, nil
}

func (f *fakeWaitlistStore) Count(_ context.Context) (int, error) {
	return len(f.emails), nil
}

func TestLaunched(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		launchAt time.Time
		want     bool
	}{
		{"zero launch time means open", time.Time{}, true},
		{"past launch", time.Now().Add(-time.Hour), true},
		{"future launch", time.Now().Add(time.Hour), false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc := NewWaitlistService(&fakeWaitlistStore{}, nil, tc.launchAt, slog.Default())
			if got := svc.Launched(); got != tc.want {
				t.Fatalf("Launched() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestJoinIdempotent(t *testing.T) {
	t.Parallel()

	svc := NewWaitlistService(&fakeWaitlistStore{}, nil, time.Now().Add(time.Hour), slog.Default())

	created, err := svc.Join(context.Background(), "ana@example.com")
	if err != nil || !created {
		t.Fatalf("first join: created=%v err=%v", created, err)
	}
	created, err = svc.Join(context.Background(), "ana@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatal("resubmission must not be reported as new")
	}
}

func TestJoinInvalidEmail(t *testing.T) {
	t.Parallel()

	svc := NewWaitlistService(&fakeWaitlistStore{}, nil, time.Time{}, slog.Default())
	if _, err := svc.Join(context.Background(), "not-an-email"); err == nil {
		t.Fatal("expected error for invalid email")
	}
}
