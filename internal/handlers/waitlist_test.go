package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mateabags/storefront/internal/services"
)

func TestStorefrontStatus_Launched(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/storefront/status", nil)
	rec := httptest.NewRecorder()

	env.handlers.StorefrontStatus(rec, req)

	var status struct {
		Launched bool   `json:"launched"`
		LaunchAt string `json:"launch_at"`
	}
	decodeData(t, rec, &status)
	if !status.Launched {
		t.Fatal("expected launched storefront")
	}
	if status.LaunchAt != "" {
		t.Fatalf("expected no launch_at for an immediate launch, got %q", status.LaunchAt)
	}
}

func TestStorefrontStatus_BeforeLaunch(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	launchAt := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	env.handlers.waitlistService = services.NewWaitlistService(env.waitlist, nil, launchAt, env.handlers.logger)

	req := httptest.NewRequest(http.MethodGet, "/storefront/status", nil)
	rec := httptest.NewRecorder()

	env.handlers.StorefrontStatus(rec, req)

	var status struct {
		Launched bool   `json:"launched"`
		LaunchAt string `json:"launch_at"`
	}
	decodeData(t, rec, &status)
	if status.Launched {
		t.Fatal("expected storefront to be gated before launch")
	}
	if status.LaunchAt == "" {
		t.Fatal("expected launch_at to be announced")
	}
}

func TestWaitlistJoin_NewSignup(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/waitlist", strings.NewReader(`{"email":"Fan@Example.COM"}`))
	rec := httptest.NewRecorder()

	env.handlers.WaitlistJoin(rec, req)

	var resp struct {
		Joined bool `json:"joined"`
		New    bool `json:"new"`
	}
	decodeData(t, rec, &resp)
	if !resp.Joined || !resp.New {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !env.waitlist.seen["fan@example.com"] {
		t.Fatalf("expected normalized email in store, got %v", env.waitlist.seen)
	}
}

func TestWaitlistJoin_ResubmissionIsNotAnError(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.waitlist.seen["fan@example.com"] = true

	req := httptest.NewRequest(http.MethodPost, "/waitlist", strings.NewReader(`{"email":"fan@example.com"}`))
	rec := httptest.NewRecorder()

	env.handlers.WaitlistJoin(rec, req)

	var resp struct {
		Joined bool `json:"joined"`
		New    bool `json:"new"`
	}
	decodeData(t, rec, &resp)
	if !resp.Joined || resp.New {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestWaitlistJoin_InvalidEmail(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/waitlist", strings.NewReader(`{"email":"not an address"}`))
	rec := httptest.NewRecorder()

	env.handlers.WaitlistJoin(rec, req)

	requireErrorCode(t, rec, http.StatusBadRequest, codeValidation)
}

func TestWaitlistJoin_StoreFailure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.waitlist.addErr = errors.New("connection refused")

	req := httptest.NewRequest(http.MethodPost, "/waitlist", strings.NewReader(`{"email":"fan@example.com"}`))
	rec := httptest.NewRecorder()

	env.handlers.WaitlistJoin(rec, req)

	requireErrorCode(t, rec, http.StatusInternalServerError, codeInternal)
}
