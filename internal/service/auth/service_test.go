package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/YeJunlin777/yachts-system/internal/bus"
	"github.com/YeJunlin777/yachts-system/internal/domain"
	"github.com/YeJunlin777/yachts-system/internal/kv"
	"github.com/YeJunlin777/yachts-system/internal/store"
	"github.com/YeJunlin777/yachts-system/internal/validate"
	"github.com/YeJunlin777/yachts-system/pkg/config"
	"github.com/YeJunlin777/yachts-system/pkg/crypto"
)

type recordedActivity struct {
	entries []domain.ActivityEntry
}

func (r *recordedActivity) Append(_ context.Context, entry domain.ActivityEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T) (Service, *recordedActivity, *store.SessionStore) {
	t.Helper()
	hash, err := crypto.HashPassword("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	mem := kv.NewMemoryStore()
	blob, _ := json.Marshal(map[string]any{
		"schema": 1,
		"users": []domain.User{
			{ID: "u1", Account: "a1", DisplayName: "One", Email: "a@x.com", Role: "admin", PasswordHash: hash},
		},
	})
	if err := mem.Set(context.Background(), "yacht_users", blob); err != nil {
		t.Fatalf("seed: %v", err)
	}
	b := bus.New()
	userStore, err := store.NewUserStore(context.Background(), mem, b, newLogger())
	if err != nil {
		t.Fatalf("user store: %v", err)
	}
	sessions, err := store.NewSessionStore(context.Background(), mem, b, userStore, newLogger())
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	recorder := &recordedActivity{}
	cfg := config.APIConfig{JWTSecret: "test-secret", AccessTokenTTL: time.Hour}
	return New(sessions, recorder, newLogger(), cfg), recorder, sessions
}

func TestLoginIssuesTokenBoundToSession(t *testing.T) {
	svc, recorder, _ := newService(t)
	ctx := context.Background()

	user, token, err := svc.Login(ctx, "a1", "secret1", "10.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Account != "a1" || token == "" {
		t.Fatalf("unexpected login result: %+v token=%q", user, token)
	}

	authorized, claims, err := svc.Authorize(ctx, token)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if authorized.ID != "u1" || claims.Account != "a1" {
		t.Fatalf("unexpected authorization: %+v %+v", authorized, claims)
	}
	if len(recorder.entries) == 0 || recorder.entries[0].Result != domain.ActivitySuccess {
		t.Fatalf("login must record activity: %+v", recorder.entries)
	}
}

func TestAuthorizeRejectsAfterLogout(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, token, err := svc.Login(ctx, "a1", "secret1", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	svc.Logout(ctx, "")
	if _, _, err := svc.Authorize(ctx, token); !errors.Is(err, ErrSessionMismatch) {
		t.Fatalf("expected ErrSessionMismatch, got %v", err)
	}
}

func TestLoginFailureRecordsActivity(t *testing.T) {
	svc, recorder, sessions := newService(t)
	ctx := context.Background()

	if _, _, err := svc.Login(ctx, "a1", "wrong", "10.0.0.1"); !errors.Is(err, store.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if sessions.Current().IsLoggedIn {
		t.Fatalf("failed login must not authenticate")
	}
	if len(recorder.entries) != 1 || recorder.entries[0].Result != domain.ActivityError {
		t.Fatalf("expected one error entry: %+v", recorder.entries)
	}
}

func TestChangePasswordValidatesFirst(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	if err := svc.ChangePassword(ctx, "a1", "secret1", "short", "short", ""); !errors.Is(err, validate.ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if err := svc.ChangePassword(ctx, "a1", "secret1", "newsecret", "other", ""); !errors.Is(err, validate.ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	// Validation failures must leave the credential untouched.
	if _, _, err := svc.Login(ctx, "a1", "secret1", ""); err != nil {
		t.Fatalf("original password should still work: %v", err)
	}
	if err := svc.ChangePassword(ctx, "a1", "secret1", "newsecret", "newsecret", ""); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, _, err := svc.Login(ctx, "a1", "newsecret", ""); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}
