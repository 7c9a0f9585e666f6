package users

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/YeJunlin777/yachts-system/internal/bus"
	"github.com/YeJunlin777/yachts-system/internal/domain"
	"github.com/YeJunlin777/yachts-system/internal/kv"
	"github.com/YeJunlin777/yachts-system/internal/store"
	"github.com/YeJunlin777/yachts-system/internal/validate"
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

func newService(t *testing.T) (Service, *store.SessionStore, *recordedActivity) {
	t.Helper()
	hash, err := crypto.HashPassword("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	mem := kv.NewMemoryStore()
	blob, _ := json.Marshal(map[string]any{
		"schema": 1,
		"users": []domain.User{
			{ID: "u1", Account: "admin1", DisplayName: "Admin", Email: "admin@x.com", Role: "admin", PasswordHash: hash},
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
	return New(userStore, sessions, recorder, newLogger()), sessions, recorder
}

func TestCreateValidatesBeforeMutating(t *testing.T) {
	svc, _, recorder := newService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateInput
		want  error
	}{
		{"short account", CreateInput{Account: "ab", Email: "a@x.com", Password: "secret1"}, validate.ErrAccountTooShort},
		{"bad email", CreateInput{Account: "abc", Email: "not-an-email", Password: "secret1"}, validate.ErrEmailMalformed},
		{"short password", CreateInput{Account: "abc", Email: "a@x.com", Password: "abc"}, validate.ErrPasswordTooShort},
		{"mismatch", CreateInput{Account: "abc", Email: "a@x.com", Password: "secret1", ConfirmPassword: "secret2"}, validate.ErrPasswordMismatch},
	}
	for _, tc := range cases {
		if _, err := svc.Create(ctx, tc.input, "Admin"); !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
	if len(svc.List(ctx)) != 1 {
		t.Fatalf("rejected inputs must not reach the store")
	}
	if len(recorder.entries) != 0 {
		t.Fatalf("validation failures must not be logged as activity")
	}
}

func TestCreateSanitizesAndRecords(t *testing.T) {
	svc, _, recorder := newService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateInput{
		Account:     "sales01",
		DisplayName: "Sales",
		Email:       "sales@x.com",
		Role:        "operator",
		Password:    "secret1",
	}, "Admin")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.PasswordHash != nil {
		t.Fatalf("service results must not carry credential hashes")
	}
	if len(recorder.entries) != 1 || recorder.entries[0].Module != "user" {
		t.Fatalf("expected one user-module entry: %+v", recorder.entries)
	}
}

func TestUpdateSkipsValidationForEmptyFields(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	user, err := svc.Update(ctx, "u1", UpdateInput{DisplayName: "Renamed"}, "Admin")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if user.DisplayName != "Renamed" || user.Email != "admin@x.com" {
		t.Fatalf("partial update changed the wrong fields: %+v", user)
	}
	if _, err := svc.Update(ctx, "u1", UpdateInput{Email: "nope"}, "Admin"); !errors.Is(err, validate.ErrEmailMalformed) {
		t.Fatalf("expected ErrEmailMalformed, got %v", err)
	}
}

func TestDeleteGuardsSignedInAccount(t *testing.T) {
	svc, sessions, _ := newService(t)
	ctx := context.Background()

	if _, err := sessions.Login(ctx, "admin1", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Delete(ctx, "u1", "Admin"); !errors.Is(err, store.ErrCannotDeleteSelf) {
		t.Fatalf("expected ErrCannotDeleteSelf, got %v", err)
	}

	other, err := svc.Create(ctx, CreateInput{Account: "temp01", Email: "t@x.com", Password: "secret1"}, "Admin")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, other.ID, "Admin"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(svc.List(ctx)) != 1 {
		t.Fatalf("expected single remaining user")
	}
}
