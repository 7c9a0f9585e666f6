package kv

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	ctx := context.Background()

	if _, err := store.Get(ctx, "yacht_users"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound for fresh store, got %v", err)
	}

	payload := []byte(`{"schema":1,"users":[]}`)
	if err := store.Set(ctx, "yacht_users", payload); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := store.Get(ctx, "yacht_users")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("unexpected payload: %s", got)
	}
}

func TestFileStoreOverwriteIsLastWriterWins(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("first")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "k", []byte("second")); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("expected last write to win, got %s", got)
	}
}

func TestFileStoreDeleteIsIdempotent(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound after delete, got %v", err)
	}
}

func TestFileStoreKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"yacht_users", "yacht_auth"} {
		if err := store.Set(ctx, key, []byte("{}")); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}
	keys, err := store.Keys()
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}
}

func TestEncryptedStoreSealsAtRest(t *testing.T) {
	inner := NewMemoryStore()
	store := NewEncryptedStore(inner, "storage-secret")
	ctx := context.Background()

	payload := []byte(`{"isLoggedIn":true}`)
	if err := store.Set(ctx, "yacht_auth", payload); err != nil {
		t.Fatalf("set: %v", err)
	}

	raw, err := inner.Get(ctx, "yacht_auth")
	if err != nil {
		t.Fatalf("inner get: %v", err)
	}
	if bytes.Contains(raw, []byte("isLoggedIn")) {
		t.Fatalf("expected ciphertext at rest, got plaintext: %s", raw)
	}

	got, err := store.Get(ctx, "yacht_auth")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: %s", got)
	}
}
