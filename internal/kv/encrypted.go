package kv

import (
	"context"

	"github.com/YeJunlin777/yachts-system/pkg/crypto"
)

// EncryptedStore wraps another Store and seals values with AES-GCM. The
// persisted users blob contains credential hashes and the session blob a
// user snapshot, so at-rest encryption is offered as an opt-in wrapper.
type EncryptedStore struct {
	inner  Store
	secret string
}

// NewEncryptedStore wraps inner with the given key material.
func NewEncryptedStore(inner Store, secret string) *EncryptedStore {
	return &EncryptedStore{inner: inner, secret: secret}
}

var _ Store = (*EncryptedStore)(nil)

func (s *EncryptedStore) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return crypto.Decrypt(s.secret, sealed)
}

func (s *EncryptedStore) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := crypto.Encrypt(s.secret, value)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, sealed)
}

func (s *EncryptedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *EncryptedStore) Close() error {
	return s.inner.Close()
}
