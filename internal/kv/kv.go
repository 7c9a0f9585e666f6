// Package kv defines the persistence port for the dashboard's keyed blobs.
// Stores persist whole-value blobs per key with last-writer-wins semantics;
// there is no versioning or conflict detection.
package kv

import (
	"context"
	"errors"
)

// ErrKeyNotFound indicates a key has never been written (or was deleted).
var ErrKeyNotFound = errors.New("kv: key not found")

// Store is a minimal keyed blob store. Implementations must treat Set as a
// full overwrite of the previous value.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
