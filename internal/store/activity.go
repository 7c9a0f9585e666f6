package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/YeJunlin777/yachts-system/internal/bus"
	"github.com/YeJunlin777/yachts-system/internal/domain"
	"github.com/YeJunlin777/yachts-system/internal/fixtures"
	"github.com/YeJunlin777/yachts-system/internal/kv"
)

const activityKey = "yacht_logs"

// maxActivityEntries caps the persisted log so the blob cannot grow without
// bound; the oldest entries are dropped first.
const maxActivityEntries = 1000

type activityBlob struct {
	Schema  int                    `json:"schema"`
	Entries []domain.ActivityEntry `json:"entries"`
}

// ActivityStore is the append-only operation log behind the logs page.
type ActivityStore struct {
	mu      sync.RWMutex
	kv      kv.Store
	bus     *bus.Bus
	logger  *slog.Logger
	entries []domain.ActivityEntry
}

// NewActivityStore loads the persisted log or falls back to fixtures.
func NewActivityStore(ctx context.Context, store kv.Store, b *bus.Bus, logger *slog.Logger) (*ActivityStore, error) {
	s := &ActivityStore{kv: store, bus: b, logger: logger}

	data, err := store.Get(ctx, activityKey)
	if err == nil {
		var blob activityBlob
		if jsonErr := json.Unmarshal(data, &blob); jsonErr == nil && blob.Schema == schemaVersion {
			s.entries = blob.Entries
			return s, nil
		}
		logger.Warn("persisted activity blob unreadable, reseeding from fixture", "key", activityKey)
	} else if err != kv.ErrKeyNotFound {
		return nil, err
	}

	seeded, err := fixtures.Activity()
	if err != nil {
		return nil, err
	}
	s.entries = seeded
	return s, nil
}

// List returns entries newest first.
func (s *ActivityStore) List() []domain.ActivityEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ActivityEntry, len(s.entries))
	for i, e := range s.entries {
		out[len(s.entries)-1-i] = e
	}
	return out
}

// Append records one operation and notifies log views.
func (s *ActivityStore) Append(ctx context.Context, entry domain.ActivityEntry) error {
	if entry.ID == "" {
		entry.ID = "act-" + uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	if len(s.entries) > maxActivityEntries {
		s.entries = s.entries[len(s.entries)-maxActivityEntries:]
	}
	err := s.persistLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.bus.Publish(bus.TopicActivity)
	return nil
}

func (s *ActivityStore) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(activityBlob{Schema: schemaVersion, Entries: s.entries})
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, activityKey, data); err != nil {
		s.logger.Error("activity blob write failed", "error", err)
		return err
	}
	return nil
}
