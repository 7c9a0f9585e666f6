package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/YeJunlin777/yachts-system/internal/bus"
	"github.com/YeJunlin777/yachts-system/internal/domain"
	"github.com/YeJunlin777/yachts-system/internal/kv"
	"github.com/YeJunlin777/yachts-system/pkg/crypto"
)

// SessionStore holds the single authenticated-identity slot. The slot stores
// a sanitized snapshot of the user taken at login; re-login overwrites it,
// logout clears it, and nothing expires it.
type SessionStore struct {
	mu     sync.RWMutex
	kv     kv.Store
	bus    *bus.Bus
	users  *UserStore
	logger *slog.Logger
	state  domain.AuthState
}

// NewSessionStore loads the persisted session blob; a missing, corrupt or
// unknown-schema blob yields the anonymous state.
func NewSessionStore(ctx context.Context, store kv.Store, b *bus.Bus, users *UserStore, logger *slog.Logger) (*SessionStore, error) {
	s := &SessionStore{kv: store, bus: b, users: users, logger: logger}

	data, err := store.Get(ctx, sessionKey)
	if err != nil {
		if err == kv.ErrKeyNotFound {
			return s, nil
		}
		return nil, err
	}
	var blob sessionBlob
	if jsonErr := json.Unmarshal(data, &blob); jsonErr != nil || blob.Schema != schemaVersion {
		logger.Warn("persisted session blob unreadable, starting anonymous", "key", sessionKey)
		return s, nil
	}
	s.state = domain.AuthState{IsLoggedIn: blob.IsLoggedIn, User: blob.User}
	return s, nil
}

// Login verifies credentials against the user store and, on success,
// captures the matched record as the session identity.
func (s *SessionStore) Login(ctx context.Context, account, password string) (domain.User, error) {
	user, err := s.users.GetByAccount(account)
	if err != nil {
		return domain.User{}, err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}

	snapshot := user.Sanitized()
	s.mu.Lock()
	s.state = domain.AuthState{IsLoggedIn: true, User: &snapshot}
	err = s.persistLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return domain.User{}, err
	}
	s.bus.Publish(bus.TopicSession)
	return snapshot, nil
}

// Logout unconditionally clears the slot. Calling it while anonymous is a
// no-op with the same observable end state.
func (s *SessionStore) Logout(ctx context.Context) {
	s.mu.Lock()
	s.state = domain.AuthState{}
	if err := s.kv.Delete(ctx, sessionKey); err != nil {
		s.logger.Error("session blob delete failed", "error", err)
	}
	s.mu.Unlock()
	s.bus.Publish(bus.TopicSession)
}

// ChangePassword rotates the credential for an account. It is independent of
// session state: the lookup is by account, not by the current identity, and
// the secret swap bypasses the user-update email checks.
func (s *SessionStore) ChangePassword(ctx context.Context, account, oldPassword, newPassword string) error {
	user, err := s.users.GetByAccount(account)
	if err != nil {
		return err
	}
	if err := crypto.ComparePassword(user.PasswordHash, oldPassword); err != nil {
		return ErrWrongOldPassword
	}
	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.replaceSecret(ctx, account, hash)
}

// Current returns the session state as a copied value.
func (s *SessionStore) Current() domain.AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := s.state
	if state.User != nil {
		snapshot := *state.User
		state.User = &snapshot
	}
	return state
}

// CurrentUserID returns the signed-in user's id, or "" when anonymous.
func (s *SessionStore) CurrentUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.state.IsLoggedIn || s.state.User == nil {
		return ""
	}
	return s.state.User.ID
}

func (s *SessionStore) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(sessionBlob{
		Schema:     schemaVersion,
		IsLoggedIn: s.state.IsLoggedIn,
		User:       s.state.User,
	})
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, sessionKey, data); err != nil {
		s.logger.Error("session blob write failed", "error", err)
		return err
	}
	return nil
}
