// Package store implements the authoritative in-memory user and session
// stores. Both hold their state in process memory, write it through the kv
// persistence port on every mutation, and publish a bus topic so subscribed
// views re-read after each commit.
package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/YeJunlin777/yachts-system/internal/bus"
	"github.com/YeJunlin777/yachts-system/internal/domain"
	"github.com/YeJunlin777/yachts-system/internal/fixtures"
	"github.com/YeJunlin777/yachts-system/internal/kv"
	"github.com/YeJunlin777/yachts-system/pkg/crypto"
)

// UserStore is the process-wide mapping from account identity to user
// attributes. Insertion order is preserved; account and email are unique
// across the whole store, enforced at mutation time.
type UserStore struct {
	mu     sync.RWMutex
	kv     kv.Store
	bus    *bus.Bus
	logger *slog.Logger
	users  []domain.User
}

// CreateUserInput carries the fields for a new account.
type CreateUserInput struct {
	Account     string
	DisplayName string
	Email       string
	Role        string
	Password    string
}

// UpdateUserInput carries a partial update; empty fields keep prior values.
type UpdateUserInput struct {
	DisplayName string
	Email       string
	Role        string
	Password    string
}

// NewUserStore loads the persisted users blob, falling back to the bundled
// fixture when the blob is absent or carries an unknown schema. The fixture
// is not written back; the first mutation materializes the blob.
func NewUserStore(ctx context.Context, store kv.Store, b *bus.Bus, logger *slog.Logger) (*UserStore, error) {
	s := &UserStore{kv: store, bus: b, logger: logger}

	data, err := store.Get(ctx, usersKey)
	if err == nil {
		var blob usersBlob
		if jsonErr := json.Unmarshal(data, &blob); jsonErr == nil && blob.Schema == schemaVersion {
			s.users = blob.Users
			return s, nil
		}
		logger.Warn("persisted users blob unreadable, reseeding from fixture", "key", usersKey)
	} else if err != kv.ErrKeyNotFound {
		return nil, err
	}

	seeded, err := seedUsers()
	if err != nil {
		return nil, err
	}
	s.users = seeded
	return s, nil
}

func seedUsers() ([]domain.User, error) {
	seeds, err := fixtures.Users()
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(seeds))
	for _, seed := range seeds {
		hash, err := crypto.HashPassword(seed.DefaultPassword)
		if err != nil {
			return nil, err
		}
		users = append(users, domain.User{
			ID:           seed.ID,
			Account:      seed.Account,
			DisplayName:  seed.DisplayName,
			Email:        seed.Email,
			Role:         seed.Role,
			PasswordHash: hash,
			LastLogin:    seed.LastLogin,
		})
	}
	return users, nil
}

// List returns a snapshot of all users in insertion order.
func (s *UserStore) List() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, len(s.users))
	copy(out, s.users)
	return out
}

// GetByAccount returns the user with the given login handle.
func (s *UserStore) GetByAccount(account string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Account == account {
			return u, nil
		}
	}
	return domain.User{}, ErrAccountNotFound
}

// GetByID returns the user with the given id.
func (s *UserStore) GetByID(id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, ErrUserNotFound
}

// Create appends a new user. Account and email must both be unused.
// The bus fires after the lock is released so observers may re-read the
// store from inside their callback.
func (s *UserStore) Create(ctx context.Context, input CreateUserInput) (domain.User, error) {
	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return domain.User{}, err
	}

	s.mu.Lock()
	user, err := s.createLocked(ctx, input, hash)
	s.mu.Unlock()
	if err != nil {
		return domain.User{}, err
	}
	s.bus.Publish(bus.TopicUsers)
	return user, nil
}

func (s *UserStore) createLocked(ctx context.Context, input CreateUserInput, hash []byte) (domain.User, error) {
	for _, u := range s.users {
		if u.Account == input.Account {
			return domain.User{}, ErrDuplicateAccount
		}
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, input.Email) {
			return domain.User{}, ErrDuplicateEmail
		}
	}

	user := domain.User{
		ID:           "usr-" + uuid.NewString(),
		Account:      input.Account,
		DisplayName:  input.DisplayName,
		Email:        input.Email,
		Role:         input.Role,
		PasswordHash: hash,
		LastLogin:    time.Now().UTC(),
	}
	s.users = append(s.users, user)
	if err := s.persistLocked(ctx); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Update overwrites the supplied fields of the user with the given id.
// An empty field means "no change"; there is no clear-field operation.
func (s *UserStore) Update(ctx context.Context, id string, input UpdateUserInput) (domain.User, error) {
	var hash []byte
	if input.Password != "" {
		var err error
		hash, err = crypto.HashPassword(input.Password)
		if err != nil {
			return domain.User{}, err
		}
	}

	s.mu.Lock()
	updated, err := s.updateLocked(ctx, id, input, hash)
	s.mu.Unlock()
	if err != nil {
		return domain.User{}, err
	}
	s.bus.Publish(bus.TopicUsers)
	return updated, nil
}

func (s *UserStore) updateLocked(ctx context.Context, id string, input UpdateUserInput, hash []byte) (domain.User, error) {
	idx := -1
	for i, u := range s.users {
		if u.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return domain.User{}, ErrUserNotFound
	}
	if input.Email != "" {
		for _, u := range s.users {
			if u.ID != id && strings.EqualFold(u.Email, input.Email) {
				return domain.User{}, ErrDuplicateEmail
			}
		}
	}

	updated := s.users[idx]
	if input.DisplayName != "" {
		updated.DisplayName = input.DisplayName
	}
	if input.Email != "" {
		updated.Email = input.Email
	}
	if input.Role != "" {
		updated.Role = input.Role
	}
	if hash != nil {
		updated.PasswordHash = hash
	}
	s.users[idx] = updated
	if err := s.persistLocked(ctx); err != nil {
		return domain.User{}, err
	}
	return updated, nil
}

// Delete removes the user with the given id. Deleting the account behind the
// current session is disallowed; callers pass the session's user id (empty
// when anonymous).
func (s *UserStore) Delete(ctx context.Context, id, currentSessionUserID string) error {
	s.mu.Lock()
	err := s.deleteLocked(ctx, id, currentSessionUserID)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.bus.Publish(bus.TopicUsers)
	return nil
}

func (s *UserStore) deleteLocked(ctx context.Context, id, currentSessionUserID string) error {
	idx := -1
	for i, u := range s.users {
		if u.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrUserNotFound
	}
	if currentSessionUserID != "" && id == currentSessionUserID {
		return ErrCannotDeleteSelf
	}
	s.users = append(s.users[:idx], s.users[idx+1:]...)
	return s.persistLocked(ctx)
}

// replaceSecret swaps the credential hash for an account, bypassing the
// update path's email checks. Used by the session store's change-password
// flow, which operates by account lookup rather than by id.
func (s *UserStore) replaceSecret(ctx context.Context, account string, hash []byte) error {
	s.mu.Lock()
	err := ErrAccountNotFound
	for i, u := range s.users {
		if u.Account == account {
			s.users[i].PasswordHash = hash
			err = s.persistLocked(ctx)
			break
		}
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.bus.Publish(bus.TopicUsers)
	return nil
}

// persistLocked rewrites the whole users blob. The in-memory state has
// already been updated by the caller; a write failure is returned (and
// logged) but does not roll memory back, matching the optimistic behavior
// of the storage layer this replaces.
func (s *UserStore) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(usersBlob{Schema: schemaVersion, Users: s.users})
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, usersKey, data); err != nil {
		s.logger.Error("users blob write failed", "error", err)
		return err
	}
	return nil
}
