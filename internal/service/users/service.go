// Package users exposes admin account management over the user store,
// running the field validators before any mutation reaches it.
package users

import (
	"context"
	"log/slog"

	"github.com/YeJunlin777/yachts-system/internal/domain"
	"github.com/YeJunlin777/yachts-system/internal/store"
	"github.com/YeJunlin777/yachts-system/internal/validate"
)

// ActivityRecorder appends operation log entries.
type ActivityRecorder interface {
	Append(ctx context.Context, entry domain.ActivityEntry) error
}

// Service handles user management workflows.
type Service struct {
	users    *store.UserStore
	sessions *store.SessionStore
	activity ActivityRecorder
	logger   *slog.Logger
}

// New constructs a Service.
func New(users *store.UserStore, sessions *store.SessionStore, activity ActivityRecorder, logger *slog.Logger) Service {
	return Service{users: users, sessions: sessions, activity: activity, logger: logger}
}

// CreateInput carries the admin-form fields for a new account.
type CreateInput struct {
	Account         string `json:"account"`
	DisplayName     string `json:"displayName"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// UpdateInput carries a partial update; empty fields keep prior values.
type UpdateInput struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Password    string `json:"password"`
}

// List returns all users without credential hashes, insertion order intact.
func (s Service) List(_ context.Context) []domain.User {
	users := s.users.List()
	out := make([]domain.User, len(users))
	for i, u := range users {
		out[i] = u.Sanitized()
	}
	return out
}

// Create validates and adds a new account.
func (s Service) Create(ctx context.Context, input CreateInput, actor string) (domain.User, error) {
	if err := validate.Account(input.Account); err != nil {
		return domain.User{}, err
	}
	if err := validate.Email(input.Email); err != nil {
		return domain.User{}, err
	}
	if err := validate.Password(input.Password); err != nil {
		return domain.User{}, err
	}
	if input.ConfirmPassword != "" {
		if err := validate.PasswordConfirmation(input.Password, input.ConfirmPassword); err != nil {
			return domain.User{}, err
		}
	}

	user, err := s.users.Create(ctx, store.CreateUserInput{
		Account:     input.Account,
		DisplayName: input.DisplayName,
		Email:       input.Email,
		Role:        input.Role,
		Password:    input.Password,
	})
	if err != nil {
		return domain.User{}, err
	}
	s.record(ctx, actor, "create user "+user.Account, domain.ActivitySuccess)
	s.logger.Info("user created", "user_id", user.ID, "account", user.Account)
	return user.Sanitized(), nil
}

// Update validates and applies a partial update.
func (s Service) Update(ctx context.Context, id string, input UpdateInput, actor string) (domain.User, error) {
	if input.Email != "" {
		if err := validate.Email(input.Email); err != nil {
			return domain.User{}, err
		}
	}
	if input.Password != "" {
		if err := validate.Password(input.Password); err != nil {
			return domain.User{}, err
		}
	}

	user, err := s.users.Update(ctx, id, store.UpdateUserInput{
		DisplayName: input.DisplayName,
		Email:       input.Email,
		Role:        input.Role,
		Password:    input.Password,
	})
	if err != nil {
		return domain.User{}, err
	}
	s.record(ctx, actor, "update user "+user.Account, domain.ActivitySuccess)
	return user.Sanitized(), nil
}

// Delete removes an account; the signed-in account cannot delete itself.
func (s Service) Delete(ctx context.Context, id, actor string) error {
	if err := s.users.Delete(ctx, id, s.sessions.CurrentUserID()); err != nil {
		return err
	}
	s.record(ctx, actor, "delete user "+id, domain.ActivitySuccess)
	return nil
}

func (s Service) record(ctx context.Context, operator, action string, result domain.ActivityResult) {
	if s.activity == nil {
		return
	}
	entry := domain.ActivityEntry{
		Operator: operator,
		Module:   "user",
		Action:   action,
		Result:   result,
	}
	if err := s.activity.Append(ctx, entry); err != nil {
		s.logger.Warn("activity append failed", "error", err)
	}
}
