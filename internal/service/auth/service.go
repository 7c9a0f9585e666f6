// Package auth wraps the session store with token issuance and the
// validation gates applied before credential mutations.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/YeJunlin777/yachts-system/internal/domain"
	"github.com/YeJunlin777/yachts-system/internal/store"
	"github.com/YeJunlin777/yachts-system/internal/validate"
	"github.com/YeJunlin777/yachts-system/pkg/config"
	jwtpkg "github.com/YeJunlin777/yachts-system/pkg/jwt"
)

// ErrSessionMismatch rejects tokens whose identity no longer occupies the
// single session slot (after logout or a re-login as someone else).
var ErrSessionMismatch = errors.New("token no longer matches the active session")

// ActivityRecorder appends operation log entries.
type ActivityRecorder interface {
	Append(ctx context.Context, entry domain.ActivityEntry) error
}

// Service handles authentication workflows.
type Service struct {
	sessions *store.SessionStore
	activity ActivityRecorder
	logger   *slog.Logger
	cfg      config.APIConfig
}

// New constructs a Service.
func New(sessions *store.SessionStore, activity ActivityRecorder, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{sessions: sessions, activity: activity, logger: logger, cfg: cfg}
}

// Login authenticates an account and returns the session snapshot plus a
// bearer token for subsequent API calls.
func (s Service) Login(ctx context.Context, account, password, ip string) (domain.User, string, error) {
	user, err := s.sessions.Login(ctx, account, password)
	if err != nil {
		s.record(ctx, account, "", "login", domain.ActivityError, ip, map[string]any{"reason": err.Error()})
		return domain.User{}, "", err
	}
	token, err := jwtpkg.GenerateToken(user.ID, user.Account, user.Role, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return domain.User{}, "", err
	}
	s.record(ctx, user.DisplayName, user.Role, "login", domain.ActivitySuccess, ip, nil)
	s.logger.Info("user logged in", "user_id", user.ID, "account", user.Account)
	return user, token, nil
}

// Logout clears the session slot. Safe to call while anonymous.
func (s Service) Logout(ctx context.Context, ip string) {
	state := s.sessions.Current()
	s.sessions.Logout(ctx)
	if state.IsLoggedIn && state.User != nil {
		s.record(ctx, state.User.DisplayName, state.User.Role, "logout", domain.ActivitySuccess, ip, nil)
		s.logger.Info("user logged out", "user_id", state.User.ID)
	}
}

// ChangePassword validates the new credential and rotates it by account.
func (s Service) ChangePassword(ctx context.Context, account, oldPassword, newPassword, confirmation, ip string) error {
	if err := validate.Password(newPassword); err != nil {
		return err
	}
	if err := validate.PasswordConfirmation(newPassword, confirmation); err != nil {
		return err
	}
	if err := s.sessions.ChangePassword(ctx, account, oldPassword, newPassword); err != nil {
		s.record(ctx, account, "", "change password", domain.ActivityError, ip, map[string]any{"reason": err.Error()})
		return err
	}
	s.record(ctx, account, "", "change password", domain.ActivitySuccess, ip, nil)
	return nil
}

// Authorize validates a bearer token and checks it still matches the active
// session slot, returning the session's user snapshot.
func (s Service) Authorize(_ context.Context, token string) (domain.User, *jwtpkg.Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return domain.User{}, nil, errors.New("token required")
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return domain.User{}, nil, err
	}
	state := s.sessions.Current()
	if !state.IsLoggedIn || state.User == nil || state.User.ID != claims.UserID {
		return domain.User{}, nil, ErrSessionMismatch
	}
	return *state.User, claims, nil
}

// Current returns the session slot state.
func (s Service) Current() domain.AuthState {
	return s.sessions.Current()
}

func (s Service) record(ctx context.Context, operator, role, action string, result domain.ActivityResult, ip string, payload map[string]any) {
	if s.activity == nil {
		return
	}
	entry := domain.ActivityEntry{
		Operator: operator,
		Role:     role,
		Module:   "auth",
		Action:   action,
		Result:   result,
		IP:       ip,
		Payload:  payload,
	}
	if err := s.activity.Append(ctx, entry); err != nil {
		s.logger.Warn("activity append failed", "error", err)
	}
}
