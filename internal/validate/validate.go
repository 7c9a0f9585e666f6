// Package validate holds the pure field-level predicates applied before any
// store mutation commits. None of them touch state; callers run them first so
// partial writes cannot occur.
package validate

import (
	"errors"
	"regexp"
	"strings"
)

const (
	minAccountLength  = 3
	minPasswordLength = 6
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	ErrAccountTooShort  = errors.New("account must be at least 3 characters")
	ErrEmailMalformed   = errors.New("email address is malformed")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrPasswordMismatch = errors.New("password confirmation does not match")
)

// Account checks the login handle policy for admin-created accounts.
func Account(account string) error {
	if len(strings.TrimSpace(account)) < minAccountLength {
		return ErrAccountTooShort
	}
	return nil
}

// Email checks the address has a standard shape. Uniqueness is the store's
// concern, not this package's.
func Email(email string) error {
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return ErrEmailMalformed
	}
	return nil
}

// Password checks the minimum length policy.
func Password(password string) error {
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// PasswordConfirmation checks the two entries match.
func PasswordConfirmation(password, confirmation string) error {
	if password != confirmation {
		return ErrPasswordMismatch
	}
	return nil
}
