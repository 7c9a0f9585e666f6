package main

import (
	"errors"
	"testing"

	"github.com/YeJunlin777/yachts-system/internal/validate"
)

func TestCheckNewUserRejectsBadFields(t *testing.T) {
	cases := []struct {
		name     string
		account  string
		email    string
		password string
		want     error
	}{
		{"short account", "ab", "ops@example.com", "secret1", validate.ErrAccountTooShort},
		{"malformed email", "captain", "not-an-address", "secret1", validate.ErrEmailMalformed},
		{"short password", "captain", "ops@example.com", "abc", validate.ErrPasswordTooShort},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := checkNewUser(tc.account, tc.email, tc.password); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCheckNewUserAcceptsValidFields(t *testing.T) {
	if err := checkNewUser("captain", "ops@example.com", "secret1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
