package validate

import (
	"errors"
	"testing"
)

func TestAccount(t *testing.T) {
	cases := []struct {
		account string
		wantErr error
	}{
		{"admin", nil},
		{"ab", ErrAccountTooShort},
		{"  a  ", ErrAccountTooShort},
		{"ops", nil},
		{"", ErrAccountTooShort},
	}
	for _, c := range cases {
		if err := Account(c.account); !errors.Is(err, c.wantErr) {
			t.Fatalf("Account(%q) = %v, want %v", c.account, err, c.wantErr)
		}
	}
}

func TestEmail(t *testing.T) {
	cases := []struct {
		email   string
		wantErr error
	}{
		{"ops@yachts.cn", nil},
		{"a@x.com", nil},
		{"not-an-email", ErrEmailMalformed},
		{"missing@domain", ErrEmailMalformed},
		{"@x.com", ErrEmailMalformed},
		{"two words@x.com", ErrEmailMalformed},
		{"", ErrEmailMalformed},
	}
	for _, c := range cases {
		if err := Email(c.email); !errors.Is(err, c.wantErr) {
			t.Fatalf("Email(%q) = %v, want %v", c.email, err, c.wantErr)
		}
	}
}

func TestPassword(t *testing.T) {
	if err := Password("secret1"); err != nil {
		t.Fatalf("expected valid password, got %v", err)
	}
	if err := Password("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestPasswordConfirmation(t *testing.T) {
	if err := PasswordConfirmation("secret1", "secret1"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if err := PasswordConfirmation("secret1", "secret2"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}
