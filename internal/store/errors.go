package store

import "errors"

// Mutation failures are sentinel values; the HTTP layer surfaces their text
// directly to the end user, so the messages are written for people.
var (
	ErrDuplicateAccount   = errors.New("this account already exists")
	ErrDuplicateEmail     = errors.New("this email is already in use by another user")
	ErrUserNotFound       = errors.New("user does not exist")
	ErrCannotDeleteSelf   = errors.New("cannot delete the currently signed-in user")
	ErrAccountNotFound    = errors.New("account does not exist")
	ErrInvalidCredentials = errors.New("wrong password")
	ErrWrongOldPassword   = errors.New("old password is incorrect")
)
