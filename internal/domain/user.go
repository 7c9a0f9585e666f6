package domain

import "time"

// User represents a dashboard operator account.
type User struct {
	ID          string    `json:"id"`
	Account     string    `json:"account"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	// PasswordHash is the bcrypt hash of the account credential.
	PasswordHash []byte    `json:"passwordHash"`
	LastLogin    time.Time `json:"lastLogin"`
}

// Sanitized returns a copy of the user with the credential hash removed,
// suitable for session snapshots and API responses.
func (u User) Sanitized() User {
	u.PasswordHash = nil
	return u
}

// AuthState is the single authenticated-identity slot. User is a snapshot
// taken at login time; later edits to the user record are not reflected
// until re-login.
type AuthState struct {
	IsLoggedIn bool  `json:"isLoggedIn"`
	User       *User `json:"user"`
}
