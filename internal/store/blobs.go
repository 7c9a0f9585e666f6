package store

import "github.com/YeJunlin777/yachts-system/internal/domain"

// Persisted blob keys. The kv backend stores each as one JSON document,
// fully rewritten on every mutation.
const (
	usersKey   = "yacht_users"
	sessionKey = "yacht_auth"
)

// schemaVersion guards the persisted blob shape. Loaders reject unknown
// versions and fall back to fixtures (users) or anonymous (session).
const schemaVersion = 1

type usersBlob struct {
	Schema int           `json:"schema"`
	Users  []domain.User `json:"users"`
}

type sessionBlob struct {
	Schema     int          `json:"schema"`
	IsLoggedIn bool         `json:"isLoggedIn"`
	User       *domain.User `json:"user"`
}
