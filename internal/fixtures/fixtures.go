// Package fixtures bundles the read-only seed data the dashboard falls back
// to when a persisted blob is absent. The first write materializes the blob
// in the kv store, which thereafter shadows these files.
package fixtures

import (
	"embed"
	"encoding/json"
	"time"

	"github.com/YeJunlin777/yachts-system/internal/domain"
)

//go:embed data/*.json
var dataFS embed.FS

// SeedUser mirrors the bundled users.json shape. DefaultPassword is the
// bootstrap credential; it is bcrypt-hashed when the user store materializes
// its first persisted blob and never stored in clear.
type SeedUser struct {
	ID              string    `json:"id"`
	Account         string    `json:"account"`
	DisplayName     string    `json:"displayName"`
	Email           string    `json:"email"`
	Role            string    `json:"role"`
	DefaultPassword string    `json:"defaultPassword"`
	LastLogin       time.Time `json:"lastLogin"`
}

// Users returns the bundled user seed records.
func Users() ([]SeedUser, error) {
	var users []SeedUser
	if err := load("data/users.json", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Customers returns the bundled customer records, domestic and international.
func Customers() ([]domain.Customer, error) {
	var customers []domain.Customer
	if err := load("data/customers.json", &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

// Orders returns the bundled order records.
func Orders() ([]domain.Order, error) {
	var orders []domain.Order
	if err := load("data/orders.json", &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Activity returns the bundled operation log entries.
func Activity() ([]domain.ActivityEntry, error) {
	var entries []domain.ActivityEntry
	if err := load("data/activity.json", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func load(name string, out any) error {
	data, err := dataFS.ReadFile(name)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
