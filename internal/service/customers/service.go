// Package customers serves the read-only customer tables, filtered and
// sorted server-side the way the dashboard pages present them.
package customers

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/YeJunlin777/yachts-system/internal/domain"
)

// Source yields the customer records to serve.
type Source func() ([]domain.Customer, error)

// MergedSource seeds the read model from a bundled customer set and overlays
// the live order book on top: an order with the same record id shadows its
// seed entry, so audit fields reflect committed transitions.
func MergedSource(seed func() ([]domain.Customer, error), live func() []domain.Order) Source {
	return func() ([]domain.Customer, error) {
		base, err := seed()
		if err != nil {
			return nil, err
		}
		index := make(map[int64]int, len(base))
		for i, c := range base {
			index[c.ID] = i
		}
		for _, o := range live() {
			if i, ok := index[o.ID]; ok {
				base[i] = o.Customer
			} else {
				base = append(base, o.Customer)
			}
		}
		return base, nil
	}
}

// Service handles customer listing.
type Service struct {
	source Source
	logger *slog.Logger
}

// New constructs a Service over a record source.
func New(source Source, logger *slog.Logger) Service {
	return Service{source: source, logger: logger}
}

// Filter narrows a listing. Zero values match everything.
type Filter struct {
	Region  domain.Region
	Gender  string
	Auditor string
	Keyword string
	From    time.Time
	To      time.Time
	SortBy  string // "orderTime" (default) or "amount"
	Asc     bool
}

// List returns matching customers, newest order first unless sorted
// otherwise.
func (s Service) List(_ context.Context, filter Filter) ([]domain.Customer, error) {
	records, err := s.source()
	if err != nil {
		return nil, err
	}

	out := make([]domain.Customer, 0, len(records))
	for _, c := range records {
		if !matches(c, filter) {
			continue
		}
		out = append(out, c)
	}
	sortRecords(out, filter)
	return out, nil
}

func matches(c domain.Customer, f Filter) bool {
	if f.Region != "" && c.Region != f.Region {
		return false
	}
	if f.Gender != "" && c.Gender != f.Gender {
		return false
	}
	if f.Auditor != "" && c.Auditor != f.Auditor {
		return false
	}
	if !f.From.IsZero() && c.OrderTime.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && c.OrderTime.After(f.To) {
		return false
	}
	if f.Keyword != "" {
		needle := strings.ToLower(f.Keyword)
		if !strings.Contains(strings.ToLower(c.CustomerName), needle) &&
			!strings.Contains(strings.ToLower(c.OrderNo), needle) &&
			!strings.Contains(strings.ToLower(c.ServiceName), needle) {
			return false
		}
	}
	return true
}

func sortRecords(records []domain.Customer, f Filter) {
	less := func(a, b domain.Customer) bool { return a.OrderTime.After(b.OrderTime) }
	switch f.SortBy {
	case "amount":
		less = func(a, b domain.Customer) bool { return a.Amount > b.Amount }
	}
	sort.SliceStable(records, func(i, j int) bool {
		if f.Asc {
			return less(records[j], records[i])
		}
		return less(records[i], records[j])
	})
}
