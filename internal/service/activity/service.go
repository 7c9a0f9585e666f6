// Package activity serves the operation log page.
package activity

import (
	"context"
	"log/slog"

	"github.com/YeJunlin777/yachts-system/internal/domain"
	"github.com/YeJunlin777/yachts-system/internal/store"
)

// Service lists and records operation log entries.
type Service struct {
	store  *store.ActivityStore
	logger *slog.Logger
}

// New constructs a Service.
func New(activityStore *store.ActivityStore, logger *slog.Logger) Service {
	return Service{store: activityStore, logger: logger}
}

// Filter narrows a listing. Zero values match everything.
type Filter struct {
	Module   string
	Result   domain.ActivityResult
	Operator string
	Limit    int
}

// List returns matching entries, newest first.
func (s Service) List(_ context.Context, filter Filter) []domain.ActivityEntry {
	entries := s.store.List()
	out := make([]domain.ActivityEntry, 0, len(entries))
	for _, e := range entries {
		if filter.Module != "" && e.Module != filter.Module {
			continue
		}
		if filter.Result != "" && e.Result != filter.Result {
			continue
		}
		if filter.Operator != "" && e.Operator != filter.Operator {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

// Append records one entry; other services use the store through this
// service so payload stamping stays in one place.
func (s Service) Append(ctx context.Context, entry domain.ActivityEntry) error {
	return s.store.Append(ctx, entry)
}
