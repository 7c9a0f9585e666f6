// Package orders serves the booking tables and the two review transitions.
package orders

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/YeJunlin777/yachts-system/internal/domain"
	"github.com/YeJunlin777/yachts-system/internal/store"
)

// ActivityRecorder appends operation log entries.
type ActivityRecorder interface {
	Append(ctx context.Context, entry domain.ActivityEntry) error
}

// Service handles order listing and review.
type Service struct {
	orders   *store.OrderStore
	activity ActivityRecorder
	logger   *slog.Logger
}

// New constructs a Service.
func New(orders *store.OrderStore, activity ActivityRecorder, logger *slog.Logger) Service {
	return Service{orders: orders, activity: activity, logger: logger}
}

// Filter narrows a listing. Zero values match everything.
type Filter struct {
	Region  domain.Region
	Status  domain.OrderStatus
	Keyword string
	From    time.Time
	To      time.Time
}

// List returns matching orders, newest first.
func (s Service) List(_ context.Context, filter Filter) []domain.Order {
	all := s.orders.List()
	out := make([]domain.Order, 0, len(all))
	for _, o := range all {
		if filter.Region != "" && o.Region != filter.Region {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && o.OrderTime.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && o.OrderTime.After(filter.To) {
			continue
		}
		if filter.Keyword != "" {
			needle := strings.ToLower(filter.Keyword)
			if !strings.Contains(strings.ToLower(o.CustomerName), needle) &&
				!strings.Contains(strings.ToLower(o.OrderNo), needle) {
				continue
			}
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OrderTime.After(out[j].OrderTime)
	})
	return out
}

// Approve moves a pending order to approved, stamping the acting auditor.
func (s Service) Approve(ctx context.Context, id int64, auditor string) (domain.Order, error) {
	order, err := s.orders.Approve(ctx, id, auditor)
	if err != nil {
		return domain.Order{}, err
	}
	s.record(ctx, auditor, "approve order "+order.OrderNo)
	s.logger.Info("order approved", "order_no", order.OrderNo, "auditor", auditor)
	return order, nil
}

// MarkRefunding moves an approved order into refunding.
func (s Service) MarkRefunding(ctx context.Context, id int64, actor string) (domain.Order, error) {
	order, err := s.orders.MarkRefunding(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	s.record(ctx, actor, "refund order "+order.OrderNo)
	s.logger.Info("order moved to refunding", "order_no", order.OrderNo)
	return order, nil
}

func (s Service) record(ctx context.Context, operator, action string) {
	if s.activity == nil {
		return
	}
	entry := domain.ActivityEntry{
		Operator: operator,
		Module:   "orders",
		Action:   action,
		Result:   domain.ActivitySuccess,
	}
	if err := s.activity.Append(ctx, entry); err != nil {
		s.logger.Warn("activity append failed", "error", err)
	}
}
