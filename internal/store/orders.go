package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/YeJunlin777/yachts-system/internal/bus"
	"github.com/YeJunlin777/yachts-system/internal/domain"
	"github.com/YeJunlin777/yachts-system/internal/fixtures"
	"github.com/YeJunlin777/yachts-system/internal/kv"
)

const ordersKey = "yacht_orders"

var (
	ErrOrderNotFound      = errors.New("order does not exist")
	ErrOrderNotPending    = errors.New("only pending orders can be approved")
	ErrOrderNotRefundable = errors.New("only approved orders can move to refunding")
)

type ordersBlob struct {
	Schema int            `json:"schema"`
	Orders []domain.Order `json:"orders"`
}

// OrderStore holds booking orders and their review lifecycle. Reads serve
// the dashboard tables; the two transitions rewrite the blob and notify.
type OrderStore struct {
	mu     sync.RWMutex
	kv     kv.Store
	bus    *bus.Bus
	logger *slog.Logger
	orders []domain.Order
}

// NewOrderStore loads the persisted orders blob or falls back to fixtures.
func NewOrderStore(ctx context.Context, store kv.Store, b *bus.Bus, logger *slog.Logger) (*OrderStore, error) {
	s := &OrderStore{kv: store, bus: b, logger: logger}

	data, err := store.Get(ctx, ordersKey)
	if err == nil {
		var blob ordersBlob
		if jsonErr := json.Unmarshal(data, &blob); jsonErr == nil && blob.Schema == schemaVersion {
			s.orders = blob.Orders
			return s, nil
		}
		logger.Warn("persisted orders blob unreadable, reseeding from fixture", "key", ordersKey)
	} else if err != kv.ErrKeyNotFound {
		return nil, err
	}

	seeded, err := fixtures.Orders()
	if err != nil {
		return nil, err
	}
	s.orders = seeded
	return s, nil
}

// List returns a snapshot of all orders in stored order.
func (s *OrderStore) List() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// Approve moves a pending order to approved and stamps the auditor.
func (s *OrderStore) Approve(ctx context.Context, id int64, auditor string) (domain.Order, error) {
	return s.transition(ctx, id, func(o *domain.Order) error {
		if o.Status != domain.OrderStatusPending {
			return ErrOrderNotPending
		}
		now := time.Now().UTC()
		o.Status = domain.OrderStatusApproved
		o.Auditor = auditor
		o.AuditTime = now
		o.UpdatedAt = now
		return nil
	})
}

// MarkRefunding moves an approved order into the refunding state.
func (s *OrderStore) MarkRefunding(ctx context.Context, id int64) (domain.Order, error) {
	return s.transition(ctx, id, func(o *domain.Order) error {
		if o.Status != domain.OrderStatusApproved {
			return ErrOrderNotRefundable
		}
		o.Status = domain.OrderStatusRefunding
		o.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// transition applies a status change under the lock and publishes after
// releasing it so observers may re-read the store from their callback.
func (s *OrderStore) transition(ctx context.Context, id int64, apply func(*domain.Order) error) (domain.Order, error) {
	s.mu.Lock()
	order, err := s.transitionLocked(ctx, id, apply)
	s.mu.Unlock()
	if err != nil {
		return domain.Order{}, err
	}
	s.bus.Publish(bus.TopicOrders)
	return order, nil
}

func (s *OrderStore) transitionLocked(ctx context.Context, id int64, apply func(*domain.Order) error) (domain.Order, error) {
	for i := range s.orders {
		if s.orders[i].ID != id {
			continue
		}
		if err := apply(&s.orders[i]); err != nil {
			return domain.Order{}, err
		}
		if err := s.persistLocked(ctx); err != nil {
			return domain.Order{}, err
		}
		return s.orders[i], nil
	}
	return domain.Order{}, ErrOrderNotFound
}

func (s *OrderStore) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(ordersBlob{Schema: schemaVersion, Orders: s.orders})
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, ordersKey, data); err != nil {
		s.logger.Error("orders blob write failed", "error", err)
		return err
	}
	return nil
}
