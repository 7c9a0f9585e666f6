package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/YeJunlin777/yachts-system/internal/bus"
	"github.com/YeJunlin777/yachts-system/internal/domain"
	"github.com/YeJunlin777/yachts-system/internal/kv"
)

func newOrderStore(t *testing.T, orders []domain.Order) (*OrderStore, *kv.MemoryStore, *bus.Bus) {
	t.Helper()
	mem := kv.NewMemoryStore()
	data, err := json.Marshal(ordersBlob{Schema: schemaVersion, Orders: orders})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := mem.Set(context.Background(), ordersKey, data); err != nil {
		t.Fatalf("seed: %v", err)
	}
	b := bus.New()
	s, err := NewOrderStore(context.Background(), mem, b, newLogger())
	if err != nil {
		t.Fatalf("new order store: %v", err)
	}
	return s, mem, b
}

func sampleOrders() []domain.Order {
	return []domain.Order{
		{Customer: domain.Customer{ID: 1, OrderNo: "YO-1", Region: domain.RegionDomestic, Amount: 2880}, Status: domain.OrderStatusPending},
		{Customer: domain.Customer{ID: 2, OrderNo: "YO-2", Region: domain.RegionInternational, Amount: 5280}, Status: domain.OrderStatusApproved},
	}
}

func TestApproveTransitions(t *testing.T) {
	s, _, b := newOrderStore(t, sampleOrders())
	ctx := context.Background()

	var notified int
	b.Subscribe(bus.TopicOrders, func(bus.Topic) { notified++ })

	if _, err := s.Approve(ctx, 99, "Ma Lin"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if _, err := s.Approve(ctx, 2, "Ma Lin"); !errors.Is(err, ErrOrderNotPending) {
		t.Fatalf("expected ErrOrderNotPending, got %v", err)
	}

	order, err := s.Approve(ctx, 1, "Ma Lin")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if order.Status != domain.OrderStatusApproved || order.Auditor != "Ma Lin" {
		t.Fatalf("unexpected order after approve: %+v", order)
	}
	if order.AuditTime.IsZero() || time.Since(order.AuditTime) > time.Minute {
		t.Fatalf("audit time not stamped: %v", order.AuditTime)
	}
	if notified != 1 {
		t.Fatalf("expected one orders-change notification, got %d", notified)
	}
}

func TestMarkRefunding(t *testing.T) {
	s, _, _ := newOrderStore(t, sampleOrders())
	ctx := context.Background()

	if _, err := s.MarkRefunding(ctx, 1); !errors.Is(err, ErrOrderNotRefundable) {
		t.Fatalf("expected ErrOrderNotRefundable for pending order, got %v", err)
	}
	order, err := s.MarkRefunding(ctx, 2)
	if err != nil {
		t.Fatalf("mark refunding: %v", err)
	}
	if order.Status != domain.OrderStatusRefunding {
		t.Fatalf("unexpected status: %s", order.Status)
	}
}

func TestOrderTransitionPersists(t *testing.T) {
	s, mem, _ := newOrderStore(t, sampleOrders())
	ctx := context.Background()

	if _, err := s.Approve(ctx, 1, "Wu Jiang"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	reloaded, err := NewOrderStore(ctx, mem, bus.New(), newLogger())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	for _, o := range reloaded.List() {
		if o.ID == 1 && o.Status != domain.OrderStatusApproved {
			t.Fatalf("transition not persisted: %+v", o)
		}
	}
}

func TestOrderStoreFixtureFallback(t *testing.T) {
	s, err := NewOrderStore(context.Background(), kv.NewMemoryStore(), bus.New(), newLogger())
	if err != nil {
		t.Fatalf("new order store: %v", err)
	}
	if len(s.List()) == 0 {
		t.Fatalf("expected fixture-seeded orders")
	}
}

func TestOrderObserverCanReadDuringNotify(t *testing.T) {
	s, _, b := newOrderStore(t, sampleOrders())
	ctx := context.Background()

	var approved int
	b.Subscribe(bus.TopicOrders, func(bus.Topic) {
		for _, o := range s.List() {
			if o.Status == domain.OrderStatusApproved {
				approved++
			}
		}
	})

	done := make(chan error, 1)
	go func() {
		_, err := s.Approve(ctx, 1, "auditor01")
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("approve: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("approve did not return; observer re-read blocked on the store lock")
	}
	if approved != 2 {
		t.Fatalf("observer counted %d approved orders during notify, want 2", approved)
	}
}
