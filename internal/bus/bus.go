// Package bus provides the in-process change notification bus that keeps
// independent dashboard views synchronized after store mutations. Dispatch is
// synchronous: Publish fires every observer registered at call time before
// returning. Observers must not publish the same topic from inside a
// callback; the bus does not guard against that recursion.
package bus

import "sync"

// Topic names a change channel.
type Topic string

const (
	// TopicUsers fires when the user set changes.
	TopicUsers Topic = "users-change"
	// TopicSession fires when the authenticated identity changes.
	TopicSession Topic = "auth-change"
	// TopicOrders fires when an order status transition commits.
	TopicOrders Topic = "orders-change"
	// TopicActivity fires when an operation log entry is appended.
	TopicActivity Topic = "activity-change"
)

// Observer is invoked synchronously on publish.
type Observer func(topic Topic)

type subscriber struct {
	id int
	fn Observer
}

// Bus is a process-wide topic registry. The zero value is not usable; call New.
type Bus struct {
	mu     sync.Mutex
	nextID int
	topics map[Topic][]subscriber
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{topics: make(map[Topic][]subscriber)}
}

// Subscribe registers fn for topic and returns its unsubscribe capability.
// Observers fire in registration order.
func (b *Bus) Subscribe(topic Topic, fn Observer) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.topics[topic] = append(b.topics[topic], subscriber{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.topics[topic]
		for i, s := range subs {
			if s.id == id {
				b.topics[topic] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish synchronously notifies every observer registered for topic.
// The subscriber list is snapshotted first, so observers may unsubscribe
// (themselves or others) during dispatch without corrupting it.
func (b *Bus) Publish(topic Topic) {
	b.mu.Lock()
	subs := make([]subscriber, len(b.topics[topic]))
	copy(subs, b.topics[topic])
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(topic)
	}
}
