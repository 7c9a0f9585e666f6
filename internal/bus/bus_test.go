package bus

import "testing"

func TestPublishFiresInRegistrationOrder(t *testing.T) {
	b := New()
	var order []int
	b.Subscribe(TopicUsers, func(Topic) { order = append(order, 1) })
	b.Subscribe(TopicUsers, func(Topic) { order = append(order, 2) })
	b.Subscribe(TopicUsers, func(Topic) { order = append(order, 3) })

	b.Publish(TopicUsers)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("unexpected dispatch order: %v", order)
	}
}

func TestPublishOnlyReachesMatchingTopic(t *testing.T) {
	b := New()
	var users, session int
	b.Subscribe(TopicUsers, func(Topic) { users++ })
	b.Subscribe(TopicSession, func(Topic) { session++ })

	b.Publish(TopicSession)

	if users != 0 {
		t.Fatalf("users observer fired for session topic")
	}
	if session != 1 {
		t.Fatalf("expected one session notification, got %d", session)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	var calls int
	unsub := b.Subscribe(TopicUsers, func(Topic) { calls++ })

	b.Publish(TopicUsers)
	unsub()
	b.Publish(TopicUsers)

	if calls != 1 {
		t.Fatalf("expected 1 call after unsubscribe, got %d", calls)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := New()
	unsub := b.Subscribe(TopicUsers, func(Topic) {})
	unsub()
	unsub()

	var calls int
	b.Subscribe(TopicUsers, func(Topic) { calls++ })
	b.Publish(TopicUsers)
	if calls != 1 {
		t.Fatalf("expected surviving subscriber to fire once, got %d", calls)
	}
}

func TestUnsubscribeDuringDispatchIsSafe(t *testing.T) {
	b := New()
	var calls []string
	var unsubSecond func()
	b.Subscribe(TopicUsers, func(Topic) {
		calls = append(calls, "first")
		unsubSecond()
	})
	unsubSecond = b.Subscribe(TopicUsers, func(Topic) {
		calls = append(calls, "second")
	})

	// The in-flight publish sees the snapshot taken before the unsubscribe.
	b.Publish(TopicUsers)
	if len(calls) != 2 {
		t.Fatalf("expected snapshot dispatch to reach both observers: %v", calls)
	}

	b.Publish(TopicUsers)
	if len(calls) != 3 || calls[2] != "first" {
		t.Fatalf("expected only first observer on second publish: %v", calls)
	}
}
