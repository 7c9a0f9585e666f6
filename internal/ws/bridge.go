package ws

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/YeJunlin777/yachts-system/internal/bus"
)

// Event is the frame pushed to streaming clients when a topic fires.
type Event struct {
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
}

// Bridge forwards change notifications onto a hub so websocket and SSE
// clients see the same updates as in-process observers.
type Bridge struct {
	hub   *Hub
	log   *slog.Logger
	stops []func()
}

// NewBridge subscribes the hub to every dashboard topic.
func NewBridge(b *bus.Bus, hub *Hub, logger *slog.Logger) *Bridge {
	br := &Bridge{hub: hub, log: logger}
	topics := []bus.Topic{bus.TopicUsers, bus.TopicSession, bus.TopicOrders, bus.TopicActivity}
	for _, topic := range topics {
		br.stops = append(br.stops, b.Subscribe(topic, br.forward))
	}
	return br
}

func (b *Bridge) forward(topic bus.Topic) {
	payload, err := json.Marshal(Event{Topic: string(topic), Timestamp: time.Now().UTC()})
	if err != nil {
		b.log.Warn("event marshal failed", "topic", topic, "error", err)
		return
	}
	b.hub.Broadcast(string(topic), payload)
}

// Stop detaches the bridge from the bus.
func (b *Bridge) Stop() {
	for _, stop := range b.stops {
		stop()
	}
	b.stops = nil
}
