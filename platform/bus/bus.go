// Package bus provides the messaging fabric of the widget layer: an
// in-process event bus for page-local topics and a Redis-backed broadcast
// channel that carries the same frames across contexts.
package bus

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Well-known topics.
const (
	// TopicIdentityAck signals a cross-context identity acknowledgment.
	// The session re-resolves when it arrives.
	TopicIdentityAck = "identity/ack"

	// TopicSessionInit carries the normalized session data after the
	// first successful resolution.
	TopicSessionInit = "session/onInit"

	// TopicSessionInvalidate carries refreshed session data after a
	// cross-context invalidation triggered a re-resolution.
	TopicSessionInvalidate = "session/onInvalidate"
)

// CanvasErrorTopic returns the canvas-scoped error topic.
func CanvasErrorTopic(canvasID string) string {
	return "canvas/" + canvasID + "/onError"
}

// Event is a single bus message.
type Event struct {
	Topic     string
	Data      any
	Source    string
	Timestamp time.Time
}

// Handler processes a delivered event.
type Handler func(Event)

// Subscription is an opaque handle for an active subscription.
type Subscription interface {
	Unsubscribe()
}

// Bus is a topic-based publish/subscribe bus. Handlers run synchronously in
// subscription order on the publishing goroutine, so a publisher observes
// every side effect of its subscribers before Publish returns.
type Bus struct {
	mu          sync.Mutex
	subscribers map[string][]subscriber
	closed      bool
}

type subscriber struct {
	id      string
	handler Handler
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[string][]subscriber)}
}

// Subscribe registers handler for topic and returns its handle.
func (b *Bus) Subscribe(topic string, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := subscriber{id: uuid.NewString(), handler: handler}
	b.subscribers[topic] = append(b.subscribers[topic], sub)
	return &busSubscription{bus: b, topic: topic, id: sub.id}
}

// Publish delivers an event to every subscriber of topic, in subscription
// order. Publishing on a closed bus is a no-op.
func (b *Bus) Publish(topic, source string, data any) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	subs := make([]subscriber, len(b.subscribers[topic]))
	copy(subs, b.subscribers[topic])
	b.mu.Unlock()

	ev := Event{Topic: topic, Data: data, Source: source, Timestamp: time.Now()}
	for _, sub := range subs {
		sub.handler(ev)
	}
}

// Close drops all subscriptions and rejects further publishes.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subscribers = make(map[string][]subscriber)
}

func (b *Bus) unsubscribe(topic, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[topic]
	for i, sub := range subs {
		if sub.id == id {
			b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

type busSubscription struct {
	bus   *Bus
	topic string
	id    string
}

func (s *busSubscription) Unsubscribe() {
	s.bus.unsubscribe(s.topic, s.id)
}
