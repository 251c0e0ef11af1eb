package bus

import (
	"fmt"
	"sync"

	"github.com/tidehub/hubchat/logger"
)

// Handler is a function that handles bus events.
type Handler func(event *Event)

// Subscription represents a subscription to events.
type Subscription struct {
	ID        string
	EventType EventType
	Handler   Handler
}

// Bus fans timeline updates out to subscribers. Dispatch is synchronous and
// in subscription order: the session controller must not process the next
// protocol event until every observer has seen the current state, so
// intermediate states are always visible.
type Bus struct {
	mu         sync.RWMutex
	order      []string
	subs       map[string]*Subscription
	subCounter int64
	closed     bool
}

// New creates a new bus.
func New() *Bus {
	return &Bus{subs: make(map[string]*Subscription)}
}

// Subscribe registers a handler for a specific event type and returns the
// subscription id.
func (b *Bus) Subscribe(eventType EventType, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subCounter++
	id := fmt.Sprintf("sub-%d", b.subCounter)
	b.subs[id] = &Subscription{ID: id, EventType: eventType, Handler: handler}
	b.order = append(b.order, id)

	logger.Debug("subscription added", "id", id, "eventType", eventType)
	return id
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe("", handler)
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Publish delivers an event to all matching subscribers before returning.
func (b *Bus) Publish(event *Event) {
	if event == nil {
		return
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		logger.Warn("bus closed, event dropped", "type", event.Type)
		return
	}
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		sub := b.subs[id]
		if sub == nil {
			continue
		}
		if sub.EventType == "" || sub.EventType == event.Type {
			handlers = append(handlers, sub.Handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("handler panic", "type", event.Type, "panic", r)
				}
			}()
			h(event)
		}()
	}
}

// Close stops the bus; later publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}
