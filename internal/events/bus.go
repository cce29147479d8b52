package events

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Handler receives a published event.
type Handler func(Event)

// Subscription identifies one registered handler. Unsubscribe matches on the
// subscription pointer, so registering the same function twice yields two
// independent subscriptions.
type Subscription struct {
	eventType string
	handler   Handler
}

// EventType returns the event type the subscription listens to.
func (s *Subscription) EventType() string { return s.eventType }

// Bus is a synchronous publish/subscribe event bus.
// Handlers run on the publisher's goroutine in registration order. Subscriber
// lists are copy-on-write: a publish iterates the list it saw when it started.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]*Subscription // event type -> handlers, never mutated in place
	closed bool

	mailMu  sync.Mutex
	mailbox []Event // posted from background goroutines, drained on the tick goroutine

	logger *slog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[string][]*Subscription),
		logger: logger.With("component", "events"),
	}
}

// Subscribe registers handler for events whose EventType equals eventType.
func (b *Bus) Subscribe(eventType string, handler Handler) *Subscription {
	sub := &Subscription{eventType: eventType, handler: handler}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return sub
	}

	cur := b.subs[eventType]
	next := make([]*Subscription, len(cur), len(cur)+1)
	copy(next, cur)
	b.subs[eventType] = append(next, sub)

	return sub
}

// Unsubscribe removes a subscription. Unknown or nil subscriptions are ignored.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cur := b.subs[sub.eventType]
	for i, s := range cur {
		if s != sub {
			continue
		}
		next := make([]*Subscription, 0, len(cur)-1)
		next = append(next, cur[:i]...)
		next = append(next, cur[i+1:]...)
		if len(next) == 0 {
			delete(b.subs, sub.eventType)
		} else {
			b.subs[sub.eventType] = next
		}
		return
	}
}

// Publish invokes every handler registered for the event's type.
// A panicking handler is logged and skipped; the remaining handlers still run.
func (b *Bus) Publish(event Event) {
	if event == nil {
		return
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	handlers := b.subs[event.EventType()]
	b.mu.RUnlock()

	for _, sub := range handlers {
		b.dispatch(sub, event)
	}
}

func (b *Bus) dispatch(sub *Subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event", event.EventType(),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	sub.handler(event)
}

// Post queues an event for the next Drain. Background goroutines use it to hand
// events to handlers that own tick-goroutine state.
func (b *Bus) Post(event Event) {
	if event == nil {
		return
	}
	b.mailMu.Lock()
	b.mailbox = append(b.mailbox, event)
	b.mailMu.Unlock()
}

// Drain publishes all posted events in posting order and returns how many ran.
// Events posted by handlers during the drain are left for the next call.
func (b *Bus) Drain() int {
	b.mailMu.Lock()
	pending := b.mailbox
	b.mailbox = nil
	b.mailMu.Unlock()

	for _, e := range pending {
		b.Publish(e)
	}
	return len(pending)
}

// Count returns the number of handlers registered for eventType.
func (b *Bus) Count(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventType])
}

// Close drops all subscriptions and pending events.
// Safe to call multiple times (idempotent).
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.subs = make(map[string][]*Subscription)

	b.mailMu.Lock()
	b.mailbox = nil
	b.mailMu.Unlock()
}

// On subscribes a typed handler. The event type is taken from T's zero value,
// so T must be a value type whose EventType does not depend on its fields.
func On[T Event](b *Bus, fn func(T)) *Subscription {
	var zero T
	return b.Subscribe(zero.EventType(), func(e Event) {
		if typed, ok := e.(T); ok {
			fn(typed)
		}
	})
}
