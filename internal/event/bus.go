// Package event provides the in-process publish/subscribe bus that carries
// workspace notifications (tab and pane changes, session exits, spawn
// failures) to the UI and to scripts.
//
// Delivery is synchronous and in subscription order. A panicking handler is
// recovered and reported through the bus panic handler; it does not stop
// delivery to the remaining subscribers.
package event

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/xterminal/internal/event/topic"
)

// Sentinel errors for the event bus.
var (
	// ErrInvalidTopic is returned when a topic is empty or malformed.
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")
)

// Event is a published notification.
type Event struct {
	Type      topic.Topic
	Payload   any
	Source    string
	Timestamp time.Time
}

// New creates an event stamped with the current time.
func New(t topic.Topic, payload any, source string) Event {
	return Event{Type: t, Payload: payload, Source: source, Timestamp: time.Now()}
}

// Handler receives events.
type Handler func(Event)

// Subscription is returned by Subscribe and used to unsubscribe.
type Subscription struct {
	ID      string
	Pattern topic.Topic
}

// PanicHandler is called when a handler panics.
type PanicHandler func(ev Event, recovered any)

type subscriber struct {
	id      string
	pattern topic.Topic
	handler Handler
}

// Bus is a synchronous topic bus. It is safe for concurrent use.
type Bus struct {
	mu      sync.RWMutex
	subs    []subscriber
	onPanic PanicHandler

	published atomic.Uint64
	delivered atomic.Uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// SetPanicHandler installs the handler for subscriber panics.
func (b *Bus) SetPanicHandler(h PanicHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onPanic = h
}

// Subscribe registers a handler for every topic matching pattern.
func (b *Bus) Subscribe(pattern topic.Topic, h Handler) (Subscription, error) {
	if !pattern.IsValid() {
		return Subscription{}, fmt.Errorf("subscribe %q: %w", pattern, ErrInvalidTopic)
	}
	if h == nil {
		return Subscription{}, ErrNilHandler
	}
	sub := subscriber{id: uuid.New().String(), pattern: pattern, handler: h}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return Subscription{ID: sub.id, Pattern: pattern}, nil
}

// Unsubscribe removes a subscription. It reports whether it was found.
func (b *Bus) Unsubscribe(s Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == s.ID {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Publish delivers ev to every matching subscriber and returns the number
// of handlers invoked.
func (b *Bus) Publish(ev Event) int {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	b.published.Add(1)

	b.mu.RLock()
	var targets []subscriber
	for _, sub := range b.subs {
		if ev.Type.Matches(sub.pattern) {
			targets = append(targets, sub)
		}
	}
	onPanic := b.onPanic
	b.mu.RUnlock()

	for _, sub := range targets {
		b.call(sub.handler, ev, onPanic)
	}
	b.delivered.Add(uint64(len(targets)))
	return len(targets)
}

func (b *Bus) call(h Handler, ev Event, onPanic PanicHandler) {
	defer func() {
		if r := recover(); r != nil && onPanic != nil {
			onPanic(ev, r)
		}
	}()
	h(ev)
}

// Stats reports delivery counters.
type Stats struct {
	Published   uint64
	Delivered   uint64
	Subscribers int
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	n := len(b.subs)
	b.mu.RUnlock()
	return Stats{
		Published:   b.published.Load(),
		Delivered:   b.delivered.Load(),
		Subscribers: n,
	}
}
