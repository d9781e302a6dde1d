// Package hub provides the in-process publish/subscribe broker for item
// lifecycle events.
//
// Publish never blocks: every subscriber owns a bounded delivery buffer, and
// a subscriber that cannot keep up is forcibly unsubscribed (its channel
// closed) instead of backpressuring the publisher. Events published by a
// single publisher goroutine are delivered to each live subscriber in
// publish order; no ordering is promised across subscribers and there is no
// replay for late subscribers.
package hub

import (
	"sync"
	"time"

	"github.com/metaclip/metaclip/pkg/metaclip"
)

// DefaultBufferSize is the per-subscriber delivery buffer capacity used when
// no explicit size is configured.
const DefaultBufferSize = 32

// Subscription is a live receiver's registration with the hub.
type Subscription struct {
	ch      chan metaclip.Event
	created time.Time
}

// Events returns the delivery channel. The channel is closed when the
// subscriber is unsubscribed, the hub shuts down, or the delivery buffer
// overflows; receivers detect hub-initiated closure by the channel closing.
func (s *Subscription) Events() <-chan metaclip.Event {
	return s.ch
}

// CreatedAt returns when the subscription was registered.
func (s *Subscription) CreatedAt() time.Time {
	return s.created
}

// Hub broadcasts item lifecycle events to current subscribers.
type Hub struct {
	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	bufSize int
	closed  bool
	metrics *metrics
}

// Option configures a Hub.
type Option func(*Hub)

// WithBufferSize sets the per-subscriber delivery buffer capacity.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufSize = n
		}
	}
}

// New creates a hub. The zero configuration uses DefaultBufferSize and no
// metrics.
func New(opts ...Option) *Hub {
	h := &Hub{
		subs:    make(map[*Subscription]struct{}),
		bufSize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var _ metaclip.EventPublisher = (*Hub)(nil)

// Publish delivers the event to every current subscriber. A subscriber
// whose buffer is full is dropped so the publisher never stalls on slow
// consumer I/O.
func (h *Hub) Publish(event metaclip.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	for sub := range h.subs {
		select {
		case sub.ch <- event:
		default:
			h.dropLocked(sub)
		}
	}

	h.metrics.published(event.Kind)
}

// Subscribe registers a new receiver and returns its handle.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		ch:      make(chan metaclip.Event, h.bufSize),
		created: time.Now().UTC(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(sub.ch)
		return sub
	}

	h.subs[sub] = struct{}{}
	h.metrics.subscribers(len(h.subs))

	return sub
}

// Unsubscribe removes the subscription and closes its channel. It is
// idempotent and safe to call from disconnect detection or explicit close.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.ch)
	h.metrics.subscribers(len(h.subs))
}

// Len returns the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close shuts the hub down, closing every subscriber channel. Publishing
// after Close is a no-op.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.ch)
	}
	h.metrics.subscribers(0)
}

// dropLocked force-unsubscribes a subscriber that overflowed its buffer.
// Caller holds h.mu.
func (h *Hub) dropLocked(sub *Subscription) {
	delete(h.subs, sub)
	close(sub.ch)
	h.metrics.dropped()
	h.metrics.subscribers(len(h.subs))
}
