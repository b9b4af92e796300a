package sse

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Osama092/ThreadGen-Backend/shared/metrics"
)

// Event is one push payload on a subscriber channel.
type Event struct {
	Data interface{}
}

// Subscriber is one connected client's push channel. A new subscription for
// the same identity replaces the old entry rather than duplicating it, so a
// rapid reconnect never leaves two live channels behind.
type Subscriber struct {
	Identity    string
	Ch          chan Event
	ConnectedAt time.Time
}

// Hub maps subscriber identity to an open push channel. Delivery is
// best-effort, at-most-once: no queuing for disconnected subscribers, no
// replay, and a full channel drops the event rather than blocking the
// publisher.
type Hub struct {
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[string]*Subscriber
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   make(map[string]*Subscriber),
	}
}

// Subscribe opens a push channel for the identity, replacing and closing any
// existing channel for the same identity.
func (h *Hub) Subscribe(identity string) *Subscriber {
	sub := &Subscriber{
		Identity:    identity,
		Ch:          make(chan Event, 16),
		ConnectedAt: time.Now(),
	}

	h.mu.Lock()
	if old, ok := h.subs[identity]; ok {
		close(old.Ch)
	} else {
		metrics.SSESubscribers.Inc()
	}
	h.subs[identity] = sub
	n := len(h.subs)
	h.mu.Unlock()

	h.logger.Info("SSE subscriber connected",
		slog.String("identity", identity),
		slog.Int("active", n),
	)
	return sub
}

// Unsubscribe removes the subscriber, but only if the given handle is still
// the current one: a disconnect racing a reconnect must not tear down the
// replacement channel.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	current, ok := h.subs[sub.Identity]
	if ok && current == sub {
		delete(h.subs, sub.Identity)
		close(sub.Ch)
		metrics.SSESubscribers.Dec()
	}
	n := len(h.subs)
	h.mu.Unlock()

	if ok && current == sub {
		h.logger.Info("SSE subscriber disconnected",
			slog.String("identity", sub.Identity),
			slog.Int("active", n),
		)
	}
}

// Publish delivers a payload to one subscriber if still connected. Returns
// false when the subscriber is gone or its channel is full.
func (h *Hub) Publish(identity string, payload interface{}) bool {
	// The send happens under the read lock: channels are only closed under
	// the write lock, so a concurrent replace cannot close mid-send.
	h.mu.RLock()
	defer h.mu.RUnlock()

	sub, ok := h.subs[identity]
	if !ok {
		return false
	}

	select {
	case sub.Ch <- Event{Data: payload}:
		return true
	default:
		h.logger.Warn("SSE subscriber channel full, event dropped",
			slog.String("identity", identity),
		)
		return false
	}
}

// Broadcast delivers a payload to every connected subscriber, dropping on
// full channels.
func (h *Hub) Broadcast(payload interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		select {
		case sub.Ch <- Event{Data: payload}:
		default:
		}
	}
}

// Connected reports whether an identity currently holds an open channel.
func (h *Hub) Connected(identity string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.subs[identity]
	return ok
}

// Len returns the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
