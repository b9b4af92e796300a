package dispatch

import (
	"fmt"
	"sync"
	"time"
)

// Reply is a parsed worker reply payload.
type Reply map[string]interface{}

// Status returns the reply's status discriminator, or "" when absent.
func (r Reply) Status() string {
	s, _ := r["status"].(string)
	return s
}

// IsSuccess reports whether the worker marked the reply successful.
func (r Reply) IsSuccess() bool {
	if r.Status() == "success" {
		return true
	}
	ok, _ := r["success"].(bool)
	return ok
}

type entryState int

const (
	statePending entryState = iota
	stateResolved
	stateTimedOut
)

// entry is one pending-reply slot. The reply channel is buffered so the
// consumer callback never blocks on a submitter that lost the timer race.
type entry struct {
	correlationID string
	replyQueue    string
	state         entryState
	replyCh       chan Reply
	registeredAt  time.Time
}

// ResolveResult reports how the registry adjudicated an incoming reply.
type ResolveResult int

const (
	// ResolveDelivered means the reply won the race and was handed to the
	// waiting submitter.
	ResolveDelivered ResolveResult = iota
	// ResolveLate means the entry had already timed out; the caller owns
	// forwarding the reply to the completion path.
	ResolveLate
	// ResolveUnknown means the correlation id is unknown or already
	// settled; the reply is a duplicate and must be discarded after ack.
	ResolveUnknown
)

// Registry maps outstanding correlation ids to pending-reply slots. The
// timer callback and the reply consumer run concurrently and may race on
// the same entry, so every transition is a check-and-set under one mutex.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry creates an empty correlation registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

// Register creates a pending entry for a fresh correlation id. A collision
// means the id generation scheme is broken, so it is surfaced as an error
// rather than silently overwriting the in-flight slot.
func (r *Registry) Register(correlationID, replyQueue string) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[correlationID]; exists {
		return nil, fmt.Errorf("correlation id %q already registered", correlationID)
	}

	e := &entry{
		correlationID: correlationID,
		replyQueue:    replyQueue,
		state:         statePending,
		replyCh:       make(chan Reply, 1),
		registeredAt:  time.Now(),
	}
	r.entries[correlationID] = e
	return e, nil
}

// Resolve settles an entry with a worker reply. Exactly one Resolve may win
// the pending -> resolved transition; a reply for a timed-out entry removes
// the slot and is reported late so the business record still gets updated.
func (r *Registry) Resolve(correlationID string, reply Reply) ResolveResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[correlationID]
	if !ok {
		return ResolveUnknown
	}

	switch e.state {
	case statePending:
		e.state = stateResolved
		e.replyCh <- reply
		delete(r.entries, correlationID)
		return ResolveDelivered
	case stateTimedOut:
		delete(r.entries, correlationID)
		return ResolveLate
	default:
		return ResolveUnknown
	}
}

// Expire transitions a pending entry to timed out. The entry stays in the
// registry so a late reply can still be recognized and routed to the
// completion path instead of being treated as noise.
func (r *Registry) Expire(correlationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[correlationID]
	if !ok || e.state != statePending {
		return false
	}
	e.state = stateTimedOut
	return true
}

// Remove drops an entry unconditionally. Used when publish fails after
// registration, so no orphaned slot lingers for a job that never left.
func (r *Registry) Remove(correlationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, correlationID)
}

// Pending reports whether a correlation id currently holds a live slot.
func (r *Registry) Pending(correlationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[correlationID]
	return ok
}

// Len returns the number of outstanding entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
