// Package events broadcasts vault file changes to in-process subscribers.
//
// Every subscriber receives every event and filters locally. A subscription
// lives until its cancel func runs; owners call cancel on teardown.
package events

import (
	"sync"
)

// Kind of file change.
type Kind string

const (
	Created Kind = "created"
	Updated Kind = "updated"
	Deleted Kind = "deleted"
)

// Event describes one file change. Path is vault-relative.
type Event struct {
	Kind Kind   `json:"kind"`
	Path string `json:"path"`
}

// Handler receives events on the publisher's goroutine.
type Handler func(Event)

// Hub is a broadcast point for file events.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]Handler
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]Handler)}
}

// Subscribe registers h and returns a func that removes it. Calling the
// returned func more than once is a no-op.
func (h *Hub) Subscribe(fn Handler) (cancel func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers ev to every current subscriber. Handlers run outside
// the hub lock and may subscribe or cancel.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	handlers := make([]Handler, 0, len(h.subs))
	for _, fn := range h.subs {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// Count returns the number of live subscriptions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
