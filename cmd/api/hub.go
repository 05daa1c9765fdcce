package main

import (
	"context"
	"sync"
)

// SubscriptionHub tracks the live watch streams of every user. Watch streams
// never end on their own, so the hub cancels them on shutdown to let
// GracefulStop return.
type SubscriptionHub struct {
	mu      sync.Mutex
	streams map[string]map[int64]context.CancelFunc
	nextID  int64
	closed  bool
}

// NewSubscriptionHub creates an empty hub.
func NewSubscriptionHub() *SubscriptionHub {
	return &SubscriptionHub{streams: make(map[string]map[int64]context.CancelFunc)}
}

// Register derives a cancellable context for a stream owned by identity and
// returns it with an id for Unregister. After CancelAll the returned context
// is already cancelled.
func (h *SubscriptionHub) Register(ctx context.Context, identity string) (context.Context, int64) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		cancel()
		return ctx, 0
	}
	if _, ok := h.streams[identity]; !ok {
		h.streams[identity] = make(map[int64]context.CancelFunc)
	}
	h.nextID++
	id := h.nextID
	h.streams[identity][id] = cancel
	return ctx, id
}

// Unregister releases a stream registered for identity.
func (h *SubscriptionHub) Unregister(identity string, id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.streams[identity]; ok {
		if cancel, ok := conns[id]; ok {
			cancel()
			delete(conns, id)
		}
		if len(conns) == 0 {
			delete(h.streams, identity)
		}
	}
}

// Active is the number of live streams for identity.
func (h *SubscriptionHub) Active(identity string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.streams[identity])
}

// CancelAll cancels every registered stream and refuses new ones. It returns
// the number of streams cancelled.
func (h *SubscriptionHub) CancelAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	n := 0
	for identity, conns := range h.streams {
		for _, cancel := range conns {
			cancel()
			n++
		}
		delete(h.streams, identity)
	}
	return n
}

// Closed reports whether CancelAll has been called.
func (h *SubscriptionHub) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}
