package events

import (
	"context"
	"sync"
)

type Listener[T any] func(ctx context.Context, event T)

// Hub is a list of listeners for one kind of event.
//
// Listeners are invoked synchronously in subscription order. A listener may unsubscribe
// itself, or subscribe others, while being invoked.
type Hub[T any] struct {
	mu        sync.Mutex
	nextID    uint64
	listeners []subscription[T]
}

type subscription[T any] struct {
	id       uint64
	listener Listener[T]
}

func NewHub[T any]() *Hub[T] {
	return &Hub[T]{}
}

// Subscribe registers listener and returns a func that removes it again
func (h *Hub[T]) Subscribe(listener Listener[T]) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.listeners = append(h.listeners, subscription[T]{id: id, listener: listener})

	var once sync.Once
	return func() {
		once.Do(func() {
			h.unsubscribe(id)
		})
	}
}

func (h *Hub[T]) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := make([]subscription[T], 0, len(h.listeners))
	for _, s := range h.listeners {
		if s.id != id {
			kept = append(kept, s)
		}
	}
	h.listeners = kept
}

func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

func (h *Hub[T]) Emit(ctx context.Context, event T) {
	h.mu.Lock()
	listeners := make([]subscription[T], len(h.listeners))
	copy(listeners, h.listeners)
	h.mu.Unlock()

	for _, s := range listeners {
		s.listener(ctx, event)
	}
}
