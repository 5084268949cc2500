package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// ChangeHandler consumes one committed change.
type ChangeHandler func(context.Context, Change) error

// Feed is the change-notification feed between the store layer and
// interested consumers (fan-out router, automated responder, relays).
type Feed interface {
	Publish(ctx context.Context, change Change) error
	Subscribe(changeType ChangeType, handler ChangeHandler)
	SubscribeAll(handler ChangeHandler)
}

// inMemoryFeed delivers changes synchronously in publish order, which
// preserves the per-ticket version order established by the store.
type inMemoryFeed struct {
	mu        sync.RWMutex
	listeners map[ChangeType][]ChangeHandler
	catchAll  []ChangeHandler
}

// NewInMemoryFeed creates a feed instance.
func NewInMemoryFeed() Feed {
	return &inMemoryFeed{
		listeners: make(map[ChangeType][]ChangeHandler),
	}
}

// Publish synchronously invokes handlers for the given change. Handler
// errors do not stop delivery to the remaining handlers.
func (f *inMemoryFeed) Publish(ctx context.Context, change Change) error {
	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	f.mu.RLock()
	handlers := append([]ChangeHandler{}, f.catchAll...)
	handlers = append(handlers, f.listeners[change.Type]...)
	f.mu.RUnlock()

	for _, handler := range handlers {
		_ = handler(ctx, change)
	}
	return nil
}

// Subscribe registers a handler for one change type.
func (f *inMemoryFeed) Subscribe(changeType ChangeType, handler ChangeHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners[changeType] = append(f.listeners[changeType], handler)
}

// SubscribeAll registers a handler for every change type.
func (f *inMemoryFeed) SubscribeAll(handler ChangeHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catchAll = append(f.catchAll, handler)
}
