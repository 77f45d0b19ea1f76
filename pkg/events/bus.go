// Package events provides a synchronous in-process event bus used to fan
// queue lifecycle events out to observers.
package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Event is anything that can be published on the bus.
type Event interface {
	EventType() string
}

// Handler consumes a published event. Handler errors are logged, never
// propagated to the publisher.
type Handler func(ctx context.Context, event Event) error

// Bus publishes events to subscribed handlers.
type Bus interface {
	Publish(ctx context.Context, event Event)
	Subscribe(eventType string, handler Handler)
}

// InMemoryBus is a synchronous in-memory Bus. Publish invokes handlers on
// the caller's goroutine, so events published from one goroutine are
// observed in publish order.
type InMemoryBus struct {
	handlers map[string][]Handler
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(logger *zap.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		logger:   logger.Named("events"),
	}
}

// Publish delivers the event to all handlers subscribed to its type.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.EventType()]
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			b.logger.Error("event handler failed",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
			// Continue with remaining handlers.
		}
	}
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryBus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}
