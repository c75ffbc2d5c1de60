package event

import "sync"

// Handler receives published events.
type Handler func(Event)

// Bus fans events out to registered handlers synchronously, in
// registration order. Delivery happens on the publisher's goroutine;
// handlers must tolerate being called from the feed goroutine as well
// as the caller's.
type Bus struct {
	mu       sync.Mutex
	handlers []Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler. Handlers cannot be removed; the bus
// lives for the process lifetime.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers e to every handler before returning. A handler that
// publishes from inside its callback is delivered recursively.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	for _, h := range handlers {
		h(e)
	}
}
