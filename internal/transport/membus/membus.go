// Package membus is an in-memory intent bus for tests. Delivery order is
// controllable: intents can be held, released in an arbitrary order, or
// dropped to simulate the transport's lack of guarantees.
package membus

import (
	"sync"

	"github.com/votepoll/bot/internal/models"
	"github.com/votepoll/bot/internal/transport"
)

type Bus struct {
	mu       sync.Mutex
	handlers []transport.Handler
	held     bool
	queue    []models.Intent
}

func New() *Bus {
	return &Bus{}
}

func (b *Bus) Publish(intent models.Intent) {
	b.mu.Lock()
	if b.held {
		b.queue = append(b.queue, intent)
		b.mu.Unlock()
		return
	}
	handlers := append([]transport.Handler(nil), b.handlers...)
	b.mu.Unlock()
	for _, h := range handlers {
		h(intent)
	}
}

func (b *Bus) Subscribe(handler transport.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
	return nil
}

// Hold buffers published intents until Release or ReleaseOrder.
func (b *Bus) Hold() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.held = true
}

// Release delivers all held intents in publish order.
func (b *Bus) Release() {
	b.mu.Lock()
	queue := b.queue
	handlers := append([]transport.Handler(nil), b.handlers...)
	b.queue = nil
	b.held = false
	b.mu.Unlock()
	for _, intent := range queue {
		for _, h := range handlers {
			h(intent)
		}
	}
}

// ReleaseOrder delivers held intents by their queue positions. Positions not
// listed are dropped, simulating lost delivery.
func (b *Bus) ReleaseOrder(positions ...int) {
	b.mu.Lock()
	queue := b.queue
	handlers := append([]transport.Handler(nil), b.handlers...)
	b.queue = nil
	b.held = false
	b.mu.Unlock()
	for _, pos := range positions {
		if pos < 0 || pos >= len(queue) {
			continue
		}
		for _, h := range handlers {
			h(queue[pos])
		}
	}
}
