// Package testutil provides common testing utilities and mock implementations.
package testutil

import (
	"io"
	"sync"

	"github.com/dabbahouse/foodorder/internal/app/domain/order"
	"github.com/dabbahouse/foodorder/pkg/logger"
)

// QuietLogger returns a logger that discards everything.
func QuietLogger(component string) *logger.Logger {
	log := logger.NewDefault(component)
	log.SetOutput(io.Discard)
	return log
}

// MockPublisher records published order events.
type MockPublisher struct {
	mu     sync.Mutex
	events []order.Event
}

// Publish records evt.
func (p *MockPublisher) Publish(evt order.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

// Events returns a copy of everything published so far.
func (p *MockPublisher) Events() []order.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]order.Event, len(p.events))
	copy(out, p.events)
	return out
}

// Types lists the event types in publish order.
func (p *MockPublisher) Types() []string {
	events := p.Events()
	out := make([]string, len(events))
	for i, evt := range events {
		out[i] = evt.Type
	}
	return out
}
