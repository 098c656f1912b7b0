// Package feed fans order events out to live subscribers.
package feed

import (
	"context"
	"sync"

	"github.com/dabbahouse/foodorder/internal/app/domain/order"
	"github.com/dabbahouse/foodorder/internal/app/metrics"
	"github.com/dabbahouse/foodorder/pkg/logger"
)

const defaultBuffer = 16

// Subscription receives events matching its filter until it is closed.
type Subscription struct {
	id      uint64
	orderID string
	events  chan order.Event
	hub     *Hub
	once    sync.Once
}

// Events returns the receive channel. It is closed when the subscription ends.
func (s *Subscription) Events() <-chan order.Event { return s.events }

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() { s.hub.remove(s) }

func (s *Subscription) matches(evt order.Event) bool {
	return s.orderID == "" || s.orderID == evt.Order.OrderID
}

// Hub is an in-process publish/subscribe point for order events. Publish
// never blocks; a subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	closed bool
	log    *logger.Logger
}

// NewHub creates a hub. buffer <= 0 uses the default size.
func NewHub(buffer int, log *logger.Logger) *Hub {
	if log == nil {
		log = logger.NewDefault("feed")
	}
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{subs: make(map[uint64]*Subscription), buffer: buffer, log: log}
}

// Subscribe registers a subscriber. An empty orderID receives every event.
// After Stop the returned subscription is already closed.
func (h *Hub) Subscribe(orderID string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id:      h.nextID,
		orderID: orderID,
		events:  make(chan order.Event, h.buffer),
		hub:     h,
	}
	if h.closed {
		sub.once.Do(func() { close(sub.events) })
		return sub
	}
	h.subs[sub.id] = sub
	metrics.SubscriberAdded()
	return sub
}

// Publish delivers evt to every matching subscriber without blocking.
func (h *Hub) Publish(evt order.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !sub.matches(evt) {
			continue
		}
		select {
		case sub.events <- evt:
		default:
			metrics.RecordDroppedEvent()
			h.log.WithField("order_id", evt.Order.OrderID).
				WithField("subscriber", sub.id).
				Debug("dropping event for slow subscriber")
		}
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub.id]; ok {
		delete(h.subs, sub.id)
		metrics.SubscriberRemoved()
	}
	sub.once.Do(func() { close(sub.events) })
}

// Name implements system.Service.
func (h *Hub) Name() string { return "order-feed" }

// Start implements system.Service.
func (h *Hub) Start(context.Context) error { return nil }

// Stop closes every subscription and refuses new ones.
func (h *Hub) Stop(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		metrics.SubscriberRemoved()
		sub.once.Do(func() { close(sub.events) })
	}
	h.log.Info("order feed stopped")
	return nil
}
