package feed

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/dabbahouse/foodorder/internal/app/domain/order"
	"github.com/dabbahouse/foodorder/pkg/logger"
)

func newHub(buffer int) *Hub {
	log := logger.NewDefault("feed-test")
	log.SetOutput(io.Discard)
	return NewHub(buffer, log)
}

func event(orderID string) order.Event {
	return order.Event{Type: order.EventUpdated, Order: order.Order{OrderID: orderID}}
}

func TestPublishRoutesByOrderID(t *testing.T) {
	hub := newHub(4)
	all := hub.Subscribe("")
	one := hub.Subscribe("AAAA1111")
	defer all.Close()
	defer one.Close()

	hub.Publish(event("BBBB2222"))
	hub.Publish(event("AAAA1111"))

	select {
	case evt := <-one.Events():
		if evt.Order.OrderID != "AAAA1111" {
			t.Fatalf("filtered subscriber got %s", evt.Order.OrderID)
		}
	case <-time.After(time.Second):
		t.Fatalf("filtered subscriber got nothing")
	}
	if len(one.Events()) != 0 {
		t.Fatalf("filtered subscriber received unrelated events")
	}
	if len(all.Events()) != 2 {
		t.Fatalf("admin subscriber has %d events, want 2", len(all.Events()))
	}
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	hub := newHub(1)
	sub := hub.Subscribe("")
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Publish(event("AAAA1111"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked")
	}
	if len(sub.Events()) != 1 {
		t.Fatalf("buffer holds %d events, want 1", len(sub.Events()))
	}
}

func TestStopClosesSubscribers(t *testing.T) {
	hub := newHub(1)
	sub := hub.Subscribe("")

	if err := hub.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, ok := <-sub.Events(); ok {
		t.Fatalf("expected closed channel")
	}
	sub.Close()

	late := hub.Subscribe("")
	if _, ok := <-late.Events(); ok {
		t.Fatalf("subscription after stop should be closed")
	}
	if hub.Subscribers() != 0 {
		t.Fatalf("subscribers = %d", hub.Subscribers())
	}
}
