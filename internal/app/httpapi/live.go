package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/dabbahouse/foodorder/internal/app/services/feed"
	"github.com/dabbahouse/foodorder/internal/app/services/orders"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// checkOrigin accepts same-origin requests and the configured origins.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if _, ok := h.origins["*"]; ok {
		return true
	}
	if _, ok := h.origins[strings.TrimRight(origin, "/")]; ok {
		return true
	}
	return strings.EqualFold(strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://"), r.Host)
}

// orderLive streams updates of a single order. Access follows the rules of
// reading the order.
func (h *Handler) orderLive(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFor(r.Context())
	o, err := h.app.Orders.Get(r.Context(), mux.Vars(r)["order_id"], viewer)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	detailed := viewer.Admin || !o.IsGuest()
	h.stream(w, r, h.app.Feed.Subscribe(o.OrderID), viewer, detailed)
}

// adminLive streams every order event to the back office.
func (h *Handler) adminLive(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFor(r.Context())
	h.stream(w, r, h.app.Feed.Subscribe(""), viewer, true)
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request, sub *feed.Subscription, viewer orders.Viewer, detailed bool) {
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.log.WithContext(r.Context()).WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// The reader only services control frames and notices the client leaving.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if !viewer.CanView(evt.Order) {
				continue
			}
			if err := conn.WriteJSON(liveMessage{Type: evt.Type, Order: newOrderView(evt.Order, detailed)}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
