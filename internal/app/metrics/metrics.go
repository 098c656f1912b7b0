package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "foodorder",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "foodorder",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "foodorder",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	ordersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "foodorder",
			Subsystem: "orders",
			Name:      "placed_total",
			Help:      "Total number of orders placed.",
		},
		[]string{"kind"},
	)

	orderRevenue = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "foodorder",
			Subsystem: "orders",
			Name:      "revenue_total",
			Help:      "Sum of placed order totals.",
		},
	)

	orderStatusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "foodorder",
			Subsystem: "orders",
			Name:      "status_changes_total",
			Help:      "Total number of order status updates by resulting status.",
		},
		[]string{"status"},
	)

	logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "foodorder",
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by role, method and outcome.",
		},
		[]string{"role", "method", "success"},
	)

	activeSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "foodorder",
			Subsystem: "feed",
			Name:      "subscribers",
			Help:      "Current number of live order feed subscribers.",
		},
	)

	droppedEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "foodorder",
			Subsystem: "feed",
			Name:      "dropped_events_total",
			Help:      "Events dropped because a subscriber was too slow.",
		},
	)

	sessionsPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "foodorder",
			Subsystem: "janitor",
			Name:      "sessions_purged_total",
			Help:      "Expired sessions removed by the janitor.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		ordersPlaced,
		orderRevenue,
		orderStatusChanges,
		logins,
		activeSubscribers,
		droppedEvents,
		sessionsPurged,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// TrackInFlight increments the in-flight gauge and returns the matching
// decrement.
func TrackInFlight() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// ObserveHTTPRequest records one handled request. path should be a route
// template, not the raw URL.
func ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	method = strings.ToUpper(method)
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOrderPlaced counts a new order. guest distinguishes orders placed
// without a customer session.
func RecordOrderPlaced(guest bool, total float64) {
	kind := "customer"
	if guest {
		kind = "guest"
	}
	ordersPlaced.WithLabelValues(kind).Inc()
	if total > 0 {
		orderRevenue.Add(total)
	}
}

// RecordStatusChange counts an order status update.
func RecordStatusChange(status string) {
	if status == "" {
		status = "unknown"
	}
	orderStatusChanges.WithLabelValues(status).Inc()
}

// RecordLogin counts a login attempt.
func RecordLogin(role, method string, success bool) {
	result := "false"
	if success {
		result = "true"
	}
	logins.WithLabelValues(role, method, result).Inc()
}

// SubscriberAdded increments the live feed gauge.
func SubscriberAdded() { activeSubscribers.Inc() }

// SubscriberRemoved decrements the live feed gauge.
func SubscriberRemoved() { activeSubscribers.Dec() }

// RecordDroppedEvent counts an event a slow subscriber missed.
func RecordDroppedEvent() { droppedEvents.Inc() }

// RecordSessionsPurged counts expired sessions removed.
func RecordSessionsPurged(n int) {
	if n > 0 {
		sessionsPurged.Add(float64(n))
	}
}

// CanonicalPath collapses a raw URL path into a low-cardinality label for
// requests that matched no route.
func CanonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" {
		return "/" + parts[0]
	}
	switch {
	case len(parts) == 1:
		return "/api"
	case parts[1] == "admin" && len(parts) > 2:
		return "/api/admin/" + parts[2]
	default:
		return "/api/" + parts[1]
	}
}
