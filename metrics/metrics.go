package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chirp",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chirp",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	adapterCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chirp",
			Subsystem: "adapter",
			Name:      "calls_total",
			Help:      "Calls made to external services, by outcome.",
		},
		[]string{"adapter", "operation", "outcome"},
	)

	adapterDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chirp",
			Subsystem: "adapter",
			Name:      "call_duration_seconds",
			Help:      "Duration of calls made to external services.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"adapter", "operation"},
	)

	droppedFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chirp",
			Subsystem: "feed",
			Name:      "dropped_fetches_total",
			Help:      "Feed fetches dropped because another fetch was in flight.",
		},
		[]string{"feed"},
	)
)

func init() {
	Registry.MustRegister(httpRequests, httpDuration, adapterCalls, adapterDuration, droppedFetches)
}

// Handler exposes the registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest is called once per finished request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if path == "" {
		path = "unmatched"
	}
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveAdapterCall records one call to an external service.
func ObserveAdapterCall(adapter, operation string, started time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	adapterCalls.WithLabelValues(adapter, operation, outcome).Inc()
	adapterDuration.WithLabelValues(adapter, operation).Observe(time.Since(started).Seconds())
}

// RecordDroppedFetch counts a feed fetch dropped because another was in flight.
func RecordDroppedFetch(feed string) {
	droppedFetches.WithLabelValues(feed).Inc()
}
