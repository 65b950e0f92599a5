// Package observability provides Prometheus metrics, health checks and the
// HTTP server scaffold the chat service mounts its endpoints on.
package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotebot_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quotebot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Conversation metrics
	chatMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotebot_chat_messages_total",
			Help: "Total number of chat messages handled, by conversation stage",
		},
		[]string{"stage"},
	)

	quoteSubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotebot_quote_submissions_total",
			Help: "Total number of quote submissions, by product",
		},
		[]string{"product"},
	)

	storeConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quotebot_session_store_conflicts_total",
			Help: "Total number of session updates abandoned after optimistic-lock retries",
		},
	)

	initOnce sync.Once
)

// InitMetrics registers the Prometheus metrics.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			chatMessagesTotal,
			quoteSubmissionsTotal,
			storeConflictsTotal,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records HTTP request metrics.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordChatMessage counts one handled chat message for a stage.
func RecordChatMessage(stage string) {
	chatMessagesTotal.WithLabelValues(stage).Inc()
}

// RecordQuoteSubmission counts one quote submission for a product.
func RecordQuoteSubmission(product string) {
	quoteSubmissionsTotal.WithLabelValues(product).Inc()
}

// RecordStoreConflict counts one session update lost to contention.
func RecordStoreConflict() {
	storeConflictsTotal.Inc()
}
