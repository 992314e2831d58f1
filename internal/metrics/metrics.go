// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confessional_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "confessional_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Submissions counts admission outcomes: accepted or the rejection kind.
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confessional_submissions_total",
			Help: "Message submissions by admission outcome",
		},
		[]string{"outcome"},
	)

	ClassifierCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confessional_classifier_calls_total",
			Help: "Image classifier calls by result",
		},
		[]string{"result"},
	)

	ClassifierDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "confessional_classifier_duration_seconds",
			Help:    "Latency of image classification including decode",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	// BreakerState is 0 closed, 1 half-open, 2 open.
	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "confessional_classifier_breaker_state",
			Help: "Circuit breaker state for the image classifier",
		},
	)

	MessagesStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "confessional_messages_stored",
			Help: "Messages currently held by the board",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "confessional_admin_sessions",
			Help: "Live admin session tokens",
		},
	)

	LiveClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "confessional_live_clients",
			Help: "Connected websocket feed clients",
		},
	)
)

func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func RecordSubmission(outcome string) {
	Submissions.WithLabelValues(outcome).Inc()
}

func RecordClassifierCall(result string, d time.Duration) {
	ClassifierCalls.WithLabelValues(result).Inc()
	ClassifierDuration.Observe(d.Seconds())
}
