// Package metrics holds the Prometheus collectors exposed on METRICS_PORT.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mindhaven",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mindhaven",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mindhaven",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	matchOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mindhaven",
			Subsystem: "buddy",
			Name:      "match_requests_total",
			Help:      "Buddy match requests by outcome.",
		},
		[]string{"outcome"},
	)

	matchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mindhaven",
			Subsystem: "buddy",
			Name:      "match_duration_seconds",
			Help:      "Time spent deciding a buddy match request.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	subscriptionSyncs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mindhaven",
			Subsystem: "subscription",
			Name:      "syncs_total",
			Help:      "Subscription status syncs by source and resulting tier.",
		},
		[]string{"source", "tier"},
	)

	accessResets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mindhaven",
			Subsystem: "access_reset",
			Name:      "requests_total",
			Help:      "Access reset requests by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		matchOutcomes,
		matchDuration,
		subscriptionSyncs,
		accessResets,
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

// RecordHTTPRequest records one finished request. path must be the route
// template, not the raw URL, to keep label cardinality bounded.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if path == "" {
		path = "unmatched"
	}
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordMatchOutcome records how a buddy match request ended.
func RecordMatchOutcome(outcome string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	matchOutcomes.WithLabelValues(outcome).Inc()
	matchDuration.Observe(duration.Seconds())
}

func RecordSubscriptionSync(source, tier string) {
	subscriptionSyncs.WithLabelValues(source, tier).Inc()
}

// RecordAccessReset records an access reset request. result is one of
// issued, unknown_email, rate_limited, verified or rejected.
func RecordAccessReset(result string) {
	accessResets.WithLabelValues(result).Inc()
}
