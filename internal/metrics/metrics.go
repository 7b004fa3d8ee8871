package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipes_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recipes_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipes_rate_limit_hits_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	// scheme is "session" or "bearer"
	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipes_auth_failures_total",
			Help: "Total number of failed authentication attempts",
		},
		[]string{"scheme"},
	)

	// kind is one of recipe, comment, rating, favorite, user
	ContentWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipes_content_writes_total",
			Help: "Total number of successful content mutations",
		},
		[]string{"kind", "action"},
	)
)

// RecordHTTPRequest records one served request. route is the matched route
// template so ids do not explode cardinality.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordRateLimitHit(route string) {
	RateLimitHits.WithLabelValues(route).Inc()
}

func RecordAuthFailure(scheme string) {
	AuthFailures.WithLabelValues(scheme).Inc()
}

func RecordContentWrite(kind, action string) {
	ContentWrites.WithLabelValues(kind, action).Inc()
}
