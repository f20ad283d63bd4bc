// Package observability collects Prometheus metrics for the application.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates the Prometheus registry and application metrics.
type Metrics struct {
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	pollCycles       *prometheus.CounterVec
	pollSkipped      prometheus.Counter
	categoryFailures *prometheus.CounterVec
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "manpower_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "manpower_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	pollCycles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "manpower_reminder_poll_cycles_total",
		Help: "Reminder poll cycles by outcome.",
	}, []string{"outcome"})
	pollSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "manpower_reminder_poll_skipped_total",
		Help: "Poll ticks skipped because a cycle was still in flight.",
	})
	categoryFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "manpower_reminder_category_failures_total",
		Help: "Failed category fetches inside poll cycles.",
	}, []string{"category"})
	registry.MustRegister(requests, duration, pollCycles, pollSkipped, categoryFailures)
	return &Metrics{
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		pollCycles:       pollCycles,
		pollSkipped:      pollSkipped,
		categoryFailures: categoryFailures,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObservePollCycle records the outcome of a reminder poll cycle.
func (m *Metrics) ObservePollCycle(outcome string) {
	if m == nil {
		return
	}
	m.pollCycles.WithLabelValues(outcome).Inc()
}

// ObservePollSkipped counts a tick dropped by the single-flight guard.
func (m *Metrics) ObservePollSkipped() {
	if m == nil {
		return
	}
	m.pollSkipped.Inc()
}

// ObserveCategoryFailure counts a failed category fetch.
func (m *Metrics) ObserveCategoryFailure(category string) {
	if m == nil {
		return
	}
	m.categoryFailures.WithLabelValues(category).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if ctx := chi.RouteContext(r.Context()); ctx != nil {
		if pattern := ctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
