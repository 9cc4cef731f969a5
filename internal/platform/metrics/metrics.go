// Package metrics holds the Prometheus collectors shared by the stores and the HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the storefront collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	mutations       *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
	requestCounter  *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	activeShoppers  prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_store_mutations_total",
				Help: "Total number of state store mutations",
			},
			[]string{"store", "op"},
		),
		persistFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_persist_failures_total",
				Help: "Total number of failed durable storage reads and writes",
			},
			[]string{"store", "op"},
		),
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storefront_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		activeShoppers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "storefront_active_shoppers",
				Help: "Number of shoppers with state held in memory",
			},
		),
	}
	reg.MustRegister(m.mutations, m.persistFailures, m.requestCounter, m.requestLatency, m.activeShoppers)
	return m
}

// Mutation records a store mutation.
func (m *Metrics) Mutation(store, op string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(store, op).Inc()
}

// PersistFailure records a failed durable storage operation.
func (m *Metrics) PersistFailure(store, op string) {
	if m == nil {
		return
	}
	m.persistFailures.WithLabelValues(store, op).Inc()
}

// SetActiveShoppers sets the number of in-memory shoppers.
func (m *Metrics) SetActiveShoppers(n int) {
	if m == nil {
		return
	}
	m.activeShoppers.Set(float64(n))
}

// Middleware records request counts and latency labelled with the chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		m.requestCounter.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}
