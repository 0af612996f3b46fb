// Package metrics exposes the gateway's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signal-miniapp/internal/mutation"
	"github.com/signal-miniapp/internal/storage"
)

const namespace = "signal_miniapp"

// Metrics holds the collectors of one gateway instance
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	mutations        *prometheus.CounterVec
	mutationDuration *prometheus.HistogramVec

	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	cacheInvalidations prometheus.Counter
}

// New creates the collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mutations",
			Name:      "settled_total",
			Help:      "Mutations settled, by action and outcome.",
		}, []string{"action", "outcome"}),
		mutationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mutations",
			Name:      "duration_seconds",
			Help:      "Duration of the backend call of a mutation.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"action"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query_cache",
			Name:      "hits_total",
			Help:      "Reads answered from a session cache.",
		}, []string{"key"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query_cache",
			Name:      "misses_total",
			Help:      "Reads that went to the backend.",
		}, []string{"key"}),
		cacheInvalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query_cache",
			Name:      "invalidations_total",
			Help:      "Whole-cache invalidations after mutations.",
		}),
	}

	m.registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.mutations,
		m.mutationDuration,
		m.cacheHits,
		m.cacheMisses,
		m.cacheInvalidations,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CacheHit implements storage.CacheObserver
func (m *Metrics) CacheHit(key storage.QueryKey) {
	m.cacheHits.WithLabelValues(string(key)).Inc()
}

// CacheMiss implements storage.CacheObserver
func (m *Metrics) CacheMiss(key storage.QueryKey) {
	m.cacheMisses.WithLabelValues(string(key)).Inc()
}

// CacheInvalidated implements storage.CacheObserver
func (m *Metrics) CacheInvalidated() {
	m.cacheInvalidations.Inc()
}

// MutationSettled implements mutation.Observer
func (m *Metrics) MutationSettled(name string, kind mutation.OutcomeKind, duration time.Duration) {
	m.mutations.WithLabelValues(name, kind.String()).Inc()
	m.mutationDuration.WithLabelValues(name).Observe(duration.Seconds())
}

// Middleware records request counts and durations labelled by route template
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := routeLabel(r)
		method := strings.ToUpper(r.Method)
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// routeLabel keeps label cardinality bounded: unmatched paths collapse to one value
func routeLabel(r *http.Request) string {
	if current := mux.CurrentRoute(r); current != nil {
		if tmpl, err := current.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

var (
	_ storage.CacheObserver = (*Metrics)(nil)
	_ mutation.Observer     = (*Metrics)(nil)
)
