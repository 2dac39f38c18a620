// Package metrics defines the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector. All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	claimsCreated       *prometheus.CounterVec
	transitions         *prometheus.CounterVec
	transitionConflicts prometheus.Counter
	enrichment          *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
}

// New creates collectors on a private registry, plus Go and process collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		claimsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "claims_created_total",
			Help: "Claims created, by kind",
		}, []string{"kind"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "claim_transitions_total",
			Help: "Successful status transitions",
		}, []string{"from", "to"}),
		transitionConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "claim_transition_conflicts_total",
			Help: "Transitions lost to a concurrent status change",
		}),
		enrichment: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enrichment_results_total",
			Help: "Metadata enrichment outcomes",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		m.claimsCreated,
		m.transitions,
		m.transitionConflicts,
		m.enrichment,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ClaimCreated counts one persisted claim of the given kind
func (m *Metrics) ClaimCreated(kind string) {
	if m == nil {
		return
	}
	m.claimsCreated.WithLabelValues(kind).Inc()
}

// Transition counts one committed status change
func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// TransitionConflict counts a transition rejected by the compare-and-swap
func (m *Metrics) TransitionConflict() {
	if m == nil {
		return
	}
	m.transitionConflicts.Inc()
}

// EnrichmentResult counts one outcome: ok, empty, failed, cached or skipped
func (m *Metrics) EnrichmentResult(result string) {
	if m == nil {
		return
	}
	m.enrichment.WithLabelValues(result).Inc()
}

// HTTPRequest records one served request
func (m *Metrics) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
