package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	MetricRequestsTotal      = "tlserve_http_requests_total"
	MetricRequestDuration    = "tlserve_http_request_duration_seconds"
	MetricRejectedPathsTotal = "tlserve_rejected_paths_total"
	MetricRateLimitedTotal   = "tlserve_rate_limited_requests_total"
	MetricHandshakeErrsTotal = "tlserve_tls_handshake_errors_total"
)

// Metrics holds the server collectors. They are registered on a private
// registry so several servers can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	rejectedTotal     *prometheus.CounterVec
	rateLimitedTotal  prometheus.Counter
	handshakeErrTotal prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRequestsTotal,
			Help: "Number of answered requests by status code and method",
		}, []string{"code", "method"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricRequestDuration,
			Help:    "Time spent answering requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRejectedPathsTotal,
			Help: "Number of request paths answered with 404, by reason",
		}, []string{"reason"}),
		rateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRateLimitedTotal,
			Help: "Number of requests refused by the rate limiter",
		}),
		handshakeErrTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricHandshakeErrsTotal,
			Help: "Number of failed TLS handshakes",
		}),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.rejectedTotal,
		m.rateLimitedTotal,
		m.handshakeErrTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Instrument counts and times every request answered by next.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return promhttp.InstrumentHandlerDuration(m.requestDuration,
		promhttp.InstrumentHandlerCounter(m.requestsTotal, next))
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) observeRejected(reason RejectReason) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) observeRateLimited() {
	if m == nil {
		return
	}
	m.rateLimitedTotal.Inc()
}

func (m *Metrics) observeHandshakeError() {
	if m == nil {
		return
	}
	m.handshakeErrTotal.Inc()
}
