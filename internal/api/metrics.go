package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics exposed by the API server.
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	incidentsCreated  *prometheus.CounterVec
	approvalsRecorded *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics instance backed by a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remedia_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "pattern", "status_code"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "remedia_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "pattern"},
		),

		incidentsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remedia_incidents_created_total",
				Help: "Total number of incidents opened by reporting source",
			},
			[]string{"source"},
		),

		approvalsRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remedia_approvals_recorded_total",
				Help: "Total number of approval ledger entries by decision",
			},
			[]string{"decision"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.incidentsCreated,
		m.approvalsRecorded,
		collectors.NewGoCollector(),
	)

	return m
}

// RecordHTTPRequest records a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, pattern, statusCode string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, pattern, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(method, pattern).Observe(duration.Seconds())
}

// RecordIncidentCreated records a newly opened incident.
func (m *Metrics) RecordIncidentCreated(source string) {
	m.incidentsCreated.WithLabelValues(source).Inc()
}

// RecordApproval records an approval ledger append.
func (m *Metrics) RecordApproval(decision string) {
	m.approvalsRecorded.WithLabelValues(decision).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Instrument wraps a handler to record per-request metrics. Requests are
// labelled by a normalized endpoint name, not the raw path, to keep the
// label cardinality bounded.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		m.RecordHTTPRequest(r.Method, endpointName(r.URL.Path), strconv.Itoa(wrapped.statusCode), time.Since(start))
	})
}

// knownEndpoints is the fixed label set for request metrics. Anything
// else (scanner probes, typos) collapses into "other" so the label
// cardinality stays bounded.
var knownEndpoints = map[string]struct{}{
	"/healthz":                {},
	"/metrics":                {},
	"/api/incidents":          {},
	"/api/recommendations":    {},
	"/api/orchestrator/run":   {},
	"/platform/":              {},
	"/platform/incidents":     {},
	"/platform/incidents/new": {},
}

// endpointName collapses request paths with embedded incident ids into a
// stable endpoint label and maps unregistered paths to "other".
func endpointName(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "incidents" {
		if len(parts) == 3 {
			return "/api/incidents/{id}"
		}
		if len(parts) == 4 {
			switch parts[3] {
			case "approvals", "executions", "blast-radius":
				return "/api/incidents/{id}/" + parts[3]
			}
		}
		return "other"
	}
	if path == "" || path == "/" {
		return "/"
	}
	if _, ok := knownEndpoints[path]; ok {
		return path
	}
	return "other"
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
