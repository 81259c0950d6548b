// Package metrics exposes Prometheus instrumentation for organize runs and
// the HTTP front-end.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"fjacquet/fiscal-organizer/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fiscal_organizer"

// Metrics owns a private registry so tests and multiple servers never collide.
type Metrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	documentsTotal *prometheus.CounterVec
	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
	runDocuments   prometheus.Histogram
	archiveBytes   prometheus.Histogram
}

// New creates the collectors for service.
func New(service string) *Metrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	m := &Metrics{
		service:  service,
		registry: registry,
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests processed.",
			},
			[]string{"service", "method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "method", "path"},
		),
		requestInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Subsystem:   "http",
				Name:        "in_flight_requests",
				Help:        "Number of in-flight HTTP requests.",
				ConstLabels: constLabels,
			},
		),
		documentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   "organizer",
				Name:        "documents_total",
				Help:        "Documents processed, by category or outcome.",
				ConstLabels: constLabels,
			},
			[]string{"category", "outcome"},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   "organizer",
				Name:        "runs_total",
				Help:        "Organize runs by final status.",
				ConstLabels: constLabels,
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Subsystem:   "organizer",
				Name:        "run_duration_seconds",
				Help:        "Organize run duration in seconds.",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: constLabels,
			},
		),
		runDocuments: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Subsystem:   "organizer",
				Name:        "run_documents",
				Help:        "Documents per organize run.",
				Buckets:     []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
				ConstLabels: constLabels,
			},
		),
		archiveBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Subsystem:   "organizer",
				Name:        "archive_bytes",
				Help:        "Size of produced archives in bytes.",
				Buckets:     prometheus.ExponentialBuckets(1024, 4, 10),
				ConstLabels: constLabels,
			},
		),
	}

	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.documentsTotal,
		m.runsTotal,
		m.runDuration,
		m.runDocuments,
		m.archiveBytes,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDocument counts one document outcome.
func (m *Metrics) ObserveDocument(outcome models.DocumentOutcome) {
	switch {
	case outcome.Error != "" && outcome.Category != "":
		m.documentsTotal.WithLabelValues(string(outcome.Category), "conflict").Inc()
	case outcome.Error != "":
		m.documentsTotal.WithLabelValues("none", "unreadable").Inc()
	default:
		m.documentsTotal.WithLabelValues(string(outcome.Category), "placed").Inc()
	}
}

// ObserveRun records the status, duration and size of a finished run.
func (m *Metrics) ObserveRun(run models.RunRecord) {
	status := run.Status
	if status == "" {
		status = "unknown"
	}
	m.runsTotal.WithLabelValues(status).Inc()
	if !run.StartedAt.IsZero() && run.FinishedAt.After(run.StartedAt) {
		m.runDuration.Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())
	}
	m.runDocuments.Observe(float64(len(run.Documents)))
	if run.ArchiveSize > 0 {
		m.archiveBytes.Observe(float64(run.ArchiveSize))
	}
}

// Middleware instruments every request passing through next.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
