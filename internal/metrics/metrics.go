// Package metrics counts exports. One-shot commands flush the registry to a
// node exporter textfile; the serve command exposes it on /metrics.
package metrics

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeWritten = "written"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

type Metrics struct {
	registry  *prometheus.Registry
	exports   *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	processed *prometheus.CounterVec
	uploads   *prometheus.CounterVec

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ucal_export",
			Name:      "files_total",
			Help:      "Export attempts by format and outcome.",
		}, []string{"format", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ucal_export",
			Name:      "run_duration_seconds",
			Help:      "Time spent exporting one run.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"outcome"}),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ucal_export",
			Name:      "processed_runs_total",
			Help:      "Runs handed to the analysis step by outcome.",
		}, []string{"outcome"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ucal_export",
			Name:      "mirror_uploads_total",
			Help:      "Object store uploads by outcome.",
		}, []string{"outcome"}),
	}
	m.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ucal_export",
		Name:      "http_requests_total",
		Help:      "Trigger requests by method, route and status code.",
	}, []string{"method", "endpoint", "status"})
	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ucal_export",
		Name:      "http_request_duration_seconds",
		Help:      "Trigger request latency by method, route and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})
	m.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ucal_export",
		Name:      "http_requests_in_flight",
		Help:      "Trigger requests being served.",
	})
	m.registry.MustRegister(m.exports, m.duration, m.processed, m.uploads, m.requests, m.requestDuration, m.inFlight)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveExport(format string, written bool, err error) {
	m.exports.WithLabelValues(format, outcome(written, err)).Inc()
}

func (m *Metrics) ObserveRun(started time.Time, err error) {
	m.duration.WithLabelValues(outcome(true, err)).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObserveProcessing(processed bool, err error) {
	m.processed.WithLabelValues(outcome(processed, err)).Inc()
}

func (m *Metrics) ObserveUpload(err error) {
	m.uploads.WithLabelValues(outcome(true, err)).Inc()
}

// InFlight is the gauge of requests being served.
func (m *Metrics) InFlight() prometheus.Gauge {
	return m.inFlight
}

// ObserveRequest records one served request. endpoint is the route pattern,
// not the request path, so run ids do not become label values.
func (m *Metrics) ObserveRequest(method, endpoint string, status int, started time.Time) {
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, endpoint, code).Observe(time.Since(started).Seconds())
	m.requests.WithLabelValues(method, endpoint, code).Inc()
}

// Flush writes the registry to path. An empty path disables it and a
// failure is only logged.
func (m *Metrics) Flush(path string, logger *slog.Logger) {
	if m == nil || path == "" {
		return
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		logger.Warn("Failed to write the metrics textfile", "path", path, "error", err.Error())
	}
}

func outcome(written bool, err error) string {
	switch {
	case err != nil:
		return OutcomeFailed
	case !written:
		return OutcomeSkipped
	default:
		return OutcomeWritten
	}
}
