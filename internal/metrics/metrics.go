// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scraperPostingsTotal       *prometheus.CounterVec
	scraperSourceErrorsTotal   *prometheus.CounterVec
	scraperRunDurationSeconds  prometheus.Histogram
	scraperActiveRuns          prometheus.Gauge
	classifierJobsTotal        *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scraperPostingsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_postings_total",
				Help: "Total number of postings gathered, labeled by source.",
			},
			[]string{"source"},
		)

		scraperSourceErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_source_errors_total",
				Help: "Total number of source adapter failures, labeled by source.",
			},
			[]string{"source"},
		)

		scraperRunDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scraper_run_duration_seconds",
				Help:    "Histogram of end-to-end scrape run durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		)

		scraperActiveRuns = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scraper_active_runs",
				Help: "Number of scrape runs currently in flight.",
			},
		)

		classifierJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classifier_jobs_total",
				Help: "Total number of postings pushed through classification, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePostings adds to the gathered-postings counter for a source.
func ObservePostings(source string, count int) {
	if count > 0 {
		scraperPostingsTotal.WithLabelValues(source).Add(float64(count))
	}
}

// ObserveSourceError increments the failure counter for a source.
func ObserveSourceError(source string) {
	scraperSourceErrorsTotal.WithLabelValues(source).Inc()
}

// ObserveRun records the duration of a completed scrape run.
func ObserveRun(duration time.Duration) {
	scraperRunDurationSeconds.Observe(duration.Seconds())
}

// IncActiveRuns increments the in-flight run gauge.
func IncActiveRuns() {
	scraperActiveRuns.Inc()
}

// DecActiveRuns decrements the in-flight run gauge.
func DecActiveRuns() {
	scraperActiveRuns.Dec()
}

// ObserveClassification increments the classifier counter for the given outcome.
func ObserveClassification(outcome string) {
	classifierJobsTotal.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
