// ============================================================================
// Netspatch Metrics - Prometheus Monitoring
// ============================================================================
//
// Package: internal/metrics
// File: metrics.go
// Purpose: Collect and expose dispatcher metrics for Prometheus monitoring
//
// Metric Categories:
//
//   1. Job Counters - Cumulative, monotonically increasing:
//      - dispatch_jobs_dispatched_total: Jobs handed to workers
//      - dispatch_jobs_completed_total: Completion reports accepted
//      - dispatch_jobs_requeued_total: Jobs returned for re-dispatch
//      - dispatch_requests_total{status}: Requests served, by response code
//
//   2. Performance Metrics (Histogram):
//      - dispatch_request_duration_seconds: Per-request service time
//
//   3. Status Metrics (Gauge) - Instantaneous values:
//      - dispatch_jobs_pending: Cells currently out with workers
//      - dispatch_jobs_abandoned: Cells waiting for re-dispatch
//
// HTTP Endpoint:
//   Exposed via /metrics on a dedicated port when enabled in config,
//   scraped by Prometheus in the Prometheus text exposition format.
//
// ============================================================================

package metrics

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects Prometheus metrics for the dispatch server
type Collector struct {
	registry *prometheus.Registry

	// Job-related metrics
	jobsDispatched prometheus.Counter
	jobsCompleted  prometheus.Counter
	jobsRequeued   prometheus.Counter
	requests       *prometheus.CounterVec

	// Performance metrics
	requestDuration prometheus.Histogram

	// Status metrics
	jobsPending   prometheus.Gauge
	jobsAbandoned prometheus.Gauge
}

// NewCollector creates a new metrics collector with its own registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_jobs_dispatched_total",
			Help: "Total number of jobs handed out to workers",
		}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_jobs_completed_total",
			Help: "Total number of completion reports accepted",
		}),
		jobsRequeued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_jobs_requeued_total",
			Help: "Total number of jobs returned to the pool for re-dispatch",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_requests_total",
			Help: "Total number of requests served, by response status code",
		}, []string{"status"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dispatch_request_duration_seconds",
			Help:    "Time spent servicing a single request",
			Buckets: prometheus.DefBuckets,
		}),
		jobsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispatch_jobs_pending",
			Help: "Current number of cells issued and not yet completed",
		}),
		jobsAbandoned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispatch_jobs_abandoned",
			Help: "Current number of cells waiting for re-dispatch",
		}),
	}

	// Register all metrics
	c.registry.MustRegister(c.jobsDispatched)
	c.registry.MustRegister(c.jobsCompleted)
	c.registry.MustRegister(c.jobsRequeued)
	c.registry.MustRegister(c.requests)
	c.registry.MustRegister(c.requestDuration)
	c.registry.MustRegister(c.jobsPending)
	c.registry.MustRegister(c.jobsAbandoned)

	return c
}

// RecordDispatch records a job being handed to a worker
func (c *Collector) RecordDispatch() {
	c.jobsDispatched.Inc()
}

// RecordCompleted records an accepted completion report
func (c *Collector) RecordCompleted() {
	c.jobsCompleted.Inc()
}

// RecordRequeued records a job returned for re-dispatch
func (c *Collector) RecordRequeued() {
	c.jobsRequeued.Inc()
}

// RecordRequest records one served request with its status and duration
func (c *Collector) RecordRequest(statusCode int, seconds float64) {
	c.requests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	c.requestDuration.Observe(seconds)
}

// UpdateQueueStats updates the pending and abandoned gauges
func (c *Collector) UpdateQueueStats(pending, abandoned int) {
	c.jobsPending.Set(float64(pending))
	c.jobsAbandoned.Set(float64(abandoned))
}

// Handler returns the scrape handler for this collector's registry
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StartServer starts the Prometheus metrics HTTP server
//
// Parameters:
//   - port: HTTP server port
//
// Returns:
//   - error: Error on startup failure
func (c *Collector) StartServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	addr := fmt.Sprintf(":%d", port)
	return http.ListenAndServe(addr, mux)
}
