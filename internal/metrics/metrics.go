// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	gobreaker "github.com/sony/gobreaker/v2"
)

var (
	ImportRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "albumclub_import_runs_total",
			Help: "WhatsApp import runs by outcome",
		},
		[]string{"outcome"}, // "ok", "failed"
	)

	ImportPicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "albumclub_import_picks_total",
			Help: "Import candidates by result",
		},
		[]string{"result"}, // "inserted", "updated", "skipped_week_limit", "missing_user"
	)

	ImportErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "albumclub_import_errors_total",
			Help: "Soft errors recorded in import summaries",
		},
	)

	ImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "albumclub_import_duration_seconds",
			Help:    "Duration of import runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "albumclub_upstream_requests_total",
			Help: "Requests to third-party music APIs",
		},
		[]string{"upstream", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "albumclub_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "albumclub_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "albumclub_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// ImportResult holds the counters of one finished import run.
type ImportResult struct {
	Inserted         int
	Updated          int
	SkippedWeekLimit int
	MissingUser      int
	Errors           int
	Duration         time.Duration
}

// RecordImport adds a finished import run to the collectors.
func RecordImport(r ImportResult) {
	ImportRuns.WithLabelValues("ok").Inc()
	ImportPicks.WithLabelValues("inserted").Add(float64(r.Inserted))
	ImportPicks.WithLabelValues("updated").Add(float64(r.Updated))
	ImportPicks.WithLabelValues("skipped_week_limit").Add(float64(r.SkippedWeekLimit))
	ImportPicks.WithLabelValues("missing_user").Add(float64(r.MissingUser))
	ImportErrors.Add(float64(r.Errors))
	ImportDuration.Observe(r.Duration.Seconds())
}

// RecordImportFailure counts a run that aborted before producing a summary.
func RecordImportFailure() {
	ImportRuns.WithLabelValues("failed").Inc()
}

// RecordHTTP records one served request.
func RecordHTTP(method, route string, status int, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// BreakerStateValue maps a breaker state to the gauge value.
func BreakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
