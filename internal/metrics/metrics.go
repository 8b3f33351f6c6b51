// Package metrics - Prometheus metrics cho các job đối soát và HTTP server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Kết quả của entity trong một lần chạy
const (
	OutcomeSucceeded = "succeeded"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

var (
	// Số lần chạy theo job và trạng thái
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "data_hub",
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Total number of reconciliation job runs",
		},
		[]string{"job", "status"},
	)

	// Số entity theo kết quả
	EntitiesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "data_hub",
			Subsystem: "reconcile",
			Name:      "entities_total",
			Help:      "Entities processed by reconciliation jobs, by outcome",
		},
		[]string{"job", "outcome"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "data_hub",
			Subsystem: "reconcile",
			Name:      "run_duration_seconds",
			Help:      "Reconciliation job run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"job"},
	)

	// HTTP
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "data_hub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "data_hub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "route"},
	)
)

// Handler trả về handler /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun ghi nhận một lần chạy hoàn tất (kể cả bị ngắt giữa chừng)
func ObserveRun(job string, duration time.Duration, succeeded, skipped, failed int, interrupted bool) {
	status := "completed"
	if interrupted {
		status = "interrupted"
	}
	RunsTotal.WithLabelValues(job, status).Inc()
	RunDuration.WithLabelValues(job).Observe(duration.Seconds())
	EntitiesTotal.WithLabelValues(job, OutcomeSucceeded).Add(float64(succeeded))
	EntitiesTotal.WithLabelValues(job, OutcomeSkipped).Add(float64(skipped))
	EntitiesTotal.WithLabelValues(job, OutcomeFailed).Add(float64(failed))
}

// ObserveRunError ghi nhận job dừng vì lỗi setup
func ObserveRunError(job string) {
	RunsTotal.WithLabelValues(job, "error").Inc()
}

// RecordRequest ghi nhận một HTTP request
func RecordRequest(method, route string, status int, duration time.Duration) {
	RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
