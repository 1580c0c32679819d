// Package metrics provides Prometheus metrics for the explorer client.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Gateway request metrics
	gatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_gateway_requests_total",
			Help: "Total number of gateway requests",
		},
		[]string{"endpoint", "status"},
	)

	gatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "explorer_gateway_request_duration_seconds",
			Help:    "Gateway request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Dialog metrics
	dialogSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_dialog_submissions_total",
			Help: "Total dialog submissions by dialog and result",
		},
		[]string{"dialog", "result"},
	)

	// Tree metrics
	forestNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "explorer_forest_nodes",
			Help: "Number of items materialized in the explorer forest",
		},
	)

	insertMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "explorer_tree_insert_misses_total",
			Help: "Moves, copies or creations whose destination folder was not loaded",
		},
	)

	refetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_refetches_total",
			Help: "Views reloaded from the gateway after a mutation",
		},
		[]string{"mode"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordGatewayRequest records a gateway request. Status 0 means no response.
func RecordGatewayRequest(endpoint string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	gatewayRequestsTotal.WithLabelValues(endpoint, label).Inc()
	gatewayRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordDialogSubmit records the outcome of a dialog submission.
func RecordDialogSubmit(dialog string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	dialogSubmissionsTotal.WithLabelValues(dialog, result).Inc()
}

// SetForestNodes sets the forest size gauge.
func SetForestNodes(n int) {
	forestNodes.Set(float64(n))
}

// RecordInsertMiss records a destination folder that was not found locally.
func RecordInsertMiss() {
	insertMissesTotal.Inc()
}

// RecordRefetch records a view reload.
func RecordRefetch(mode string) {
	refetchesTotal.WithLabelValues(mode).Inc()
}
