// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minpic_http_requests_total",
			Help: "Total HTTP requests by route and status.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minpic_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// UploadsTotal counts upload attempts; result is "ok" or the failing stage.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minpic_uploads_total",
			Help: "Uploads by file type and result.",
		},
		[]string{"file_type", "result"},
	)

	SyncItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minpic_sync_items_total",
			Help: "Bucket sync outcomes per listed object.",
		},
		[]string{"outcome"},
	)

	DeletedFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minpic_deleted_files_total",
			Help: "Catalog rows removed by delete mode.",
		},
		[]string{"mode"},
	)

	StorageFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minpic_storage_failures_total",
			Help: "Best-effort object storage operations that failed.",
		},
		[]string{"op"},
	)

	ShortlinkCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minpic_shortlink_calls_total",
			Help: "Calls to the short-link service by operation and result.",
		},
		[]string{"op", "result"},
	)
)

// Result maps an error to a low-cardinality label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
