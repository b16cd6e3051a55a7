// Package metrics holds the Prometheus collectors of the service.
// HTTP collectors are updated by middleware, file collectors by the storage orchestrator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation results
const (
	ResultOK       = "ok"
	ResultInvalid  = "invalid"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyvault_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyvault_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// FileOperationsTotal counts orchestrator operations by outcome.
	FileOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyvault_file_operations_total",
			Help: "Total number of file operations",
		},
		[]string{"operation", "result"},
	)

	// OrphanBlobsTotal counts blobs left without metadata after a failed compensation.
	OrphanBlobsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyvault_orphan_blobs_total",
			Help: "Blobs left behind without a metadata record",
		},
	)

	OrphanBlobsRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyvault_orphan_blobs_removed_total",
			Help: "Orphan blobs deleted by sweeps",
		},
	)

	StoredBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyvault_stored_bytes_total",
			Help: "Bytes persisted by successful uploads and replacements",
		},
	)
)
