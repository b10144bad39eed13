// Package metrics provides Prometheus metrics for the backup engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the backup engine.
type Metrics struct {
	// Ingest metrics
	IngestRunsTotal        *prometheus.CounterVec
	IngestDuration         *prometheus.HistogramVec
	IngestChunksUploaded   prometheus.Counter
	IngestChunksDeduped    prometheus.Counter
	IngestBytesUploaded    prometheus.Counter
	IngestBlocksInFlight   prometheus.Gauge

	// Restore metrics
	RestoreRunsTotal  *prometheus.CounterVec
	RestoreDuration   *prometheus.HistogramVec
	RestoreChunksRead prometheus.Counter

	// Store metrics
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec
	StoreBytesTotal        *prometheus.CounterVec

	// Local advisory cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Garbage collection metrics
	GCRunsTotal      prometheus.Counter
	GCChunksDeleted  prometheus.Counter
	GCDuration       prometheus.Histogram
	GCOrphanChunks   prometheus.Gauge
	GCLastRunSeconds prometheus.Gauge
}

const namespace = "chunkvault"

// New creates and registers all Prometheus metrics against the default
// registry, for use by cmd/chunkvault's metrics HTTP endpoint.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates and registers all Prometheus metrics against
// reg, so tests (and anything else constructing more than one Metrics in
// a process) can use a scratch prometheus.NewRegistry() instead of
// colliding on the default registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		IngestRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "runs_total",
				Help:      "Total number of backup (ingest) runs.",
			},
			[]string{"root", "status"},
		),
		IngestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "duration_seconds",
				Help:      "Backup run duration in seconds.",
				Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 300, 900},
			},
			[]string{"root"},
		),
		IngestChunksUploaded: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "chunks_uploaded_total",
				Help:      "Total number of chunks uploaded across all backups.",
			},
		),
		IngestChunksDeduped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "chunks_deduped_total",
				Help:      "Total number of chunks skipped because the store already held them.",
			},
		),
		IngestBytesUploaded: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "bytes_uploaded_total",
				Help:      "Total chunk bytes uploaded across all backups.",
			},
		),
		IngestBlocksInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "blocks_in_flight",
				Help:      "Current number of hashed blocks buffered awaiting upload.",
			},
		),

		RestoreRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "restore",
				Name:      "runs_total",
				Help:      "Total number of restore runs.",
			},
			[]string{"root", "status"},
		),
		RestoreDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "restore",
				Name:      "duration_seconds",
				Help:      "Restore run duration in seconds.",
				Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 300, 900},
			},
			[]string{"root"},
		),
		RestoreChunksRead: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "restore",
				Name:      "chunks_read_total",
				Help:      "Total number of chunks fetched across all restores.",
			},
		),

		StoreOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operations_total",
				Help:      "Total number of object store operations.",
			},
			[]string{"operation", "status"},
		),
		StoreOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operation_duration_seconds",
				Help:      "Object store operation duration in seconds.",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),
		StoreBytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "bytes_total",
				Help:      "Total bytes transferred by store operations.",
			},
			[]string{"operation"},
		),

		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of local advisory cache hits.",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of local advisory cache misses.",
			},
			[]string{"cache"},
		),

		GCRunsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gc",
				Name:      "runs_total",
				Help:      "Total number of garbage collection sweeps.",
			},
		),
		GCChunksDeleted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gc",
				Name:      "chunks_deleted_total",
				Help:      "Total number of orphan chunks deleted by garbage collection.",
			},
		),
		GCDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gc",
				Name:      "duration_seconds",
				Help:      "Garbage collection sweep duration in seconds.",
				Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 120},
			},
		),
		GCOrphanChunks: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "gc",
				Name:      "orphan_chunks",
				Help:      "Orphan chunks found by the most recent sweep.",
			},
		),
		GCLastRunSeconds: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "gc",
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix timestamp of the last garbage collection sweep.",
			},
		),
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordIngest records one backup run's outcome.
func (m *Metrics) RecordIngest(root, status string, duration float64, uploaded, deduped int, bytesUploaded int64) {
	m.IngestRunsTotal.WithLabelValues(root, status).Inc()
	m.IngestDuration.WithLabelValues(root).Observe(duration)
	m.IngestChunksUploaded.Add(float64(uploaded))
	m.IngestChunksDeduped.Add(float64(deduped))
	m.IngestBytesUploaded.Add(float64(bytesUploaded))
}

// RecordRestore records one restore run's outcome.
func (m *Metrics) RecordRestore(root, status string, duration float64, chunksRead int) {
	m.RestoreRunsTotal.WithLabelValues(root, status).Inc()
	m.RestoreDuration.WithLabelValues(root).Observe(duration)
	m.RestoreChunksRead.Add(float64(chunksRead))
}

// RecordStoreOperation records one object store operation.
func (m *Metrics) RecordStoreOperation(operation, status string, duration float64, bytes int64) {
	m.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	m.StoreOperationDuration.WithLabelValues(operation).Observe(duration)
	if bytes > 0 {
		m.StoreBytesTotal.WithLabelValues(operation).Add(float64(bytes))
	}
}

// RecordCacheAccess records a local advisory cache access.
func (m *Metrics) RecordCacheAccess(cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

// RecordGCRun records one garbage collection sweep.
func (m *Metrics) RecordGCRun(duration float64, chunksDeleted int, orphansFound int, finishedAtUnix float64) {
	m.GCRunsTotal.Inc()
	m.GCDuration.Observe(duration)
	m.GCChunksDeleted.Add(float64(chunksDeleted))
	m.GCOrphanChunks.Set(float64(orphansFound))
	m.GCLastRunSeconds.Set(finishedAtUnix)
}
