package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and sync Prometheus metrics.
var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "contentdex",
			Name:      "queries_total",
			Help:      "Content queries handled by the read path",
		},
		[]string{"outcome"}, // "served" / "skipped" / "fallback"
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "contentdex",
			Name:      "query_duration_seconds",
			Help:      "Engine search call duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"scope"},
	)

	DocumentsIndexedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "contentdex",
			Name:      "documents_indexed_total",
			Help:      "Documents submitted to the engine via bulk",
		},
		[]string{"status"}, // "ok" / "failed" / "skipped"
	)

	DocumentsDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "contentdex",
			Name:      "documents_deleted_total",
			Help:      "Delete-by-ID calls issued to the engine",
		},
	)

	SyncQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "contentdex",
			Name:      "sync_queue_depth",
			Help:      "Entries currently waiting in the sync queue",
		},
	)

	BulkFlushesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "contentdex",
			Name:      "bulk_flushes_total",
			Help:      "Sync queue flushes",
		},
		[]string{"status"}, // "ok" / "partial" / "error"
	)
)

var coreMetricsRegistered bool

// RegisterCoreMetrics registers search and sync metrics. Must be called once from main.
func RegisterCoreMetrics() {
	if coreMetricsRegistered {
		return
	}
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(DocumentsIndexedTotal)
	prometheus.MustRegister(DocumentsDeletedTotal)
	prometheus.MustRegister(SyncQueueDepth)
	prometheus.MustRegister(BulkFlushesTotal)
	coreMetricsRegistered = true
}
