// Package metrics holds the Prometheus collectors shared by loaders,
// embedders and the ingestion pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "artifex"

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Upsert result label values. Failed upserts use StatusError.
const (
	ResultStored  = "stored"
	ResultSkipped = "skipped"
)

// Loader metrics.
var (
	LoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Total number of single-source loads",
		},
		[]string{"status"},
	)

	LoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Single-source load duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	CollectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collections_total",
			Help:      "Total number of collection loads",
		},
		[]string{"status"},
	)

	CollectionDuplicatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_duplicates_total",
			Help:      "Sources skipped because an earlier source had the same key",
		},
	)

	CollectionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collection_duration_seconds",
			Help:      "Collection load duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)
)

// Embedding metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"status"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

// Storage metrics.
var (
	VectorsUpsertedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vectors_upserted_total",
			Help:      "Artifacts written to the vector store by the ingestion pipeline",
		},
		[]string{"result"}, // "stored" / "skipped" / "error"
	)
)

var registerOnce sync.Once

// Collectors returns every collector defined by this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		LoadsTotal,
		LoadDuration,
		CollectionsTotal,
		CollectionDuplicatesTotal,
		CollectionDuration,
		EmbeddingRequestsTotal,
		EmbeddingCacheTotal,
		VectorsUpsertedTotal,
	}
}

// Register registers all collectors with reg, or with the default registerer
// when reg is nil. Only the first call has an effect.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(Collectors()...)
	})
}

// Status maps an error to a status label value.
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
