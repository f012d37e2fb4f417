package vectorstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// upsertsTotal counts upsert operations.
	// Labels: backend, result (success, error)
	upsertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpusd",
			Subsystem: "vectorstore",
			Name:      "upserts_total",
			Help:      "Total number of record upsert operations",
		},
		[]string{"backend", "result"},
	)

	// recordsWritten counts rows actually inserted (conflicts excluded).
	recordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpusd",
			Subsystem: "vectorstore",
			Name:      "records_written_total",
			Help:      "Total number of records written, conflict skips excluded",
		},
		[]string{"backend"},
	)

	// searchesTotal counts similarity searches.
	// Labels: backend, result (success, error)
	searchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpusd",
			Subsystem: "vectorstore",
			Name:      "searches_total",
			Help:      "Total number of similarity search operations",
		},
		[]string{"backend", "result"},
	)

	// searchDuration tracks similarity search latency.
	searchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "corpusd",
			Subsystem: "vectorstore",
			Name:      "search_duration_seconds",
			Help:      "Duration of similarity search operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend"},
	)
)
