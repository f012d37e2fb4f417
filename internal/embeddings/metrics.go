package embeddings

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal counts embedding API calls.
	// Labels: model, result (success, error)
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpusd",
			Subsystem: "embeddings",
			Name:      "requests_total",
			Help:      "Total number of embedding provider API calls",
		},
		[]string{"model", "result"},
	)

	// requestDuration tracks embedding API call latency.
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "corpusd",
			Subsystem: "embeddings",
			Name:      "request_duration_seconds",
			Help:      "Duration of embedding provider API calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	// textsEmbedded counts individual texts embedded across all calls.
	textsEmbedded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "corpusd",
			Subsystem: "embeddings",
			Name:      "texts_embedded_total",
			Help:      "Total number of texts sent for embedding",
		},
	)
)
