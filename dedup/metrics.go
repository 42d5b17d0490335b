package dedup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultAdmitted   = "admitted"
	resultDuplicate  = "duplicate"
	resultStoreError = "store_error"
)

var (
	// decisionsTotal counts CheckAndMark outcomes by label and result
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dedup_decisions_total",
		Help: "Dedup guard decisions by label and result",
	}, []string{"label", "result"})

	// storeLatency tracks the round trip of the atomic claim
	storeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dedup_store_duration_seconds",
		Help:    "Dedup store SetNX latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
	})

	clearsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dedup_clears_total",
		Help: "Markers released before expiry",
	})
)
