package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prospect_research",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Upstream API calls by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prospect_research",
			Subsystem: "gateway",
			Name:      "retries_total",
			Help:      "Upstream API attempts that were retried after a transient failure.",
		},
		[]string{"operation"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "prospect_research",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Wall time of upstream API calls including retries.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)
