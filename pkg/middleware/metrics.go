package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prospect_research",
			Subsystem: "mcp",
			Name:      "tool_calls_total",
			Help:      "MCP tool calls by tool and outcome.",
		},
		[]string{"tool", "outcome"},
	)

	toolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "prospect_research",
			Subsystem: "mcp",
			Name:      "tool_call_duration_seconds",
			Help:      "Wall time of MCP tool calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tool"},
	)
)
