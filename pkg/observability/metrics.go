// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the mcpagent orchestrator.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for reasoning-backend
// latencies, ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all gateway HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcpagent_requests_total",
			Help: "Total gateway requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records gateway request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mcpagent_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method"},
	)

	// ProviderRequestsTotal counts requests sent to the reasoning backend.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcpagent_provider_requests_total",
			Help: "Reasoning backend requests",
		},
		[]string{"provider", "status"},
	)

	// ProviderLatency records reasoning backend latency in seconds.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mcpagent_provider_latency_seconds",
			Help:    "Reasoning backend latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider"},
	)

	// ToolInvocations counts tool invocations by owning server, tool
	// name, and outcome.
	ToolInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcpagent_tool_invocations_total",
			Help: "Tool invocations",
		},
		[]string{"server", "tool", "status"},
	)

	// ToolDuration records tool invocation duration in seconds.
	ToolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mcpagent_tool_duration_seconds",
			Help:    "Tool invocation duration",
			Buckets: LLMBuckets,
		},
		[]string{"server", "tool"},
	)

	// TurnsTotal counts completed agent turns by outcome
	// (answer, limit, error).
	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcpagent_turns_total",
			Help: "Agent turns",
		},
		[]string{"outcome"},
	)

	// ActiveTurns tracks the number of turns currently in flight.
	ActiveTurns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mcpagent_turns_active",
			Help: "Turns in flight",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		ProviderRequestsTotal,
		ProviderLatency,
		ToolInvocations,
		ToolDuration,
		TurnsTotal,
		ActiveTurns,
	)
}
