package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline observability counters. Labels are low-cardinality by
// construction: status is analyzed|failed, analyzer is one of the five
// extraction stages.
var (
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectiq_pipeline_runs_total",
		Help: "Analysis pipeline runs by terminal status.",
	}, []string{"status"})

	AnalyzerFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectiq_analyzer_fallback_total",
		Help: "Rule-based fallback activations by analyzer.",
	}, []string{"analyzer"})

	GatewayCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectiq_gateway_calls_total",
		Help: "Model gateway invocations by outcome (ok|unavailable).",
	}, []string{"outcome"})
)
