// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimd_upstream_requests_total",
		Help: "Requests to external APIs by upstream, operation and outcome",
	}, []string{"upstream", "operation", "outcome"}) // outcome=success|error|retry|circuit_open

	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "claimd_upstream_request_duration_seconds",
		Help:    "Latency of external API calls",
		Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30, 60},
	}, []string{"upstream", "operation"})

	llmTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimd_llm_tokens_total",
		Help: "Tokens reported by the LLM provider",
	}, []string{"model", "kind"}) // kind=prompt|completion

	vectorOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimd_vector_operations_total",
		Help: "Vector store operations by backend, operation and outcome",
	}, []string{"backend", "operation", "outcome"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimd_cache_lookups_total",
		Help: "Cache lookups by namespace and result",
	}, []string{"namespace", "result"}) // result=hit|miss|error
)

// RecordUpstream records one external call.
func RecordUpstream(upstream, operation, outcome string, seconds float64) {
	upstreamRequests.WithLabelValues(upstream, operation, outcome).Inc()
	if seconds > 0 {
		upstreamDuration.WithLabelValues(upstream, operation).Observe(seconds)
	}
}

// RecordTokens adds token usage for a model.
func RecordTokens(model string, prompt, completion int) {
	if prompt > 0 {
		llmTokens.WithLabelValues(model, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		llmTokens.WithLabelValues(model, "completion").Add(float64(completion))
	}
}

// RecordVectorOp records a vector store call.
func RecordVectorOp(backend, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	vectorOps.WithLabelValues(backend, operation, outcome).Inc()
}

// RecordCacheLookup records a cache hit, miss or error.
func RecordCacheLookup(namespace, result string) {
	cacheLookups.WithLabelValues(namespace, result).Inc()
}
