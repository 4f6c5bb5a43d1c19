// SPDX-License-Identifier: MIT

// Package metrics holds the Prometheus collectors exported by claimd.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	claimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimd_claims_total",
		Help: "Processed claims by final decision and decision source",
	}, []string{"decision", "source"}) // source=retriever|medical|fallback

	claimAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "claimd_claim_amount_rupees",
		Help:    "Approved amount of processed claims",
		Buckets: []float64{0, 1000, 2000, 5000, 10000, 20000, 50000, 100000, 500000},
	})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "claimd_pipeline_stage_duration_seconds",
		Help:    "Duration of claim and FAQ pipeline stages",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"pipeline", "stage", "outcome"})

	medicalDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimd_medical_policy_decisions_total",
		Help: "Medical policy rules engine verdicts",
	}, []string{"decision"})

	faqAnswers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimd_faq_answers_total",
		Help: "FAQ answers by source",
	}, []string{"source"}) // source=llm|chunk_fallback|not_found|error|cache|lookup

	historyWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimd_history_writes_total",
		Help: "Claim history writes by sink and outcome",
	}, []string{"sink", "outcome"})

	ingestedChunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimd_ingested_chunks_total",
		Help: "Chunks uploaded by the ingestion tooling",
	}, []string{"kind", "outcome"})
)

// RecordClaim records the final decision of one claim pipeline run.
func RecordClaim(decision, source string, amount float64) {
	claimsTotal.WithLabelValues(normalizeDecision(decision), normalizeLabel(source, "retriever", "medical", "fallback")).Inc()
	claimAmount.Observe(amount)
}

// ObserveStage records the duration of a pipeline stage.
func ObserveStage(pipeline, stage, outcome string, seconds float64) {
	stageDuration.WithLabelValues(pipeline, stage, normalizeLabel(outcome, "ok", "error", "skipped")).Observe(seconds)
}

// RecordMedicalDecision counts a rules engine verdict.
func RecordMedicalDecision(decision string) {
	medicalDecisions.WithLabelValues(normalizeLabel(decision, "approved", "partially approved", "denied", "pending", "error")).Inc()
}

// RecordFAQAnswer counts an FAQ answer by where it came from.
func RecordFAQAnswer(source string) {
	faqAnswers.WithLabelValues(normalizeLabel(source, "llm", "chunk_fallback", "not_found", "error", "cache", "lookup")).Inc()
}

// RecordHistoryWrite counts a claim history write to sqlite or pinecone.
func RecordHistoryWrite(sink string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	historyWrites.WithLabelValues(sink, outcome).Inc()
}

// RecordIngestedChunks counts uploaded (or failed) chunks.
func RecordIngestedChunks(kind string, ok, failed int) {
	ingestedChunks.WithLabelValues(kind, "success").Add(float64(ok))
	ingestedChunks.WithLabelValues(kind, "failure").Add(float64(failed))
}

func normalizeDecision(d string) string {
	return normalizeLabel(d, "approved", "rejected", "partially approved", "pending")
}

func normalizeLabel(v string, allowed ...string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return "unknown"
}
