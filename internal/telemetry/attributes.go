// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	// Claim pipeline
	ClaimProcedureKey = "claim.procedure"
	ClaimDecisionKey  = "claim.decision"
	ClaimAmountKey    = "claim.amount"
	ClaimSourceKey    = "claim.decision_source"
	ClaimLanguageKey  = "claim.language"
	ClaimThinkModeKey = "claim.think_mode"

	// Retrieval
	RetrievalBackendKey = "retrieval.backend"
	RetrievalTopKKey    = "retrieval.top_k"
	RetrievalChunksKey  = "retrieval.chunks"

	// LLM
	LLMModelKey     = "llm.model"
	LLMOperationKey = "llm.operation"

	// FAQ
	FAQSourceKey = "faq.source"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// ClaimAttributes describes a finished claim decision. Empty values are skipped.
func ClaimAttributes(procedure, decision, source string, amount float64) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	if procedure != "" {
		attrs = append(attrs, attribute.String(ClaimProcedureKey, procedure))
	}
	if decision != "" {
		attrs = append(attrs, attribute.String(ClaimDecisionKey, decision))
	}
	if source != "" {
		attrs = append(attrs, attribute.String(ClaimSourceKey, source))
	}
	return append(attrs, attribute.Float64(ClaimAmountKey, amount))
}

// RetrievalAttributes describes a vector search.
func RetrievalAttributes(backend string, topK, chunks int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(RetrievalBackendKey, backend),
		attribute.Int(RetrievalTopKKey, topK),
		attribute.Int(RetrievalChunksKey, chunks),
	}
}

// LLMAttributes describes an LLM call.
func LLMAttributes(operation, model string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(LLMOperationKey, operation),
		attribute.String(LLMModelKey, model),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
