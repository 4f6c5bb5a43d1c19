// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldCorrelationID = "correlation_id"
	FieldRequestID     = "request_id"
	FieldClaimID       = "claim_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldStage     = "stage"
	FieldDuration  = "duration_ms"

	// Claim fields
	FieldQuery     = "query"
	FieldDecision  = "decision"
	FieldAmount    = "amount"
	FieldProcedure = "procedure"
	FieldLanguage  = "language"

	// Retrieval fields
	FieldBackend = "backend"
	FieldIndex   = "index"
	FieldTopK    = "top_k"
	FieldChunks  = "chunks"

	// Upstream fields
	FieldModel     = "model"
	FieldOperation = "operation"
	FieldStatus    = "status"

	// HTTP fields
	FieldMethod = "method"
	FieldPath   = "path"
	FieldRoute  = "route"
	FieldRemote = "remote_addr"
)
