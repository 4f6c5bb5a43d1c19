// SPDX-License-Identifier: MIT

package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Shansgupta/Bajaj-hackathon/internal/claims"
	"github.com/Shansgupta/Bajaj-hackathon/internal/llm"
	xglog "github.com/Shansgupta/Bajaj-hackathon/internal/log"
	"github.com/Shansgupta/Bajaj-hackathon/internal/metrics"
	"github.com/Shansgupta/Bajaj-hackathon/internal/policy"
	"github.com/Shansgupta/Bajaj-hackathon/internal/vectorstore"
)

// Recorder writes finished claims to the history database and, when an
// index is set, to the claims vector index (one vector for the query and
// one for the explanation, sharing metadata).
type Recorder struct {
	Store    *Store
	Embedder llm.Embedder
	Index    vectorstore.Store

	now func() time.Time
}

// Record implements claims.Recorder.
func (r *Recorder) Record(ctx context.Context, res claims.Response, medical policy.Evaluation) error {
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	rec := Record{
		ID:              res.ID,
		Query:           res.Query,
		ParsedQuery:     res.ParsedQuery,
		Decision:        res.Decision,
		Amount:          res.Amount,
		Justifications:  res.Justifications,
		Explanation:     res.Explanation,
		MedicalDecision: medical,
		CreatedAt:       now().UTC(),
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	logger := xglog.WithComponentFromContext(ctx, "history")

	var errs []error
	if r.Store != nil {
		err := r.Store.Save(ctx, rec)
		metrics.RecordHistoryWrite("sqlite", err)
		if err != nil {
			logger.Error().Err(err).Str(xglog.FieldEvent, "history.save_failed").Msg("failed to save claim")
			errs = append(errs, err)
		}
	}
	if r.Index != nil && r.Embedder != nil {
		err := r.upsert(ctx, rec)
		metrics.RecordHistoryWrite(r.Index.Name(), err)
		if err != nil {
			logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "history.vector_store_failed").
				Str(xglog.FieldQuery, rec.Query).
				Msg("vector storage failed")
			errs = append(errs, err)
		} else {
			logger.Debug().Str(xglog.FieldEvent, "history.vector_stored").Msg("claim stored in vector index")
		}
	}
	return errors.Join(errs...)
}

func (r *Recorder) upsert(ctx context.Context, rec Record) error {
	vecs, err := r.Embedder.Embed(ctx, []string{rec.Query, rec.Explanation})
	if err != nil {
		return fmt.Errorf("embed claim: %w", err)
	}
	if len(vecs) != 2 {
		return fmt.Errorf("embed claim: got %d vectors", len(vecs))
	}
	meta, err := Metadata(rec)
	if err != nil {
		return err
	}
	return r.Index.Upsert(ctx, []vectorstore.Vector{
		{ID: uuid.NewString(), Values: vecs[0], Metadata: meta},
		{ID: uuid.NewString(), Values: vecs[1], Metadata: meta},
	})
}

// Metadata is the vector metadata layout of a stored claim. Structured
// fields are JSON strings because the index only holds flat values.
func Metadata(rec Record) (map[string]any, error) {
	parsed, err := json.Marshal(rec.ParsedQuery)
	if err != nil {
		return nil, err
	}
	just := rec.Justifications
	if just == nil {
		just = []claims.Clause{}
	}
	justJSON, err := json.Marshal(just)
	if err != nil {
		return nil, err
	}
	medical, err := json.Marshal(rec.MedicalDecision)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"claim_id":         rec.ID,
		"query":            rec.Query,
		"parsed_query":     string(parsed),
		"decision":         rec.Decision,
		"amount":           rec.Amount,
		"justifications":   string(justJSON),
		"explanation":      rec.Explanation,
		"medical_decision": string(medical),
		"timestamp":        rec.CreatedAt.Format(time.RFC3339Nano),
	}, nil
}

// FromMetadata rebuilds a record from vector metadata. Fields that do not
// decode are left zero.
func FromMetadata(id string, meta map[string]any) Record {
	str := func(k string) string {
		s, _ := meta[k].(string)
		return s
	}
	rec := Record{
		ID:          str("claim_id"),
		Query:       str("query"),
		Decision:    str("decision"),
		Explanation: str("explanation"),
	}
	if rec.ID == "" {
		rec.ID = id
	}
	switch v := meta["amount"].(type) {
	case float64:
		rec.Amount = v
	case json.Number:
		rec.Amount, _ = v.Float64()
	}
	if s := str("parsed_query"); s != "" {
		_ = json.Unmarshal([]byte(s), &rec.ParsedQuery)
	}
	if s := str("justifications"); s != "" {
		_ = json.Unmarshal([]byte(s), &rec.Justifications)
	}
	if s := str("medical_decision"); s != "" {
		_ = json.Unmarshal([]byte(s), &rec.MedicalDecision)
	}
	if t, err := time.Parse(time.RFC3339Nano, str("timestamp")); err == nil {
		rec.CreatedAt = t
	}
	return rec
}

// LoadFromIndex reads stored claims back from a vector index by querying
// with a zero vector. Both vectors of a claim carry the same metadata, so
// records are deduplicated by claim id.
func LoadFromIndex(ctx context.Context, idx vectorstore.Store, dim, limit int) ([]Record, error) {
	matches, err := idx.Query(ctx, vectorstore.QueryRequest{
		Vector:          make([]float32, dim),
		TopK:            limit,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("load claims from %s: %w", idx.Name(), err)
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]Record, 0, len(matches))
	for _, m := range matches {
		rec := FromMetadata(m.ID, m.Metadata)
		key := rec.ID + "|" + rec.Query
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out, nil
}
