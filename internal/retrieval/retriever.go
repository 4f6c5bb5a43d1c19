// SPDX-License-Identifier: MIT

// Package retrieval embeds a query and looks up the closest policy chunks.
package retrieval

import (
	"context"
	"fmt"

	"github.com/Shansgupta/Bajaj-hackathon/internal/llm"
	xglog "github.com/Shansgupta/Bajaj-hackathon/internal/log"
	"github.com/Shansgupta/Bajaj-hackathon/internal/telemetry"
	"github.com/Shansgupta/Bajaj-hackathon/internal/vectorstore"
)

// Chunk is a retrieved policy passage.
type Chunk struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Retriever queries one vector store.
type Retriever struct {
	Embedder llm.Embedder
	Store    vectorstore.Store
}

// Search returns raw matches with metadata.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]vectorstore.Match, error) {
	ctx, span := telemetry.StartStage(ctx, "retrieval.search")
	vecs, err := r.Embedder.Embed(ctx, []string{query})
	if err != nil {
		telemetry.EndStage(span, err)
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		err := fmt.Errorf("embed query: got %d vectors", len(vecs))
		telemetry.EndStage(span, err)
		return nil, err
	}

	matches, err := r.Store.Query(ctx, vectorstore.QueryRequest{
		Vector:          vecs[0],
		TopK:            k,
		IncludeMetadata: true,
	})
	span.SetAttributes(telemetry.RetrievalAttributes(r.Store.Name(), k, len(matches))...)
	telemetry.EndStage(span, err)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.Store.Name(), err)
	}
	return matches, nil
}

// Retrieve returns up to k chunks. The chunk text is the "text" metadata
// field, or "answer" for FAQ entries.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Chunk, error) {
	matches, err := r.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	chunks := make([]Chunk, 0, len(matches))
	for _, m := range matches {
		chunks = append(chunks, Chunk{Text: MatchText(m), Score: m.Score})
	}

	logger := xglog.WithComponentFromContext(ctx, "retrieval")
	ev := logger.Debug().
		Str(xglog.FieldEvent, "retrieval.done").
		Str(xglog.FieldBackend, r.Store.Name()).
		Int(xglog.FieldChunks, len(chunks))
	if len(chunks) > 0 {
		ev = ev.Float64("top_score", chunks[0].Score)
	}
	ev.Msg("retrieved chunks")
	return chunks, nil
}

// MatchText returns the text of a match from its metadata.
func MatchText(m vectorstore.Match) string {
	if s, ok := m.Metadata["text"].(string); ok && s != "" {
		return s
	}
	if s, ok := m.Metadata["answer"].(string); ok {
		return s
	}
	return ""
}
