// SPDX-License-Identifier: MIT

// Package vectorstore abstracts the vector databases claimd reads policy
// chunks from and writes claim history to.
package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/Shansgupta/Bajaj-hackathon/internal/upstream"
)

// Sentinel errors re-exported for callers.
var (
	ErrNotConfigured       = upstream.ErrNotConfigured
	ErrUnauthorized        = upstream.ErrUnauthorized
	ErrNotFound            = upstream.ErrNotFound
	ErrRateLimited         = upstream.ErrRateLimited
	ErrUpstreamUnavailable = upstream.ErrUpstreamUnavailable
	ErrUpstreamError       = upstream.ErrUpstreamError
	ErrBadResponse         = upstream.ErrBadResponse
	ErrTimeout             = upstream.ErrTimeout
)

// Vector is a stored embedding with its metadata.
type Vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Match is one query hit.
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// QueryRequest is a similarity query. Filter keys must match metadata exactly.
type QueryRequest struct {
	Vector          []float32
	TopK            int
	IncludeMetadata bool
	Filter          map[string]any
}

// Stats describes an index.
type Stats struct {
	VectorCount int64
	Dimension   int
}

// Store is implemented by every backend.
type Store interface {
	Name() string
	Upsert(ctx context.Context, vectors []Vector) error
	Query(ctx context.Context, req QueryRequest) ([]Match, error)
	Fetch(ctx context.Context, ids []string) ([]Vector, error)
}

// Describer is implemented by stores that can report index statistics.
type Describer interface {
	Describe(ctx context.Context) (Stats, error)
}

// Cosine returns the cosine similarity of a and b, or 0 when either is zero
// or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// MatchesFilter reports whether every filter entry equals the metadata value.
// Values are compared by their formatted form so 3 and 3.0 match.
func MatchesFilter(meta, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := meta[k]
		if !ok {
			return false
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// TopK sorts matches by score descending then id, and keeps at most k.
func TopK(matches []Match, k int) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// scoreAll runs a brute-force query over vectors.
func scoreAll(vectors []Vector, req QueryRequest) []Match {
	out := make([]Match, 0, len(vectors))
	for _, v := range vectors {
		if len(req.Filter) > 0 && !MatchesFilter(v.Metadata, req.Filter) {
			continue
		}
		m := Match{ID: v.ID, Score: Cosine(req.Vector, v.Values)}
		if req.IncludeMetadata {
			m.Metadata = v.Metadata
		}
		out = append(out, m)
	}
	return TopK(out, req.TopK)
}
