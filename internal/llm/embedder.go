// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/Shansgupta/Bajaj-hackathon/internal/cache"
)

// Embedder turns texts into vectors with a fixed model.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ModelEmbedder binds a Client to one embedding model.
type ModelEmbedder struct {
	Client *Client
	Model  string
}

func (m ModelEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return m.Client.Embed(ctx, m.Model, texts)
}

// CachedEmbedder serves repeated texts from a cache.
// Key: "emb:" + model + ":" + sha256(text).
type CachedEmbedder struct {
	next  Embedder
	model string
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedEmbedder wraps next. model only namespaces cache keys.
func NewCachedEmbedder(next Embedder, model string, c cache.Cache, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{next: next, model: model, cache: c, ttl: ttl}
}

func (e *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return e.model + ":" + hex.EncodeToString(sum[:])
}

// Embed looks every text up in the cache and only sends misses upstream.
func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		if v, ok := cache.GetJSON[[]float32](ctx, e.cache, "emb", e.key(t)); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := e.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		cache.SetJSON(ctx, e.cache, "emb", e.key(texts[i]), vecs[j], e.ttl)
	}
	return out, nil
}
