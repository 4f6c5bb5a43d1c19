// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Shansgupta/Bajaj-hackathon/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls [][]string
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.calls = append(c.calls, texts)
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func TestCachedEmbedder_OnlyEmbedsMisses(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	mem := cache.NewMemoryCache(0)
	e := NewCachedEmbedder(inner, "ada", mem, time.Hour)

	first, err := e.Embed(ctx, []string{"a", "bb"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, first)

	second, err := e.Embed(ctx, []string{"bb", "ccc", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2}, {3}, {1}}, second)

	require.Len(t, inner.calls, 2)
	assert.Equal(t, []string{"ccc"}, inner.calls[1])
}

func TestCachedEmbedder_PropagatesError(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("boom")}
	e := NewCachedEmbedder(inner, "ada", cache.NoOp{}, time.Hour)
	_, err := e.Embed(context.Background(), []string{"x"})
	assert.EqualError(t, err, "boom")
}

func TestCachedEmbedder_KeyIncludesModel(t *testing.T) {
	a := NewCachedEmbedder(nil, "ada", cache.NoOp{}, 0)
	b := NewCachedEmbedder(nil, "3-small", cache.NoOp{}, 0)
	assert.NotEqual(t, a.key("knee"), b.key("knee"))
}
