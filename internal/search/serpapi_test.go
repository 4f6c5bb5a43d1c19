// SPDX-License-Identifier: MIT

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{APIKey: "serp", BaseURL: srv.URL, HTTPClient: srv.Client(), RetryInterval: time.Millisecond})
}

func TestSearch_BuildsQueryAndMapsResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "google", q.Get("engine"))
		assert.Equal(t, "knee surgery insurance policy coverage Pune", q.Get("q"))
		assert.Equal(t, "5", q.Get("num"))
		assert.Equal(t, "serp", q.Get("api_key"))

		var items []string
		for i := range 7 {
			items = append(items, fmt.Sprintf(`{"title":"t%d","snippet":"s%d","link":"https://x/%d"}`, i, i, i))
		}
		_, _ = w.Write([]byte(`{"organic_results":[` + strings.Join(items, ",") + `]}`))
	})

	got, err := c.Search(context.Background(), "knee surgery", "Pune")
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, Result{Title: "t0", Snippet: "s0", Link: "https://x/0", Source: "web"}, got[0])
}

func TestSearch_NoResultsIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Google hasn't returned any results for this query."}`))
	})
	got, err := c.Search(context.Background(), "x", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearch_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Invalid API key."}`))
	})
	_, err := c.Search(context.Background(), "x", "")
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestSearch_NotConfigured(t *testing.T) {
	_, err := New(Config{}).Search(context.Background(), "x", "y")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
