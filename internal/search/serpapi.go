// SPDX-License-Identifier: MIT

// Package search queries SerpAPI for public policy information when the
// policy index has nothing relevant.
package search

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Shansgupta/Bajaj-hackathon/internal/resilience"
	"github.com/Shansgupta/Bajaj-hackathon/internal/upstream"
)

// Sentinel errors re-exported for callers.
var (
	ErrNotConfigured = upstream.ErrNotConfigured
	ErrUnauthorized  = upstream.ErrUnauthorized
	ErrRateLimited   = upstream.ErrRateLimited
	ErrBadResponse   = upstream.ErrBadResponse
)

const resultCount = 5

// Result is one organic search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
	Source  string `json:"source"`
	// CoverageLimit is a limit extracted by callers, 0 when unknown.
	CoverageLimit float64 `json:"coverage_limit,omitempty"`
}

// Searcher is implemented by Client.
type Searcher interface {
	Search(ctx context.Context, query, location string) ([]Result, error)
}

// Config configures the SerpAPI client.
type Config struct {
	APIKey        string
	BaseURL       string
	Timeout       time.Duration
	MaxRetries    int
	HTTPClient    *http.Client
	RetryInterval time.Duration
}

// Client is a SerpAPI Google search client.
type Client struct {
	apiKey  string
	baseURL string
	up      *upstream.Client
}

// New creates a client.
func New(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://serpapi.com"
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: base,
		up: upstream.NewClient("serpapi", upstream.Options{
			Timeout:         cfg.Timeout,
			MaxTries:        uint(max(cfg.MaxRetries, 1)),
			InitialInterval: cfg.RetryInterval,
			HTTPClient:      cfg.HTTPClient,
		}),
	}
}

// Breaker exposes the circuit breaker for readiness checks.
func (c *Client) Breaker() *resilience.CircuitBreaker { return c.up.Breaker() }

// Query builds the search phrase sent for a claim query.
func Query(query, location string) string {
	return query + " insurance policy coverage " + location
}

type serpResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"organic_results"`
}

// Search returns up to five organic results for the claim query.
func (c *Client) Search(ctx context.Context, query, location string) ([]Result, error) {
	if c.apiKey == "" {
		return nil, upstream.NotConfigured("serpapi", "search")
	}
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", Query(query, location))
	params.Set("api_key", c.apiKey)
	params.Set("num", "5")
	endpoint := c.baseURL + "/search.json?" + params.Encode()

	body, err := c.up.Do(ctx, "search", func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, err
	}

	var res serpResponse
	if err := c.up.DecodeJSON("search", body, &res); err != nil {
		return nil, err
	}
	if res.Error != "" && len(res.OrganicResults) == 0 {
		// "Google hasn't returned any results for this query." is not a failure.
		if strings.Contains(strings.ToLower(res.Error), "hasn't returned any results") {
			return []Result{}, nil
		}
		return nil, &upstream.Error{Upstream: "serpapi", Sentinel: ErrBadResponse, Operation: "search", Body: res.Error}
	}

	out := make([]Result, 0, min(len(res.OrganicResults), resultCount))
	for _, r := range res.OrganicResults {
		if len(out) == resultCount {
			break
		}
		out = append(out, Result{Title: r.Title, Snippet: r.Snippet, Link: r.Link, Source: "web"})
	}
	return out, nil
}

// Check reports readiness: configured and breaker not open.
func (c *Client) Check(ctx context.Context) error {
	if c.apiKey == "" {
		return upstream.NotConfigured("serpapi", "check")
	}
	return c.up.Breaker().Check(ctx)
}
