// SPDX-License-Identifier: MIT

package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Shansgupta/Bajaj-hackathon/internal/metrics"
	"github.com/Shansgupta/Bajaj-hackathon/internal/resilience"
	"github.com/Shansgupta/Bajaj-hackathon/internal/upstream"
)

// UpstashConfig configures the Upstash Vector REST client.
type UpstashConfig struct {
	URL           string
	Token         string
	Timeout       time.Duration
	MaxRetries    int
	HTTPClient    *http.Client
	RetryInterval time.Duration
}

// Upstash talks to an Upstash Vector index over REST.
type Upstash struct {
	url   string
	token string
	up    *upstream.Client
}

// NewUpstash creates a client. Missing credentials surface as
// ErrNotConfigured on use.
func NewUpstash(cfg UpstashConfig) *Upstash {
	return &Upstash{
		url:   strings.TrimRight(cfg.URL, "/"),
		token: cfg.Token,
		up: upstream.NewClient("upstash", upstream.Options{
			Timeout:         cfg.Timeout,
			MaxTries:        uint(max(cfg.MaxRetries, 1)),
			InitialInterval: cfg.RetryInterval,
			HTTPClient:      cfg.HTTPClient,
		}),
	}
}

func (u *Upstash) Name() string { return "upstash" }

// Breaker exposes the circuit breaker for readiness checks.
func (u *Upstash) Breaker() *resilience.CircuitBreaker { return u.up.Breaker() }

type upstashEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func (u *Upstash) call(ctx context.Context, op, method, path string, payload any, out any) error {
	if u.url == "" || u.token == "" {
		return upstream.NotConfigured(u.Name(), op)
	}
	var raw []byte
	if payload != nil {
		var err error
		if raw, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("upstash: %s: encode request: %w", op, err)
		}
	}
	body, err := u.up.Do(ctx, op, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, method, u.url+path, bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+u.token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	})
	if err != nil {
		return err
	}

	var env upstashEnvelope
	if err := u.up.DecodeJSON(op, body, &env); err != nil {
		return err
	}
	if env.Error != "" {
		return &upstream.Error{Upstream: u.Name(), Sentinel: ErrBadResponse, Operation: op, Body: env.Error}
	}
	if out == nil {
		return nil
	}
	return u.up.DecodeJSON(op, env.Result, out)
}

type upstashVector struct {
	ID       string         `json:"id"`
	Vector   []float32      `json:"vector,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (u *Upstash) Upsert(ctx context.Context, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	payload := make([]upstashVector, len(vectors))
	for i, v := range vectors {
		payload[i] = upstashVector{ID: v.ID, Vector: v.Values, Metadata: v.Metadata}
	}
	err := u.call(ctx, "upsert", http.MethodPost, "/upsert", payload, nil)
	metrics.RecordVectorOp(u.Name(), "upsert", err)
	return err
}

type upstashQuery struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
	Filter          string    `json:"filter,omitempty"`
}

type upstashMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

func (u *Upstash) Query(ctx context.Context, req QueryRequest) ([]Match, error) {
	var res []upstashMatch
	err := u.call(ctx, "query", http.MethodPost, "/query", upstashQuery{
		Vector:          req.Vector,
		TopK:            req.TopK,
		IncludeMetadata: req.IncludeMetadata,
		Filter:          UpstashFilter(req.Filter),
	}, &res)
	metrics.RecordVectorOp(u.Name(), "query", err)
	if err != nil {
		return nil, err
	}
	out := make([]Match, len(res))
	for i, m := range res {
		out[i] = Match(m)
	}
	return out, nil
}

type upstashFetch struct {
	IDs             []string `json:"ids"`
	IncludeMetadata bool     `json:"includeMetadata"`
	IncludeVectors  bool     `json:"includeVectors"`
}

func (u *Upstash) Fetch(ctx context.Context, ids []string) ([]Vector, error) {
	var res []*upstashVector
	err := u.call(ctx, "fetch", http.MethodPost, "/fetch", upstashFetch{IDs: ids, IncludeMetadata: true, IncludeVectors: true}, &res)
	metrics.RecordVectorOp(u.Name(), "fetch", err)
	if err != nil {
		return nil, err
	}
	out := make([]Vector, 0, len(res))
	for _, v := range res {
		if v == nil {
			continue
		}
		out = append(out, Vector{ID: v.ID, Values: v.Vector, Metadata: v.Metadata})
	}
	return out, nil
}

type upstashInfo struct {
	VectorCount int64 `json:"vectorCount"`
	Dimension   int   `json:"dimension"`
}

func (u *Upstash) Describe(ctx context.Context) (Stats, error) {
	var info upstashInfo
	if err := u.call(ctx, "info", http.MethodGet, "/info", nil, &info); err != nil {
		return Stats{}, err
	}
	return Stats{VectorCount: info.VectorCount, Dimension: info.Dimension}, nil
}

// Check reports readiness: configured and breaker not open.
func (u *Upstash) Check(ctx context.Context) error {
	if u.url == "" || u.token == "" {
		return upstream.NotConfigured(u.Name(), "check")
	}
	return u.up.Breaker().Check(ctx)
}

// UpstashFilter renders an equality filter in Upstash's filter syntax,
// e.g. {"type":"faq","n":3} -> "n = 3 AND type = 'faq'". Keys are sorted.
func UpstashFilter(filter map[string]any) string {
	if len(filter) == 0 {
		return ""
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := filter[k].(type) {
		case string:
			parts = append(parts, fmt.Sprintf("%s = '%s'", k, strings.ReplaceAll(v, "'", "\\'")))
		default:
			parts = append(parts, fmt.Sprintf("%s = %v", k, v))
		}
	}
	return strings.Join(parts, " AND ")
}
