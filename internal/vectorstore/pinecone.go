// SPDX-License-Identifier: MIT

package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	xglog "github.com/Shansgupta/Bajaj-hackathon/internal/log"
	"github.com/Shansgupta/Bajaj-hackathon/internal/metrics"
	"github.com/Shansgupta/Bajaj-hackathon/internal/resilience"
	"github.com/Shansgupta/Bajaj-hackathon/internal/upstream"
)

const pineconeAPIVersion = "2024-07"

// PineconeConfig configures the Pinecone REST client.
type PineconeConfig struct {
	APIKey     string
	ControlURL string // https://api.pinecone.io
	Index      string
	Dimension  int
	Metric     string
	Cloud      string
	Region     string
	// Host skips the control-plane lookup when set.
	Host          string
	Timeout       time.Duration
	MaxRetries    int
	HTTPClient    *http.Client
	RetryInterval time.Duration
}

// Pinecone talks to one serverless Pinecone index.
type Pinecone struct {
	cfg    PineconeConfig
	up     *upstream.Client
	logger zerolog.Logger

	mu   sync.Mutex
	host string
}

// NewPinecone creates a client. The data-plane host is resolved lazily.
func NewPinecone(cfg PineconeConfig) *Pinecone {
	if cfg.ControlURL == "" {
		cfg.ControlURL = "https://api.pinecone.io"
	}
	cfg.ControlURL = strings.TrimRight(cfg.ControlURL, "/")
	if cfg.Dimension <= 0 {
		cfg.Dimension = 1536
	}
	if cfg.Metric == "" {
		cfg.Metric = "cosine"
	}
	if cfg.Cloud == "" {
		cfg.Cloud = "aws"
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	return &Pinecone{
		cfg:  cfg,
		host: normalizeHost(cfg.Host),
		up: upstream.NewClient("pinecone", upstream.Options{
			Timeout:         cfg.Timeout,
			MaxTries:        uint(max(cfg.MaxRetries, 1)),
			InitialInterval: cfg.RetryInterval,
			HTTPClient:      cfg.HTTPClient,
		}),
		logger: xglog.WithComponent("vectorstore.pinecone"),
	}
}

func normalizeHost(h string) string {
	h = strings.TrimRight(h, "/")
	if h == "" || strings.HasPrefix(h, "http://") || strings.HasPrefix(h, "https://") {
		return h
	}
	return "https://" + h
}

func (p *Pinecone) Name() string { return "pinecone" }

// Index returns the index name.
func (p *Pinecone) Index() string { return p.cfg.Index }

// Breaker exposes the circuit breaker for readiness checks.
func (p *Pinecone) Breaker() *resilience.CircuitBreaker { return p.up.Breaker() }

func (p *Pinecone) do(ctx context.Context, op, method, rawURL string, payload any) ([]byte, error) {
	if p.cfg.APIKey == "" {
		return nil, upstream.NotConfigured(p.Name(), op)
	}
	var raw []byte
	if payload != nil {
		var err error
		if raw, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("pinecone: %s: encode request: %w", op, err)
		}
	}
	return p.up.Do(ctx, op, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Api-Key", p.cfg.APIKey)
		req.Header.Set("X-Pinecone-API-Version", pineconeAPIVersion)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	})
}

type pineconeIndex struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Host      string `json:"host"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

type pineconeCreateIndex struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Spec      struct {
		Serverless struct {
			Cloud  string `json:"cloud"`
			Region string `json:"region"`
		} `json:"serverless"`
	} `json:"spec"`
}

func (p *Pinecone) describeIndex(ctx context.Context) (pineconeIndex, error) {
	var idx pineconeIndex
	body, err := p.do(ctx, "describe_index", http.MethodGet, p.cfg.ControlURL+"/indexes/"+url.PathEscape(p.cfg.Index), nil)
	if err != nil {
		return idx, err
	}
	err = p.up.DecodeJSON("describe_index", body, &idx)
	return idx, err
}

// EnsureIndex creates the serverless index when it does not exist yet and
// caches its data-plane host.
func (p *Pinecone) EnsureIndex(ctx context.Context) error {
	idx, err := p.describeIndex(ctx)
	if errors.Is(err, ErrNotFound) {
		req := pineconeCreateIndex{Name: p.cfg.Index, Dimension: p.cfg.Dimension, Metric: p.cfg.Metric}
		req.Spec.Serverless.Cloud = p.cfg.Cloud
		req.Spec.Serverless.Region = p.cfg.Region

		body, cerr := p.do(ctx, "create_index", http.MethodPost, p.cfg.ControlURL+"/indexes", req)
		if cerr != nil {
			return cerr
		}
		if cerr := p.up.DecodeJSON("create_index", body, &idx); cerr != nil {
			return cerr
		}
		p.logger.Info().
			Str(xglog.FieldEvent, "pinecone.index_created").
			Str(xglog.FieldIndex, p.cfg.Index).
			Int("dimension", p.cfg.Dimension).
			Msg("created pinecone index")
	} else if err != nil {
		return err
	}
	if idx.Host == "" {
		return &upstream.Error{Upstream: p.Name(), Sentinel: ErrBadResponse, Operation: "describe_index", Body: "index has no host yet"}
	}
	p.mu.Lock()
	p.host = normalizeHost(idx.Host)
	p.mu.Unlock()
	return nil
}

func (p *Pinecone) dataHost(ctx context.Context) (string, error) {
	p.mu.Lock()
	host := p.host
	p.mu.Unlock()
	if host != "" {
		return host, nil
	}
	idx, err := p.describeIndex(ctx)
	if err != nil {
		return "", err
	}
	if idx.Host == "" {
		return "", &upstream.Error{Upstream: p.Name(), Sentinel: ErrBadResponse, Operation: "describe_index", Body: "index has no host yet"}
	}
	host = normalizeHost(idx.Host)
	p.mu.Lock()
	p.host = host
	p.mu.Unlock()
	return host, nil
}

type pineconeVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (p *Pinecone) Upsert(ctx context.Context, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	err := p.upsert(ctx, vectors)
	metrics.RecordVectorOp(p.Name(), "upsert", err)
	return err
}

func (p *Pinecone) upsert(ctx context.Context, vectors []Vector) error {
	host, err := p.dataHost(ctx)
	if err != nil {
		return err
	}
	payload := struct {
		Vectors []pineconeVector `json:"vectors"`
	}{Vectors: make([]pineconeVector, len(vectors))}
	for i, v := range vectors {
		payload.Vectors[i] = pineconeVector(v)
	}
	_, err = p.do(ctx, "upsert", http.MethodPost, host+"/vectors/upsert", payload)
	return err
}

type pineconeQuery struct {
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	IncludeMetadata bool           `json:"includeMetadata"`
	Filter          map[string]any `json:"filter,omitempty"`
}

func (p *Pinecone) Query(ctx context.Context, req QueryRequest) ([]Match, error) {
	out, err := p.query(ctx, req)
	metrics.RecordVectorOp(p.Name(), "query", err)
	return out, err
}

func (p *Pinecone) query(ctx context.Context, req QueryRequest) ([]Match, error) {
	host, err := p.dataHost(ctx)
	if err != nil {
		return nil, err
	}
	body, err := p.do(ctx, "query", http.MethodPost, host+"/query", pineconeQuery{
		Vector:          req.Vector,
		TopK:            req.TopK,
		IncludeMetadata: req.IncludeMetadata,
		Filter:          PineconeFilter(req.Filter),
	})
	if err != nil {
		return nil, err
	}
	var res struct {
		Matches []Match `json:"matches"`
	}
	if err := p.up.DecodeJSON("query", body, &res); err != nil {
		return nil, err
	}
	return res.Matches, nil
}

func (p *Pinecone) Fetch(ctx context.Context, ids []string) ([]Vector, error) {
	out, err := p.fetch(ctx, ids)
	metrics.RecordVectorOp(p.Name(), "fetch", err)
	return out, err
}

func (p *Pinecone) fetch(ctx context.Context, ids []string) ([]Vector, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	host, err := p.dataHost(ctx)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	for _, id := range ids {
		q.Add("ids", id)
	}
	body, err := p.do(ctx, "fetch", http.MethodGet, host+"/vectors/fetch?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var res struct {
		Vectors map[string]pineconeVector `json:"vectors"`
	}
	if err := p.up.DecodeJSON("fetch", body, &res); err != nil {
		return nil, err
	}
	out := make([]Vector, 0, len(res.Vectors))
	for _, id := range ids {
		if v, ok := res.Vectors[id]; ok {
			out = append(out, Vector(v))
		}
	}
	return out, nil
}

func (p *Pinecone) Describe(ctx context.Context) (Stats, error) {
	host, err := p.dataHost(ctx)
	if err != nil {
		return Stats{}, err
	}
	body, err := p.do(ctx, "describe_index_stats", http.MethodPost, host+"/describe_index_stats", struct{}{})
	if err != nil {
		return Stats{}, err
	}
	var res struct {
		Dimension        int   `json:"dimension"`
		TotalVectorCount int64 `json:"totalVectorCount"`
	}
	if err := p.up.DecodeJSON("describe_index_stats", body, &res); err != nil {
		return Stats{}, err
	}
	return Stats{VectorCount: res.TotalVectorCount, Dimension: res.Dimension}, nil
}

// Check reports readiness: configured and breaker not open.
func (p *Pinecone) Check(ctx context.Context) error {
	if p.cfg.APIKey == "" {
		return upstream.NotConfigured(p.Name(), "check")
	}
	return p.up.Breaker().Check(ctx)
}

// PineconeFilter renders an equality filter as {"k": {"$eq": v}}.
func PineconeFilter(filter map[string]any) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	out := make(map[string]any, len(filter))
	for k, v := range filter {
		out[k] = map[string]any{"$eq": v}
	}
	return out
}
