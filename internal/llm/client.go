// SPDX-License-Identifier: MIT

// Package llm is a small OpenAI REST client covering chat completions,
// embeddings and text-to-speech.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	xglog "github.com/Shansgupta/Bajaj-hackathon/internal/log"
	"github.com/Shansgupta/Bajaj-hackathon/internal/metrics"
	"github.com/Shansgupta/Bajaj-hackathon/internal/resilience"
	"github.com/Shansgupta/Bajaj-hackathon/internal/telemetry"
	"github.com/Shansgupta/Bajaj-hackathon/internal/upstream"
	"github.com/rs/zerolog"
)

const upstreamName = "openai"

// Sentinel errors re-exported for callers.
var (
	ErrNotConfigured       = upstream.ErrNotConfigured
	ErrUnauthorized        = upstream.ErrUnauthorized
	ErrRateLimited         = upstream.ErrRateLimited
	ErrUpstreamUnavailable = upstream.ErrUpstreamUnavailable
	ErrUpstreamError       = upstream.ErrUpstreamError
	ErrBadResponse         = upstream.ErrBadResponse
	ErrTimeout             = upstream.ErrTimeout
)

// Role values for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest describes a chat completion call.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// ChatResponse is the first choice of a completion.
type ChatResponse struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// SpeechRequest describes a text-to-speech call.
type SpeechRequest struct {
	Model  string
	Voice  string
	Input  string
	Format string // mp3 by default
}

// Chatter is implemented by anything that can run chat completions.
type Chatter interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// Speaker synthesizes speech.
type Speaker interface {
	Speech(ctx context.Context, req SpeechRequest) ([]byte, error)
}

// Config configures the client.
type Config struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64
	HTTPClient        *http.Client
	// RetryInterval overrides the initial backoff (tests).
	RetryInterval time.Duration
}

// Client talks to the OpenAI REST API.
type Client struct {
	apiKey  string
	baseURL string
	up      *upstream.Client
	logger  zerolog.Logger
}

// New creates a client. A missing API key is not an error here; calls fail with
// ErrNotConfigured instead so the service can still start.
func New(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.openai.com"
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: base,
		up: upstream.NewClient(upstreamName, upstream.Options{
			Timeout:           cfg.Timeout,
			MaxTries:          uint(max(cfg.MaxRetries, 1)),
			InitialInterval:   cfg.RetryInterval,
			RequestsPerSecond: cfg.RequestsPerSecond,
			HTTPClient:        cfg.HTTPClient,
		}),
		logger: xglog.WithComponent("llm"),
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Breaker exposes the circuit breaker for readiness checks.
func (c *Client) Breaker() *resilience.CircuitBreaker { return c.up.Breaker() }

func (c *Client) post(ctx context.Context, op, path string, payload any) ([]byte, error) {
	if !c.Configured() {
		return nil, upstream.NotConfigured(upstreamName, op)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("llm: %s: encode request: %w", op, err)
	}
	return c.up.Do(ctx, op, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
}

type chatPayload struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResult struct {
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Chat runs a chat completion and returns the first choice.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	ctx, span := telemetry.StartStage(ctx, "llm.chat", telemetry.LLMAttributes("chat", req.Model)...)
	body, err := c.post(ctx, "chat", "/v1/chat/completions", chatPayload{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		telemetry.EndStage(span, err)
		return ChatResponse{}, err
	}

	var res chatResult
	if err := c.up.DecodeJSON("chat", body, &res); err != nil {
		telemetry.EndStage(span, err)
		return ChatResponse{}, err
	}
	if len(res.Choices) == 0 {
		err := &upstream.Error{Upstream: upstreamName, Sentinel: ErrBadResponse, Operation: "chat", Body: "no choices"}
		telemetry.EndStage(span, err)
		return ChatResponse{}, err
	}
	metrics.RecordTokens(req.Model, res.Usage.PromptTokens, res.Usage.CompletionTokens)
	telemetry.EndStage(span, nil)

	c.logger.Debug().
		Str(xglog.FieldEvent, "llm.chat").
		Str(xglog.FieldModel, req.Model).
		Int("prompt_tokens", res.Usage.PromptTokens).
		Int("completion_tokens", res.Usage.CompletionTokens).
		Msg("chat completion")

	return ChatResponse{
		Content:          strings.TrimSpace(res.Choices[0].Message.Content),
		Model:            res.Model,
		PromptTokens:     res.Usage.PromptTokens,
		CompletionTokens: res.Usage.CompletionTokens,
	}, nil
}

type embedPayload struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResult struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
	} `json:"usage"`
}

// Embed returns one vector per input, in input order.
func (c *Client) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	ctx, span := telemetry.StartStage(ctx, "llm.embed", telemetry.LLMAttributes("embed", model)...)
	body, err := c.post(ctx, "embed", "/v1/embeddings", embedPayload{Model: model, Input: texts})
	if err != nil {
		telemetry.EndStage(span, err)
		return nil, err
	}

	var res embedResult
	if err := c.up.DecodeJSON("embed", body, &res); err != nil {
		telemetry.EndStage(span, err)
		return nil, err
	}
	out := make([][]float32, len(texts))
	for _, d := range res.Data {
		if d.Index < 0 || d.Index >= len(out) {
			err := &upstream.Error{Upstream: upstreamName, Sentinel: ErrBadResponse, Operation: "embed", Body: fmt.Sprintf("index %d out of range", d.Index)}
			telemetry.EndStage(span, err)
			return nil, err
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if v == nil {
			err := &upstream.Error{Upstream: upstreamName, Sentinel: ErrBadResponse, Operation: "embed", Body: fmt.Sprintf("missing embedding %d", i)}
			telemetry.EndStage(span, err)
			return nil, err
		}
	}
	metrics.RecordTokens(model, res.Usage.PromptTokens, 0)
	telemetry.EndStage(span, nil)
	return out, nil
}

type speechPayload struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format,omitempty"`
}

// Speech synthesizes audio for the input text.
func (c *Client) Speech(ctx context.Context, req SpeechRequest) ([]byte, error) {
	ctx, span := telemetry.StartStage(ctx, "llm.speech", telemetry.LLMAttributes("speech", req.Model)...)
	format := req.Format
	if format == "" {
		format = "mp3"
	}
	audio, err := c.post(ctx, "speech", "/v1/audio/speech", speechPayload{
		Model:          req.Model,
		Voice:          req.Voice,
		Input:          req.Input,
		ResponseFormat: format,
	})
	telemetry.EndStage(span, err)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, &upstream.Error{Upstream: upstreamName, Sentinel: ErrBadResponse, Operation: "speech", Body: "empty audio"}
	}
	return audio, nil
}

// Check reports readiness: configured and breaker not open.
func (c *Client) Check(ctx context.Context) error {
	if !c.Configured() {
		return upstream.NotConfigured(upstreamName, "check")
	}
	return c.up.Breaker().Check(ctx)
}
