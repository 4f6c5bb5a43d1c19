// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api provides the HTTP surface of claimd.
package api

import (
	"context"
	"net/http"

	"github.com/Shansgupta/Bajaj-hackathon/internal/claims"
	"github.com/Shansgupta/Bajaj-hackathon/internal/config"
	"github.com/Shansgupta/Bajaj-hackathon/internal/faq"
	"github.com/Shansgupta/Bajaj-hackathon/internal/health"
	"github.com/Shansgupta/Bajaj-hackathon/internal/history"
	"github.com/Shansgupta/Bajaj-hackathon/internal/voice"
)

// APIVersion is reported by GET /.
const APIVersion = "1.1.0"

// ClaimRunner analyses a claim query.
type ClaimRunner interface {
	Run(ctx context.Context, query string, opts claims.Options) claims.Response
}

// FAQService answers policy questions.
type FAQService interface {
	Answer(ctx context.Context, question string) faq.Result
	AnswerAll(ctx context.Context, questions []string) ([]faq.Result, error)
	// Lookup returns the stored answer of the closest FAQ entry.
	Lookup(ctx context.Context, question string) string
}

// VoiceAssistant turns a transcript into a spoken-style reply.
type VoiceAssistant interface {
	Reply(ctx context.Context, text string) voice.Reply
}

// HistoryReader lists recorded claims, newest first. limit <= 0 means all.
type HistoryReader interface {
	List(ctx context.Context, limit int) ([]history.Record, error)
}

// ConfigSource yields the live configuration. Implemented by config.ConfigHolder.
type ConfigSource interface {
	Get() config.AppConfig
}

// Deps holds the services behind the handlers. Nil services answer 503.
type Deps struct {
	Claims  ClaimRunner
	FAQ     FAQService
	Voice   VoiceAssistant
	History HistoryReader
	Health  *health.Manager

	// LLMGuard is consulted before LLM-backed work; an open circuit
	// short-circuits the request with 503.
	LLMGuard func(context.Context) error
}

// Server is the claimd HTTP API.
type Server struct {
	cfg     ConfigSource
	deps    Deps
	handler http.Handler
}

// New builds the server and its router. Middleware settings are read once;
// handlers read the live configuration per request.
func New(cfg ConfigSource, deps Deps) *Server {
	s := &Server{cfg: cfg, deps: deps}
	s.handler = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}
