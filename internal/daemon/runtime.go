// SPDX-License-Identifier: MIT

// Package daemon builds claimd's components from configuration and manages
// the server lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/Shansgupta/Bajaj-hackathon/internal/api"
	"github.com/Shansgupta/Bajaj-hackathon/internal/cache"
	"github.com/Shansgupta/Bajaj-hackathon/internal/claims"
	"github.com/Shansgupta/Bajaj-hackathon/internal/config"
	"github.com/Shansgupta/Bajaj-hackathon/internal/faq"
	"github.com/Shansgupta/Bajaj-hackathon/internal/health"
	"github.com/Shansgupta/Bajaj-hackathon/internal/history"
	"github.com/Shansgupta/Bajaj-hackathon/internal/llm"
	xglog "github.com/Shansgupta/Bajaj-hackathon/internal/log"
	"github.com/Shansgupta/Bajaj-hackathon/internal/policy"
	"github.com/Shansgupta/Bajaj-hackathon/internal/retrieval"
	"github.com/Shansgupta/Bajaj-hackathon/internal/search"
	"github.com/Shansgupta/Bajaj-hackathon/internal/telemetry"
	"github.com/Shansgupta/Bajaj-hackathon/internal/vectorstore"
	"github.com/Shansgupta/Bajaj-hackathon/internal/voice"
)

const (
	cacheJanitorInterval = time.Minute
	ensureIndexTimeout   = 30 * time.Second
)

type checker interface {
	Check(ctx context.Context) error
}

// Runtime holds the long-lived components built from one configuration.
// ClaimsIndex and Search are nil when their feature is switched off.
type Runtime struct {
	Config config.AppConfig

	Telemetry   *telemetry.Provider
	Cache       cache.Cache
	LLM         *llm.Client
	Embedder    llm.Embedder
	Policies    vectorstore.Store
	ClaimsIndex *vectorstore.Pinecone
	Search      *search.Client
	Engine      *policy.Engine
	History     *history.Store
	Retriever   *retrieval.Retriever

	Claims *claims.Pipeline
	FAQ    *faq.Pipeline
	Voice  *voice.Assistant
	Health *health.Manager

	logger  zerolog.Logger
	closers []namedHook
}

// Build wires every component. On error whatever was opened is closed again.
func Build(ctx context.Context, cfg config.AppConfig) (_ *Runtime, err error) {
	rt := &Runtime{Config: cfg, logger: xglog.WithComponent("daemon")}
	defer func() {
		if err != nil {
			_ = rt.Close(context.WithoutCancel(ctx))
		}
	}()

	rt.Telemetry, err = telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "claimd",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	rt.addCloser("telemetry", rt.Telemetry.Shutdown)

	if err := rt.buildCache(ctx); err != nil {
		return nil, err
	}

	rt.LLM = llm.New(llm.Config{
		APIKey:            cfg.OpenAI.APIKey,
		BaseURL:           cfg.OpenAI.BaseURL,
		Timeout:           cfg.OpenAI.Timeout,
		MaxRetries:        cfg.OpenAI.MaxRetries,
		RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
	})
	rt.Embedder = llm.NewCachedEmbedder(
		llm.ModelEmbedder{Client: rt.LLM, Model: cfg.OpenAI.EmbeddingModel},
		cfg.OpenAI.EmbeddingModel, rt.Cache, cfg.Cache.TTL)

	if err := rt.buildPolicyStore(); err != nil {
		return nil, err
	}
	rt.Retriever = &retrieval.Retriever{Embedder: rt.Embedder, Store: rt.Policies}

	rules, rerr := policy.LoadRules(cfg.Policy.RulesFile)
	if rerr != nil {
		// LoadRules already logged and fell back to the defaults.
		rt.logger.Debug().Err(rerr).Msg("using default policy rules")
	}
	rt.Engine = policy.NewEngine(rules)

	rt.History, err = history.Open(ctx, cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	rt.addCloser("history", func(context.Context) error { return rt.History.Close() })
	if n, err := rt.History.Count(ctx); err == nil {
		rt.logger.Info().
			Str(xglog.FieldEvent, "history.opened").
			Str("path", cfg.History.Path).
			Int("claims", n).
			Msg("claim history ready")
	}

	switch {
	case !cfg.Claims.RecordPinecone:
	case cfg.Pinecone.APIKey == "":
		rt.logger.Warn().
			Str(xglog.FieldEvent, "pinecone.history_disabled").
			Str(xglog.FieldIndex, cfg.Pinecone.Index).
			Msg("no Pinecone API key, claims are stored locally only")
	default:
		rt.buildClaimsIndex(ctx)
	}
	if cfg.Claims.WebFallback {
		rt.Search = search.New(search.Config{
			APIKey:     cfg.SerpAPI.APIKey,
			BaseURL:    cfg.SerpAPI.BaseURL,
			Timeout:    cfg.OpenAI.Timeout,
			MaxRetries: cfg.OpenAI.MaxRetries,
		})
	}

	rt.buildPipelines()
	rt.buildHealth()

	rt.logger.Info().
		Str("event", "daemon.runtime_built").
		Str(xglog.FieldBackend, rt.Policies.Name()).
		Str("cache", cfg.Cache.Backend).
		Bool("claims_index", rt.ClaimsIndex != nil).
		Bool("web_fallback", rt.Search != nil).
		Bool("llm_configured", rt.LLM.Configured()).
		Msg("runtime ready")
	return rt, nil
}

func (rt *Runtime) buildCache(ctx context.Context) error {
	cfg := rt.Config.Cache
	switch cfg.Backend {
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, xglog.WithComponent("cache"))
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		rt.Cache = rc
	case "none":
		rt.Cache = cache.NoOp{}
	default:
		rt.Cache = cache.NewMemoryCache(cacheJanitorInterval)
	}
	rt.addCloser("cache", func(context.Context) error { return rt.Cache.Close() })
	return nil
}

func (rt *Runtime) buildPolicyStore() error {
	cfg := rt.Config
	switch cfg.Vector.Backend {
	case "badger":
		b, err := vectorstore.OpenBadger(cfg.Vector.Dir)
		if err != nil {
			return fmt.Errorf("open vector store: %w", err)
		}
		rt.Policies = b
		rt.addCloser("vectorstore", func(context.Context) error { return b.Close() })
	case "memory":
		rt.Policies = vectorstore.NewMemory("memory")
	default:
		rt.Policies = vectorstore.NewUpstash(vectorstore.UpstashConfig{
			URL:        cfg.Upstash.URL,
			Token:      cfg.Upstash.Token,
			Timeout:    cfg.OpenAI.Timeout,
			MaxRetries: cfg.OpenAI.MaxRetries,
		})
	}
	return nil
}

// buildClaimsIndex creates the Pinecone client and makes sure the index
// exists. A failure is logged; recording to the index then fails per claim.
func (rt *Runtime) buildClaimsIndex(ctx context.Context) {
	cfg := rt.Config
	rt.ClaimsIndex = NewClaimsIndex(cfg)
	ensureCtx, cancel := context.WithTimeout(ctx, ensureIndexTimeout)
	defer cancel()
	if err := rt.ClaimsIndex.EnsureIndex(ensureCtx); err != nil {
		rt.logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "pinecone.ensure_index_failed").
			Str(xglog.FieldIndex, cfg.Pinecone.Index).
			Msg("claims index unavailable, claims are still stored locally")
	}
}

// NewClaimsIndex returns a client for the Pinecone index holding recorded
// claims. The data-plane host is resolved on first use.
func NewClaimsIndex(cfg config.AppConfig) *vectorstore.Pinecone {
	return vectorstore.NewPinecone(vectorstore.PineconeConfig{
		APIKey:     cfg.Pinecone.APIKey,
		ControlURL: cfg.Pinecone.ControlURL,
		Index:      cfg.Pinecone.Index,
		Dimension:  cfg.OpenAI.EmbeddingDim,
		Cloud:      cfg.Pinecone.Cloud,
		Region:     cfg.Pinecone.Region,
		Timeout:    cfg.OpenAI.Timeout,
		MaxRetries: cfg.OpenAI.MaxRetries,
	})
}

func (rt *Runtime) buildPipelines() {
	cfg := rt.Config

	recorder := &history.Recorder{Store: rt.History, Embedder: rt.Embedder}
	if rt.ClaimsIndex != nil {
		recorder.Index = rt.ClaimsIndex
	}
	deps := claims.Deps{
		Chat:          rt.LLM,
		Retriever:     rt.Retriever,
		Engine:        rt.Engine,
		Recorder:      recorder,
		MeterProvider: otel.GetMeterProvider(),
	}
	if rt.Search != nil {
		deps.Search = rt.Search
	}
	rt.Claims = claims.New(deps, claims.Config{
		ChatModel:   cfg.OpenAI.ChatModel,
		TopK:        cfg.Claims.TopK,
		WebFallback: cfg.Claims.WebFallback,
		Translate:   cfg.Claims.Translate,
		ThinkDelay:  cfg.Claims.ThinkDelay,
	})

	rt.FAQ = faq.New(rt.LLM, rt.Retriever, rt.Cache, faq.Config{
		Model:           cfg.OpenAI.FAQModel,
		TopK:            cfg.FAQ.TopK,
		ScoreThreshold:  cfg.FAQ.ScoreThreshold,
		MaxContext:      cfg.FAQ.MaxContext,
		FallbackContext: cfg.FAQ.FallbackContext,
		Concurrency:     cfg.FAQ.Concurrency,
		CacheTTL:        cfg.FAQ.CacheTTL,
	})

	var speech *voice.SpeechConfig
	if cfg.Voice.SpeechEnabled {
		speech = &voice.SpeechConfig{
			Speaker: rt.LLM,
			Model:   cfg.OpenAI.SpeechModel,
			Voice:   cfg.OpenAI.SpeechVoice,
			Dir:     cfg.API.StaticDir,
		}
	}
	rt.Voice = voice.NewAssistant(rt.Claims, rt.FAQ, speech)
}

// buildHealth registers readiness checks. Only the history database is
// required; upstreams degrade the service but keep it ready.
func (rt *Runtime) buildHealth() {
	rt.Health = health.NewManager(rt.Config.Version)
	rt.Health.RegisterChecker(health.NewFuncChecker("history_db", true, rt.History.Check))
	rt.Health.RegisterChecker(health.NewFuncChecker("llm", false, rt.LLM.Check))
	if c, ok := rt.Policies.(checker); ok {
		rt.Health.RegisterChecker(health.NewFuncChecker("vector_"+rt.Policies.Name(), rt.Config.Vector.Backend == "badger", c.Check))
	}
	if rt.ClaimsIndex != nil {
		rt.Health.RegisterChecker(health.NewFuncChecker("pinecone", false, rt.ClaimsIndex.Check))
	}
	if rt.Search != nil {
		rt.Health.RegisterChecker(health.NewFuncChecker("serpapi", false, rt.Search.Check))
	}
	if c, ok := rt.Cache.(checker); ok {
		rt.Health.RegisterChecker(health.NewFuncChecker("cache", false, c.Check))
	}
}

// APIDeps exposes the services the HTTP API needs.
func (rt *Runtime) APIDeps() api.Deps {
	return api.Deps{
		Claims:   rt.Claims,
		FAQ:      rt.FAQ,
		Voice:    rt.Voice,
		History:  rt.History,
		Health:   rt.Health,
		LLMGuard: rt.LLM.Check,
	}
}

// RegisterHooks hands the runtime's closers to the manager, preserving order
// so that shutdown releases them newest first.
func (rt *Runtime) RegisterHooks(m Manager) {
	for _, c := range rt.closers {
		m.RegisterShutdownHook(c.name, c.hook)
	}
	rt.closers = nil
}

// Close releases everything Build opened, newest first. Used by one-shot
// commands that never start a manager.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].hook(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", rt.closers[i].name, err))
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func (rt *Runtime) addCloser(name string, fn ShutdownHook) {
	rt.closers = append(rt.closers, namedHook{name: name, hook: fn})
}
