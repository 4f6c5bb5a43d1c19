// SPDX-License-Identifier: MIT

package claims

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Shansgupta/Bajaj-hackathon/internal/llm"
	xglog "github.com/Shansgupta/Bajaj-hackathon/internal/log"
	"github.com/Shansgupta/Bajaj-hackathon/internal/metrics"
	"github.com/Shansgupta/Bajaj-hackathon/internal/policy"
	"github.com/Shansgupta/Bajaj-hackathon/internal/search"
	"github.com/Shansgupta/Bajaj-hackathon/internal/telemetry"
)

// SourceDecision marks a justification written by the decision agent.
const SourceDecision = "decision"

var errSkipped = errors.New("stage skipped")

// ChunkRetriever returns policy chunks for a query.
type ChunkRetriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Chunk, error)
}

// Recorder persists finished claims.
type Recorder interface {
	Record(ctx context.Context, res Response, medical policy.Evaluation) error
}

// Config tunes the pipeline.
type Config struct {
	ChatModel   string
	TopK        int
	WebFallback bool
	Translate   bool
	ThinkDelay  time.Duration
}

// Deps are the pipeline's collaborators. Search and Recorder are optional.
type Deps struct {
	Chat          llm.Chatter
	Retriever     ChunkRetriever
	Search        search.Searcher
	Engine        *policy.Engine
	Recorder      Recorder
	MeterProvider metric.MeterProvider
}

// Options are per-request switches.
type Options struct {
	// ThinkMode adds a deliberate pause before the explanation is written.
	ThinkMode bool
}

// Pipeline runs parse, retrieve, web fallback, medical check, decide,
// explain and store for one claim query.
type Pipeline struct {
	cfg        Config
	parser     *Parser
	translator *Translator
	retriever  ChunkRetriever
	search     search.Searcher
	engine     *policy.Engine
	decider    *Decider
	explainer  *Explainer
	recorder   Recorder
	obs        *observer
}

// New builds a pipeline.
func New(deps Deps, cfg Config) *Pipeline {
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o"
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	engine := deps.Engine
	if engine == nil {
		engine = policy.NewEngine(policy.DefaultRules())
	}
	return &Pipeline{
		cfg:        cfg,
		parser:     &Parser{Chat: deps.Chat, Model: cfg.ChatModel},
		translator: &Translator{Chat: deps.Chat, Model: cfg.ChatModel},
		retriever:  deps.Retriever,
		search:     deps.Search,
		engine:     engine,
		decider:    &Decider{Chat: deps.Chat, Model: cfg.ChatModel},
		explainer:  &Explainer{Chat: deps.Chat, Model: cfg.ChatModel},
		recorder:   deps.Recorder,
		obs:        newObserver(deps.MeterProvider),
	}
}

// Run processes one query. It always returns a response: stage failures
// degrade to each stage's fallback and a pipeline failure yields a rejected
// response with a system clause.
func (p *Pipeline) Run(ctx context.Context, query string, opts Options) Response {
	start := time.Now()
	claimID := uuid.NewString()
	ctx = xglog.ContextWithClaimID(ctx, claimID)
	ctx, span := telemetry.StartStage(ctx, "claim.pipeline", attribute.Bool(telemetry.ClaimThinkModeKey, opts.ThinkMode))
	logger := xglog.WithComponentFromContext(ctx, "claims")

	res, source, err := p.runGuarded(ctx, query, opts)
	if err != nil {
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "claim.pipeline_failed").
			Str(xglog.FieldQuery, query).
			Msg("claim pipeline failed, returning fallback response")
		res = FallbackResponse(query, err)
		source = fromFallback
	}
	res.ID = claimID

	p.obs.decision(ctx, span, res, source)
	telemetry.EndStage(span, err)

	logger.Info().
		Str(xglog.FieldEvent, "claim.processed").
		Str(xglog.FieldDecision, res.Decision).
		Float64(xglog.FieldAmount, res.Amount).
		Str("source", source).
		Str(xglog.FieldProcedure, res.ParsedQuery.Procedure).
		Int64(xglog.FieldDuration, time.Since(start).Milliseconds()).
		Msg("claim processed")
	return res
}

// FallbackResponse is returned when the pipeline itself fails.
func FallbackResponse(query string, err error) Response {
	return Response{
		Query:          query,
		Decision:       DecisionRejected,
		Amount:         0,
		Justifications: []Clause{{ClauseText: err.Error(), Source: SourceSystem}},
		Explanation:    fmt.Sprintf("Failed to process: %v", err),
		MatchedClauses: []Clause{},
	}
}

func (p *Pipeline) runGuarded(ctx context.Context, query string, opts Options) (res Response, source string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.run(ctx, query, opts)
}

func (p *Pipeline) run(ctx context.Context, query string, opts Options) (Response, string, error) {
	if p.parser.Chat == nil {
		return Response{}, "", errors.New("claim pipeline: no chat model configured")
	}

	text := query
	lang := english
	if p.cfg.Translate {
		p.stage(ctx, "translate", func(ctx context.Context) error {
			out, l, err := p.translator.ToEnglish(ctx, query)
			text, lang = out, l
			return err
		})
	}

	var parsed ParsedQuery
	p.stage(ctx, "parse", func(ctx context.Context) error {
		pq, err := p.parser.Parse(ctx, text)
		parsed = pq
		return err
	})

	var chunks []Chunk
	p.stage(ctx, "retrieve", func(ctx context.Context) error {
		if p.retriever == nil {
			return errSkipped
		}
		// Policy text is embedded as uploaded, so the index is queried
		// with the caller's own wording rather than the translation.
		c, err := p.retriever.Retrieve(ctx, query, p.cfg.TopK)
		chunks = c
		return err
	})

	var web []search.Result
	p.stage(ctx, "web_search", func(ctx context.Context) error {
		if len(chunks) > 0 || !p.cfg.WebFallback || p.search == nil {
			return errSkipped
		}
		r, err := p.search.Search(ctx, text, parsed.Location)
		web = r
		return err
	})

	var medical policy.Evaluation
	p.stage(ctx, "medical_policy", func(context.Context) error {
		medical = CheckMedical(p.engine, parsed, query, web)
		metrics.RecordMedicalDecision(string(medical.Decision))
		return nil
	})

	var final Decision
	var source string
	p.stage(ctx, "decide", func(ctx context.Context) error {
		retr := p.decider.Decide(ctx, parsed, chunks, web, &medical)
		final, source = Merge(retr, medical, len(chunks) > 0)
		return nil
	})

	if opts.ThinkMode && p.cfg.ThinkDelay > 0 {
		t := time.NewTimer(p.cfg.ThinkDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return Response{}, "", ctx.Err()
		case <-t.C:
		}
	}

	var explanation string
	p.stage(ctx, "explain", func(ctx context.Context) error {
		explanation = p.explainer.Explain(ctx, parsed, final)
		out, err := p.translator.FromEnglish(ctx, explanation, lang)
		if err == nil {
			explanation = out
		}
		return err
	})

	res := Response{
		Query:          query,
		ParsedQuery:    parsed,
		Decision:       final.Decision,
		Amount:         final.Amount,
		Justifications: []Clause{},
		Explanation:    explanation,
		MatchedClauses: final.MatchedClauses,
		Language:       lang.Code,
	}
	if res.MatchedClauses == nil {
		res.MatchedClauses = []Clause{}
	}
	if final.Justification != "" {
		jsrc := SourceDecision
		if source == fromMedical {
			jsrc = SourceMedical
		}
		res.Justifications = []Clause{{ClauseText: final.Justification, Source: jsrc}}
	}

	p.stage(ctx, "store", func(ctx context.Context) error {
		if p.recorder == nil {
			return errSkipped
		}
		return p.recorder.Record(context.WithoutCancel(ctx), res, medical)
	})
	return res, source, nil
}

// stage runs fn under a span, records its duration and logs failures.
// Failures never abort the pipeline.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) {
	start := time.Now()
	sctx, span := telemetry.StartStage(ctx, "claim."+name)
	err := fn(sctx)

	outcome := "ok"
	switch {
	case errors.Is(err, errSkipped):
		outcome = "skipped"
		err = nil
	case err != nil:
		outcome = "error"
		logger := xglog.WithComponentFromContext(ctx, "claims")
		logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "claim.stage_failed").
			Str(xglog.FieldStage, name).
			Msg("claim stage failed, continuing with fallback")
	}
	telemetry.EndStage(span, err)
	metrics.ObserveStage("claim", name, outcome, time.Since(start).Seconds())
}
