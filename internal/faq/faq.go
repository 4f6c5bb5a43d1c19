// SPDX-License-Identifier: MIT

// Package faq answers general policy questions from the policy index.
package faq

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/Shansgupta/Bajaj-hackathon/internal/cache"
	"github.com/Shansgupta/Bajaj-hackathon/internal/llm"
	xglog "github.com/Shansgupta/Bajaj-hackathon/internal/log"
	"github.com/Shansgupta/Bajaj-hackathon/internal/metrics"
	"github.com/Shansgupta/Bajaj-hackathon/internal/retrieval"
	"github.com/Shansgupta/Bajaj-hackathon/internal/telemetry"
	"github.com/Shansgupta/Bajaj-hackathon/internal/vectorstore"
)

// Messages returned instead of a generated answer.
const (
	NotFoundMessage     = "Sorry, I couldn’t find this in the policy database. Please contact Bajaj Allianz for details."
	GenerationFailed    = "Failed to generate an answer at this time."
	PipelineFailed      = "Pipeline failed to process query."
	CustomerCareMessage = "We couldn’t find this answer in our policy database. " +
		"Please contact Bajaj Allianz Health Insurance Customer Care at 1800-209-5858 " +
		"or visit https://www.bajajallianz.com for more information."
)

const (
	lookupTopK      = 5
	lookupMinLength = 20
	cacheNamespace  = "faq"
)

const lookupSystemPrompt = "You are an expert on Bajaj Allianz Health Insurance policies. " +
	"Answer the question factually. If unsure, respond with fallback message."

// Index is the policy index the FAQ reads from. *retrieval.Retriever
// implements it.
type Index interface {
	Retrieve(ctx context.Context, query string, k int) ([]retrieval.Chunk, error)
	Search(ctx context.Context, query string, k int) ([]vectorstore.Match, error)
}

// Config tunes answer selection.
type Config struct {
	Model           string
	TopK            int
	ScoreThreshold  float64
	MaxContext      int
	FallbackContext int
	Concurrency     int
	CacheTTL        time.Duration
}

// Result is one answered question.
type Result struct {
	Query      string            `json:"query"`
	Answers    []string          `json:"answers"`
	ChunksUsed []retrieval.Chunk `json:"chunks_used"`
	Timestamp  string            `json:"timestamp"`
}

// Pipeline answers questions. Cache may be nil.
type Pipeline struct {
	chat  llm.Chatter
	index Index
	cache cache.Cache
	cfg   Config
	now   func() time.Time
}

// New builds a pipeline; zero config fields take the usual defaults.
func New(chat llm.Chatter, index Index, c cache.Cache, cfg Config) *Pipeline {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 12
	}
	if cfg.ScoreThreshold == 0 {
		cfg.ScoreThreshold = 0.85
	}
	if cfg.MaxContext <= 0 {
		cfg.MaxContext = 6
	}
	if cfg.FallbackContext <= 0 {
		cfg.FallbackContext = 3
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if c == nil {
		c = cache.NoOp{}
	}
	return &Pipeline{chat: chat, index: index, cache: c, cfg: cfg, now: time.Now}
}

var folder = cases.Fold()

// cacheKey folds case and collapses whitespace.
func cacheKey(question string) string {
	return strings.Join(strings.Fields(folder.String(question)), " ")
}

// Answer runs retrieve, answer and finalize for one question.
func (p *Pipeline) Answer(ctx context.Context, question string) Result {
	ctx, span := telemetry.StartStage(ctx, "faq.answer")
	defer telemetry.EndStage(span, nil)
	logger := xglog.WithComponentFromContext(ctx, "faq")

	key := cacheKey(question)
	if cached, ok := cache.GetJSON[Result](ctx, p.cache, cacheNamespace, key); ok {
		cached.Query = question
		metrics.RecordFAQAnswer("cache")
		span.SetAttributes(attribute.String(telemetry.FAQSourceKey, "cache"))
		return cached
	}

	chunks, err := p.index.Retrieve(ctx, question, p.cfg.TopK)
	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "faq.retrieve_failed").Str(xglog.FieldQuery, question).Msg("retrieval failed")
		chunks = nil
	}
	if chunks == nil {
		chunks = []retrieval.Chunk{}
	}

	answer, source := p.generate(ctx, question, chunks)
	metrics.RecordFAQAnswer(source)
	span.SetAttributes(attribute.String(telemetry.FAQSourceKey, source))

	res := Result{
		Query:      question,
		Answers:    []string{answer},
		ChunksUsed: chunks,
		Timestamp:  p.now().Format(time.RFC3339Nano),
	}
	if source == "llm" || source == "chunk_fallback" {
		cache.SetJSON(ctx, p.cache, cacheNamespace, key, res, p.cfg.CacheTTL)
	}

	logger.Info().
		Str(xglog.FieldEvent, "faq.answered").
		Str(xglog.FieldQuery, question).
		Str("source", source).
		Int(xglog.FieldChunks, len(chunks)).
		Msg("faq answered")
	return res
}

// Context selects the chunks given to the model: those scoring at least the
// threshold, best first, capped at MaxContext; otherwise the first
// FallbackContext chunks as retrieved.
func (p *Pipeline) Context(chunks []retrieval.Chunk) []retrieval.Chunk {
	var high []retrieval.Chunk
	for _, c := range chunks {
		if c.Score >= p.cfg.ScoreThreshold {
			high = append(high, c)
		}
	}
	if len(high) == 0 {
		return chunks[:min(p.cfg.FallbackContext, len(chunks))]
	}
	slices.SortStableFunc(high, func(a, b retrieval.Chunk) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return high[:min(p.cfg.MaxContext, len(high))]
}

func (p *Pipeline) generate(ctx context.Context, question string, chunks []retrieval.Chunk) (string, string) {
	if len(chunks) == 0 {
		return NotFoundMessage, "not_found"
	}
	top := p.Context(chunks)
	texts := make([]string, len(top))
	for i, c := range top {
		texts[i] = c.Text
	}

	resp, err := p.chat.Chat(ctx, llm.ChatRequest{
		Model:       p.cfg.Model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: answerPrompt(question, strings.Join(texts, "\n\n"))}},
		Temperature: 0.1,
	})
	if err != nil {
		logger := xglog.WithComponentFromContext(ctx, "faq")
		logger.Error().Err(err).Str(xglog.FieldEvent, "faq.generate_failed").Msg("answer generation failed")
		return GenerationFailed, "error"
	}

	answer := strings.TrimSpace(resp.Content)
	if strings.Contains(strings.ToLower(answer), "not available") {
		first, _, _ := strings.Cut(strings.TrimSpace(top[0].Text), "\n")
		return "From the policy: " + first + "...", "chunk_fallback"
	}
	return answer, "llm"
}

func answerPrompt(question, policyText string) string {
	return fmt.Sprintf(`You are an expert Bajaj Allianz Health Insurance assistant.

User Question: %s

Context from the policy:
%s

- Write a clear, concise, and accurate answer using only the above policy context.
- If context partially answers the question, summarize what is available.
- If there is no relevant content, respond with:
"This information is not available in the policy database."
`, question, policyText)
}

// Lookup answers directly from FAQ entries: the first of the top matches
// whose answer (or text) is longer than 20 characters, whitespace collapsed.
// Without such a match the model answers on its own.
func (p *Pipeline) Lookup(ctx context.Context, question string) string {
	logger := xglog.WithComponentFromContext(ctx, "faq")

	matches, err := p.index.Search(ctx, question, lookupTopK)
	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "faq.lookup_failed").Str(xglog.FieldQuery, question).Msg("faq lookup failed")
		metrics.RecordFAQAnswer("error")
		return CustomerCareMessage
	}
	for _, m := range matches {
		content := lookupText(m)
		if len(strings.TrimSpace(content)) > lookupMinLength {
			metrics.RecordFAQAnswer("lookup")
			return strings.Join(strings.Fields(content), " ")
		}
	}

	logger.Warn().Str(xglog.FieldEvent, "faq.lookup_miss").Str(xglog.FieldQuery, question).Msg("no faq match, asking model")
	resp, err := p.chat.Chat(ctx, llm.ChatRequest{
		Model: p.cfg.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: lookupSystemPrompt},
			{Role: llm.RoleUser, Content: question},
		},
		Temperature: 0.2,
	})
	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "faq.lookup_llm_failed").Msg("faq fallback failed")
		metrics.RecordFAQAnswer("error")
		return CustomerCareMessage
	}
	metrics.RecordFAQAnswer("llm")
	if answer := strings.TrimSpace(resp.Content); answer != "" {
		return answer
	}
	return CustomerCareMessage
}

// lookupText prefers the answer field over the chunk text.
func lookupText(m vectorstore.Match) string {
	if s, ok := m.Metadata["answer"].(string); ok && s != "" {
		return s
	}
	s, _ := m.Metadata["text"].(string)
	return s
}

// AnswerAll answers every question with bounded concurrency. Results keep
// the order of questions.
func (p *Pipeline) AnswerAll(ctx context.Context, questions []string) ([]Result, error) {
	out := make([]Result, len(questions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i, q := range questions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = p.Answer(gctx, q)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// FirstAnswer returns the first answer or an empty string.
func (r Result) FirstAnswer() string {
	if len(r.Answers) == 0 {
		return ""
	}
	return r.Answers[0]
}
