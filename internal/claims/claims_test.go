// SPDX-License-Identifier: MIT

package claims

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shansgupta/Bajaj-hackathon/internal/llm"
	"github.com/Shansgupta/Bajaj-hackathon/internal/policy"
	"github.com/Shansgupta/Bajaj-hackathon/internal/search"
)

// scriptedChat answers by system prompt so one fake can serve every agent.
type scriptedChat struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	calls   []llm.ChatRequest
}

func (s *scriptedChat) Chat(_ context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	system := req.Messages[0].Content
	for prefix, err := range s.errs {
		if strings.HasPrefix(system, prefix) {
			return llm.ChatResponse{}, err
		}
	}
	for prefix, reply := range s.replies {
		if strings.HasPrefix(system, prefix) {
			return llm.ChatResponse{Content: reply, Model: req.Model}, nil
		}
	}
	return llm.ChatResponse{}, errors.New("unexpected prompt: " + system)
}

func (s *scriptedChat) countPrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if strings.HasPrefix(c.Messages[0].Content, prefix) {
			n++
		}
	}
	return n
}

func TestParsedQuery_TolerantDecode(t *testing.T) {
	chat := &scriptedChat{replies: map[string]string{
		"You are an expert at parsing": "```json\n{\"age\": \"46\", \"gender\": \"male\", \"procedure\": \"knee surgery\", " +
			"\"location\": \"Pune\", \"policy_duration_months\": \"3 months\", \"amount\": \"₹5,000\", \"pre_existing\": \"yes\"}\n```",
	}}
	p := &Parser{Chat: chat, Model: "gpt-4o"}

	got, err := p.Parse(context.Background(), "46M, knee surgery in Pune, 3-month policy")
	require.NoError(t, err)

	want := ParsedQuery{
		Age:                  46,
		Gender:               "male",
		Procedure:            "knee surgery",
		Location:             "Pune",
		PolicyDurationMonths: 3,
		Amount:               5000,
		PreExisting:          true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parsed query mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, float64(0), chat.calls[0].Temperature)
}

func TestParser_InvalidJSON(t *testing.T) {
	chat := &scriptedChat{replies: map[string]string{"You are an expert at parsing": "not json"}}
	p := &Parser{Chat: chat}

	got, err := p.Parse(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Failed to parse JSON", got.Error)
	assert.Equal(t, "not json", got.Raw)
	assert.False(t, got.IsZero())
}

func TestParser_ChatError(t *testing.T) {
	chat := &scriptedChat{errs: map[string]error{"You are an expert at parsing": errors.New("boom")}}
	p := &Parser{Chat: chat}

	got, err := p.Parse(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, got.IsZero())
}

func TestSuggestedAmount(t *testing.T) {
	tests := []struct {
		procedure string
		months    int
		want      float64
	}{
		{"Hip replacement", 12, 15000},
		{"knee surgery", 3, 1250},
		{"heart bypass", 24, 20000},
		{"appendectomy", 6, 1500},
		{"cataract surgery", 0, 2000},
		{"dental cleaning", 12, 1000},
		{"", -1, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.procedure, func(t *testing.T) {
			assert.InDelta(t, tt.want, SuggestedAmount(tt.procedure, tt.months), 0.001)
		})
	}
}

func TestDecider_FillsMissingAmount(t *testing.T) {
	chat := &scriptedChat{replies: map[string]string{
		deciderSystemPrompt: `{"decision": "Approved", "justification": "Knee surgery is covered.",
			"matched_clauses": ["Clause 4.2", {"clause_text": "Room rent", "source": "web"}]}`,
	}}
	d := &Decider{Chat: chat, Model: "gpt-4o"}
	parsed := ParsedQuery{Procedure: "knee surgery", PolicyDurationMonths: 6}

	got := d.Decide(context.Background(), parsed, []Chunk{{Text: "Clause 4.2 knee", Score: 0.9}}, nil, nil)

	want := Decision{
		Decision:      DecisionApproved,
		Amount:        2500,
		Justification: "Knee surgery is covered.",
		MatchedClauses: []Clause{
			{ClauseText: "Clause 4.2", Source: SourcePolicy},
			{ClauseText: "Room rent", Source: SourceWeb},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decision mismatch (-want +got):\n%s", diff)
	}

	prompt := chat.calls[0].Messages[1].Content
	assert.Contains(t, prompt, "Clause 4.2 knee")
	assert.Contains(t, prompt, "Web Results:\nNone")
	assert.Contains(t, prompt, "- Age: N/A")
}

func TestDecider_RejectedKeepsZeroAmount(t *testing.T) {
	chat := &scriptedChat{replies: map[string]string{
		deciderSystemPrompt: `{"decision": "denied", "justification": {"reason": "waiting period"}}`,
	}}
	d := &Decider{Chat: chat}

	got := d.Decide(context.Background(), ParsedQuery{Procedure: "hip"}, nil, nil, nil)
	assert.Equal(t, DecisionRejected, got.Decision)
	assert.Zero(t, got.Amount)
	assert.Equal(t, `{"reason": "waiting period"}`, got.Justification)
	assert.NotNil(t, got.MatchedClauses)
}

func TestDecider_Errors(t *testing.T) {
	chat := &scriptedChat{errs: map[string]error{deciderSystemPrompt: errors.New("quota")}}
	d := &Decider{Chat: chat}

	got := d.Decide(context.Background(), ParsedQuery{}, nil, nil, nil)
	assert.Equal(t, DecisionRejected, got.Decision)
	assert.Equal(t, "Error during decision making: quota", got.Justification)

	chat = &scriptedChat{replies: map[string]string{deciderSystemPrompt: "I think yes"}}
	d = &Decider{Chat: chat}
	got = d.Decide(context.Background(), ParsedQuery{}, nil, nil, nil)
	assert.True(t, strings.HasPrefix(got.Justification, "Error during decision making"))
}

func TestMedicalClaim(t *testing.T) {
	web := []search.Result{{Snippet: "x"}, {CoverageLimit: 250000}}
	got := MedicalClaim(ParsedQuery{Amount: 1000, PreExisting: true},
		"Planned Knee Surgery with pre-authorization", web)

	assert.Equal(t, "surgery", got.Type)
	assert.Equal(t, "planned knee surgery with pre-authorization", got.Condition)
	assert.True(t, got.PlannedTreatment)
	assert.True(t, got.PreAuthorized)
	assert.True(t, got.PreExisting)
	assert.Equal(t, []policy.WebInfo{{CoverageLimit: 250000}}, got.WebInfo)
}

func TestCheckMedical_NoParsedData(t *testing.T) {
	ev := CheckMedical(policy.NewEngine(policy.DefaultRules()), ParsedQuery{}, "anything", nil)
	assert.Equal(t, policy.VerdictDenied, ev.Decision)
	assert.Equal(t, []string{"No parsed data"}, ev.Reason)
}

func TestMerge(t *testing.T) {
	retriever := Decision{
		Decision:       DecisionApproved,
		Amount:         5000,
		Justification:  "Covered by clause 4",
		MatchedClauses: []Clause{{ClauseText: "clause 4", Source: SourcePolicy}},
	}
	denied := policy.Evaluation{Decision: policy.VerdictDenied, Reason: []string{"Pre-authorization required for planned treatment."}}
	approved := policy.Evaluation{Decision: policy.VerdictApproved, Reason: []string{}}

	t.Run("retriever overrides", func(t *testing.T) {
		got, src := Merge(retriever, denied, true)
		assert.Equal(t, fromRetriever, src)
		assert.Equal(t, DecisionApproved, got.Decision)
		assert.Equal(t, "Covered by clause 4. Overriding medical policy due to retriever priority.", got.Justification)
		assert.Equal(t, []Clause{
			{ClauseText: "clause 4", Source: SourcePolicy},
			{ClauseText: "Pre-authorization required for planned treatment.", Source: SourceMedical},
		}, got.MatchedClauses)
	})

	t.Run("agreement keeps justification", func(t *testing.T) {
		got, src := Merge(retriever, approved, true)
		assert.Equal(t, fromRetriever, src)
		assert.Equal(t, "Covered by clause 4", got.Justification)
		assert.Equal(t, SourceSystem, got.MatchedClauses[1].Source)
	})

	t.Run("no chunks uses medical", func(t *testing.T) {
		got, src := Merge(retriever, denied, false)
		assert.Equal(t, fromMedical, src)
		assert.Equal(t, DecisionRejected, got.Decision)
		assert.Equal(t, "Pre-authorization required for planned treatment.. Using medical policy due to lack of retriever result.", got.Justification)
		assert.Equal(t, 5000.0, got.Amount)
	})

	t.Run("failed retriever uses medical", func(t *testing.T) {
		failed := decisionError(errors.New("x"))
		got, src := Merge(failed, approved, true)
		assert.Equal(t, fromMedical, src)
		assert.Equal(t, DecisionApproved, got.Decision)
		assert.True(t, strings.HasPrefix(got.Justification, noMedicalReason))
	})
}

func TestExplainer(t *testing.T) {
	chat := &scriptedChat{replies: map[string]string{explainerSystemPrompt: "Your claim was approved for ₹5000."}}
	e := &Explainer{Chat: chat, Model: "gpt-4o"}

	assert.Equal(t, missingInfoMessage, e.Explain(context.Background(), ParsedQuery{}, Decision{Decision: DecisionApproved}))
	assert.Empty(t, chat.calls)

	got := e.Explain(context.Background(), ParsedQuery{Procedure: "knee"}, Decision{Decision: DecisionApproved, Amount: 5000})
	assert.Equal(t, "Your claim was approved for ₹5000.", got)
	require.Len(t, chat.calls, 1)
	assert.Equal(t, 0.3, chat.calls[0].Temperature)
	assert.Contains(t, chat.calls[0].Messages[1].Content, "Approved Amount: ₹5000")
	assert.Contains(t, chat.calls[0].Messages[1].Content, "No justification provided")

	failing := &Explainer{Chat: &scriptedChat{errs: map[string]error{explainerSystemPrompt: errors.New("down")}}}
	got = failing.Explain(context.Background(), ParsedQuery{Procedure: "knee"}, Decision{Decision: DecisionRejected})
	assert.Equal(t, "We couldn't process your claim explanation due to an error: down. Please contact support.", got)
}

func TestDetect(t *testing.T) {
	assert.Equal(t, English, Detect("ok").Code)
	assert.Equal(t, English, Detect("A 46 year old man needs knee surgery in Pune, is it covered by my policy?").Code)

	got := Detect("Un homme de quarante-six ans a besoin d'une opération du genou à Paris, est-ce couvert par ma police d'assurance?")
	assert.Equal(t, "fr", got.Code)
	assert.NotEmpty(t, got.Name)
}

func TestTranslator_FromEnglishSkipsEnglish(t *testing.T) {
	chat := &scriptedChat{}
	tr := &Translator{Chat: chat}

	out, err := tr.FromEnglish(context.Background(), "hello", Language{Code: English})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Empty(t, chat.calls)
}

func TestResponse_JustificationText(t *testing.T) {
	r := Response{Justifications: []Clause{{ClauseText: "a"}, {}, {ClauseText: "b"}}}
	assert.Equal(t, "a; b", r.JustificationText())
}
