// SPDX-License-Identifier: MIT

package claims

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/Shansgupta/Bajaj-hackathon/internal/llm"
	"github.com/Shansgupta/Bajaj-hackathon/internal/policy"
	"github.com/Shansgupta/Bajaj-hackathon/internal/search"
)

const deciderSystemPrompt = "You are an expert insurance claims analyst."

// baseAmounts is the suggested payout per procedure before duration scaling.
// Order matters: the first keyword found in the procedure wins.
var baseAmounts = []struct {
	keywords []string
	amount   float64
}{
	{[]string{"hip replacement", "hip"}, 15000},
	{[]string{"knee"}, 5000},
	{[]string{"heart bypass", "bypass", "cabg"}, 20000},
	{[]string{"appendectomy", "appendix", "appendic"}, 3000},
	{[]string{"cataract"}, 2000},
}

const defaultBaseAmount = 1000

// SuggestedAmount returns the base amount for the procedure scaled by policy
// age: months/12 of the base, capped at 100%. An unknown duration (<= 0)
// yields the full base amount.
func SuggestedAmount(procedure string, months int) float64 {
	base := float64(defaultBaseAmount)
	p := strings.ToLower(procedure)
	for _, b := range baseAmounts {
		if containsAny(p, b.keywords) {
			base = b.amount
			break
		}
	}
	if months <= 0 {
		return base
	}
	ratio := math.Min(float64(months)/12, 1)
	return math.Round(base*ratio*100) / 100
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// Decider asks a chat model for a decision grounded in retrieved clauses.
type Decider struct {
	Chat  llm.Chatter
	Model string
}

// decisionReply tolerates missing amounts and non-string justifications.
type decisionReply struct {
	Decision       string          `json:"decision"`
	Amount         *float64        `json:"amount"`
	Justification  json.RawMessage `json:"justification"`
	MatchedClauses []Clause        `json:"matched_clauses"`
}

// Decide never fails: model or decoding errors yield a rejected decision
// whose justification starts with "Error during decision making".
func (d *Decider) Decide(ctx context.Context, parsed ParsedQuery, chunks []Chunk, web []search.Result, medical *policy.Evaluation) Decision {
	prompt := decisionPrompt(parsed, chunks, web, medical)
	resp, err := d.Chat.Chat(ctx, llm.ChatRequest{
		Model: d.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: deciderSystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return decisionError(err)
	}

	var reply decisionReply
	if err := json.Unmarshal([]byte(llm.StripCodeFence(resp.Content)), &reply); err != nil {
		return decisionError(err)
	}

	out := Decision{
		Decision:       normalizeDecision(reply.Decision),
		Justification:  justificationText(reply.Justification),
		MatchedClauses: reply.MatchedClauses,
	}
	if reply.Amount != nil {
		out.Amount = *reply.Amount
	} else if out.Decision != DecisionRejected {
		out.Amount = SuggestedAmount(parsed.Procedure, parsed.PolicyDurationMonths)
	}
	if out.MatchedClauses == nil {
		out.MatchedClauses = []Clause{}
	}
	return out
}

func decisionError(err error) Decision {
	return Decision{
		Decision:       DecisionRejected,
		Amount:         0,
		Justification:  fmt.Sprintf("Error during decision making: %v", err),
		MatchedClauses: []Clause{},
	}
}

func justificationText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func intOrNA(v int) string {
	if v == 0 {
		return "N/A"
	}
	return fmt.Sprint(v)
}

func decisionPrompt(parsed ParsedQuery, chunks []Chunk, web []search.Result, medical *policy.Evaluation) string {
	clauses := make([]string, 0, len(chunks))
	for _, c := range chunks {
		clauses = append(clauses, c.Text)
	}
	snippets := make([]string, 0, len(web))
	for _, w := range web {
		snippets = append(snippets, w.Snippet)
	}
	policyText := strings.Join(clauses, "\n\n")
	if policyText == "" {
		policyText = "None"
	}
	webText := strings.Join(snippets, "\n\n")
	if webText == "" {
		webText = "None"
	}
	medicalText := "None"
	if medical != nil {
		if b, err := json.Marshal(medical); err == nil {
			medicalText = string(b)
		}
	}

	var b strings.Builder
	b.WriteString("You are an expert health insurance claim analyst.\n\n")
	b.WriteString("Given:\n")
	fmt.Fprintf(&b, "- Age: %s\n", intOrNA(parsed.Age))
	fmt.Fprintf(&b, "- Gender: %s\n", orNA(parsed.Gender))
	fmt.Fprintf(&b, "- Location: %s\n", orNA(parsed.Location))
	fmt.Fprintf(&b, "- Procedure: %s\n", orNA(parsed.Procedure))
	fmt.Fprintf(&b, "- Policy Duration: %s months\n\n", intOrNA(parsed.PolicyDurationMonths))
	b.WriteString("Relevant Policy Clauses (prioritize these over web results if conflicts arise):\n")
	b.WriteString(policyText + "\n\n")
	b.WriteString("Web Results:\n")
	b.WriteString(webText + "\n\n")
	b.WriteString("Medical Policy Decision:\n")
	b.WriteString(medicalText + "\n\n")
	b.WriteString(`Instructions:
- Prioritize policy clauses from 'Relevant Policy Clauses' over 'Web Results' and 'Medical Policy Decision' if they conflict.
- For planned surgeries, check if pre-authorization is required (e.g., from Medical Policy Decision) and deny if missing.
- Suggest an amount based on the procedure: use 15000 for hip replacement, 5000 for knee surgery, 20000 for heart bypass surgery, 3000 for appendectomy, 2000 for cataract surgery, or 1000 as default. Scale by policy duration (max 100% of base amount over 12 months).
- Return a JSON object with:
  - decision: "approved", "partially approved", or "rejected"
  - amount: number (e.g., 0 or 150000)
  - justification: concise explanation
  - matched_clauses: list of objects with "clause_text" and "source" (e.g., "policy", "web", "medical")

Only return valid JSON. Do not include markdown or commentary.
`)
	return b.String()
}
