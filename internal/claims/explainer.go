// SPDX-License-Identifier: MIT

package claims

import (
	"context"
	"fmt"

	"github.com/Shansgupta/Bajaj-hackathon/internal/llm"
	"github.com/Shansgupta/Bajaj-hackathon/internal/policy"
)

const (
	explainerSystemPrompt = "You are a helpful customer support assistant that explains health insurance decisions in simple terms."
	missingInfoMessage    = "We couldn't process your claim due to missing information. Please contact support."
)

// Explainer writes a short customer-facing summary of a decision.
type Explainer struct {
	Chat  llm.Chatter
	Model string
}

// Explain never fails; errors are folded into the returned message.
func (e *Explainer) Explain(ctx context.Context, parsed ParsedQuery, d Decision) string {
	if parsed.IsZero() || d.Decision == "" {
		return missingInfoMessage
	}

	justification := d.Justification
	if justification == "" {
		justification = "No justification provided"
	}
	prompt := fmt.Sprintf(`A user filed a health insurance claim with these details:

Age: %s
Gender: %s
Procedure: %s
Location: %s
Policy Duration: %s months

The claim decision was: %s
Approved Amount: ₹%s

Justification from the evaluator:
%s

Please summarize this claim decision in 3-4 lines using simple, clear language suitable for the customer.
Include the approved amount in the summary if the claim is approved or partially approved.
Ensure the explanation is grammatically correct and clear.
`,
		intOrNA(parsed.Age), orNA(parsed.Gender), orNA(parsed.Procedure), orNA(parsed.Location),
		intOrNA(parsed.PolicyDurationMonths), d.Decision, policy.FormatAmount(d.Amount), justification)

	resp, err := e.Chat.Chat(ctx, llm.ChatRequest{
		Model: e.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: explainerSystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return fmt.Sprintf("We couldn't process your claim explanation due to an error: %v. Please contact support.", err)
	}
	return resp.Content
}
