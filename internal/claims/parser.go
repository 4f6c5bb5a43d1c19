// SPDX-License-Identifier: MIT

package claims

import (
	"context"
	"encoding/json"

	"github.com/Shansgupta/Bajaj-hackathon/internal/llm"
)

const parserSystemPrompt = "You are an expert at parsing insurance claim queries. " +
	"Your task is to extract and return structured JSON with keys: " +
	"`age` (int), `gender` (male/female), `procedure` (string), " +
	"`location` (city), and `policy_duration_months` (int). " +
	"Only return valid JSON. No explanations."

// Parser extracts a ParsedQuery from free text with a chat model.
type Parser struct {
	Chat  llm.Chatter
	Model string
}

// Parse returns the structured query. An error means the model could not be
// called; a reply that is not JSON yields ParsedQuery.Error instead.
func (p *Parser) Parse(ctx context.Context, raw string) (ParsedQuery, error) {
	resp, err := p.Chat.Chat(ctx, llm.ChatRequest{
		Model: p.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: parserSystemPrompt},
			{Role: llm.RoleUser, Content: raw},
		},
		Temperature: 0,
	})
	if err != nil {
		return ParsedQuery{}, err
	}

	reply := llm.StripCodeFence(resp.Content)
	var parsed ParsedQuery
	if err := json.Unmarshal([]byte(reply), &parsed); err != nil {
		return ParsedQuery{Error: "Failed to parse JSON", Raw: reply}, nil
	}
	return parsed, nil
}
