// SPDX-License-Identifier: MIT

// Package claims runs the claim analysis pipeline: parse the free-text
// query, retrieve policy clauses, check the medical policy rules, decide,
// explain and record the result.
package claims

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/Shansgupta/Bajaj-hackathon/internal/retrieval"
)

// Decision values returned to callers.
const (
	DecisionApproved          = "approved"
	DecisionPartiallyApproved = "partially approved"
	DecisionRejected          = "rejected"
)

// Clause sources.
const (
	SourcePolicy  = "policy"
	SourceWeb     = "web"
	SourceMedical = "medical"
	SourceSystem  = "system"
)

// ParsedQuery is the structured form of a claim query.
type ParsedQuery struct {
	Age                  int     `json:"age,omitempty"`
	Gender               string  `json:"gender,omitempty"`
	Procedure            string  `json:"procedure,omitempty"`
	Location             string  `json:"location,omitempty"`
	PolicyDurationMonths int     `json:"policy_duration_months,omitempty"`
	Amount               float64 `json:"amount,omitempty"`
	PreExisting          bool    `json:"pre_existing,omitempty"`

	// Error and Raw are set when the model reply was not valid JSON.
	Error string `json:"error,omitempty"`
	Raw   string `json:"raw_response,omitempty"`
}

// IsZero reports whether nothing was parsed and no parse error was recorded.
func (p ParsedQuery) IsZero() bool {
	return p == ParsedQuery{}
}

var leadingNumber = regexp.MustCompile(`-?\d[\d,]*(\.\d+)?`)

// UnmarshalJSON accepts numbers given as strings ("46", "₹5,000",
// "3 months") and booleans given as "yes"/"true".
func (p *ParsedQuery) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = ParsedQuery{
		Age:                  int(toFloat(raw["age"])),
		Gender:               toString(raw["gender"]),
		Procedure:            toString(raw["procedure"]),
		Location:             toString(raw["location"]),
		PolicyDurationMonths: int(toFloat(raw["policy_duration_months"])),
		Amount:               toFloat(raw["amount"]),
		PreExisting:          toBool(raw["pre_existing"]),
		Error:                toString(raw["error"]),
		Raw:                  toString(raw["raw_response"]),
	}
	return nil
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		m := leadingNumber.FindString(x)
		if m == "" {
			return 0
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

func toBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "y":
			return true
		}
	}
	return false
}

// Chunk is a retrieved policy passage.
type Chunk = retrieval.Chunk

// Clause is one piece of evidence behind a decision.
type Clause struct {
	ClauseText string `json:"clause_text"`
	Source     string `json:"source"`
}

// UnmarshalJSON also accepts a bare string, which models sometimes return.
func (c *Clause) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = Clause{ClauseText: s, Source: SourcePolicy}
		return nil
	}
	type plain Clause
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = Clause(p)
	return nil
}

// Decision is the verdict of the decision agent or of the merge step.
type Decision struct {
	Decision       string   `json:"decision"`
	Amount         float64  `json:"amount"`
	Justification  string   `json:"justification"`
	MatchedClauses []Clause `json:"matched_clauses"`
}

// Response is the final pipeline output returned to API callers.
type Response struct {
	ID             string      `json:"claim_id,omitempty"`
	Query          string      `json:"query"`
	ParsedQuery    ParsedQuery `json:"parsed_query"`
	Decision       string      `json:"decision"`
	Amount         float64     `json:"amount"`
	Justifications []Clause    `json:"justifications"`
	Explanation    string      `json:"explanation"`
	MatchedClauses []Clause    `json:"matched_clauses"`
	Language       string      `json:"language,omitempty"`
}

// JustificationText joins the justification clauses for display.
func (r Response) JustificationText() string {
	parts := make([]string, 0, len(r.Justifications))
	for _, j := range r.Justifications {
		if j.ClauseText != "" {
			parts = append(parts, j.ClauseText)
		}
	}
	return strings.Join(parts, "; ")
}

// normalizeDecision maps free-form verdicts onto the three public values.
// Medical "denied" becomes "rejected"; anything unknown is rejected.
func normalizeDecision(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case DecisionApproved:
		return DecisionApproved
	case DecisionPartiallyApproved, "partially_approved", "partial":
		return DecisionPartiallyApproved
	default:
		return DecisionRejected
	}
}

// Failed reports whether r is the fallback produced when the pipeline
// itself failed rather than a decision.
func (r Response) Failed() bool {
	return len(r.Justifications) > 0 && r.Justifications[0].Source == SourceSystem
}
