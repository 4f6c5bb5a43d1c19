// SPDX-License-Identifier: MIT

package claims

import (
	"strings"

	"github.com/Shansgupta/Bajaj-hackathon/internal/policy"
	"github.com/Shansgupta/Bajaj-hackathon/internal/search"
)

// Decision sources, also used as metric labels.
const (
	fromRetriever = "retriever"
	fromMedical   = "medical"
	fromFallback  = "fallback"
)

const noMedicalReason = "No specific reason provided by medical policy"

// MedicalClaim builds the rules engine input from a parsed query and the raw
// text: every claim is checked as surgery, "planned" marks planned treatment
// and "pre-authorization" marks it pre-authorized.
func MedicalClaim(parsed ParsedQuery, raw string, web []search.Result) policy.Claim {
	lower := strings.ToLower(raw)
	c := policy.Claim{
		Amount:           parsed.Amount,
		Type:             "surgery",
		Condition:        lower,
		PreExisting:      parsed.PreExisting,
		PlannedTreatment: strings.Contains(lower, "planned"),
		PreAuthorized:    strings.Contains(lower, "pre-authorization"),
	}
	for _, w := range web {
		if w.CoverageLimit > 0 {
			c.WebInfo = append(c.WebInfo, policy.WebInfo{CoverageLimit: w.CoverageLimit})
		}
	}
	return c
}

// CheckMedical runs the rules engine. A query that could not be parsed at all
// is denied without evaluation.
func CheckMedical(engine *policy.Engine, parsed ParsedQuery, raw string, web []search.Result) policy.Evaluation {
	if parsed.IsZero() {
		return policy.Evaluation{Decision: policy.VerdictDenied, Reason: []string{"No parsed data"}}
	}
	return engine.ProcessClaim(MedicalClaim(parsed, raw, web))
}

// medicalClauses turns rules engine reasons into clauses.
func medicalClauses(ev policy.Evaluation) []Clause {
	if len(ev.Reason) == 0 {
		return []Clause{{ClauseText: noMedicalReason, Source: SourceSystem}}
	}
	out := make([]Clause, len(ev.Reason))
	for i, r := range ev.Reason {
		out[i] = Clause{ClauseText: r, Source: SourceMedical}
	}
	return out
}

// Merge combines the decision agent's verdict with the rules engine's.
// The retriever-grounded decision wins unless there were no chunks or the
// decision agent failed; the amount always comes from the decision agent.
// It returns the merged decision and which side it came from.
func Merge(retriever Decision, medical policy.Evaluation, haveChunks bool) (Decision, string) {
	medClauses := medicalClauses(medical)
	medVerdict := normalizeDecision(string(medical.Decision))
	retrieverFailed := retriever.Decision == DecisionRejected && strings.Contains(retriever.Justification, "Error")

	var out Decision
	var source string
	switch {
	case !haveChunks || retrieverFailed:
		out = Decision{
			Decision:      medVerdict,
			Justification: medClauses[0].ClauseText + ". Using medical policy due to lack of retriever result.",
		}
		source = fromMedical
	case retriever.Decision == medVerdict:
		out = retriever
		source = fromRetriever
	default:
		out = retriever
		out.Justification = retriever.Justification + ". Overriding medical policy due to retriever priority."
		source = fromRetriever
	}

	matched := make([]Clause, 0, len(retriever.MatchedClauses)+len(medClauses))
	matched = append(matched, retriever.MatchedClauses...)
	matched = append(matched, medClauses...)
	out.MatchedClauses = matched
	out.Amount = retriever.Amount
	return out, source
}
