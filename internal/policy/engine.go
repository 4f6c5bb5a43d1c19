// SPDX-License-Identifier: MIT

package policy

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Verdict is the outcome of a medical policy evaluation.
type Verdict string

const (
	VerdictPending           Verdict = "pending"
	VerdictApproved          Verdict = "approved"
	VerdictPartiallyApproved Verdict = "partially approved"
	VerdictDenied            Verdict = "denied"
	VerdictError             Verdict = "error"
)

// WebInfo carries coverage information found outside the policy index.
type WebInfo struct {
	CoverageLimit float64 `json:"coverage_limit"`
}

// Claim is the input to Evaluate. Zero values mean "not stated".
type Claim struct {
	Amount           float64   `json:"amount"`
	Type             string    `json:"type"`
	Condition        string    `json:"condition"`
	PreExisting      bool      `json:"pre_existing"`
	PlannedTreatment bool      `json:"planned_treatment"`
	SubmittedDays    int       `json:"submitted_days"`
	PreHospDays      int       `json:"pre_hosp_days"`
	PostHospDays     int       `json:"post_hosp_days"`
	PreAuthorized    bool      `json:"pre_authorized"`
	WebInfo          []WebInfo `json:"web_info,omitempty"`
}

// Details echoes the inputs and limits an evaluation used.
type Details struct {
	ClaimAmount          float64        `json:"claim_amount"`
	ApprovedAmount       float64        `json:"approved_amount"`
	ClaimType            string         `json:"claim_type"`
	Condition            string         `json:"condition"`
	IsPreExisting        bool           `json:"is_pre_existing"`
	PolicyLimits         CoverageLimits `json:"policy_limits"`
	DynamicLimit         float64        `json:"dynamic_limit"`
	ExclusionsApplied    bool           `json:"exclusions_applied"`
	SubmissionDays       int            `json:"submission_days"`
	PreHospDays          int            `json:"pre_hosp_days"`
	PostHospDays         int            `json:"post_hosp_days"`
	CashlessEligible     bool           `json:"cashless_eligible"`
	ClaimSettlementRatio float64        `json:"claim_settlement_ratio"`
}

// Evaluation is the verdict with its reasons.
type Evaluation struct {
	Decision    Verdict  `json:"decision"`
	Reason      []string `json:"reason"`
	Details     *Details `json:"details,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

// ApprovedAmount returns the approved amount, 0 without details.
func (e Evaluation) ApprovedAmount() float64 {
	if e.Details == nil {
		return 0
	}
	return e.Details.ApprovedAmount
}

// Engine evaluates claims against a fixed rule set.
type Engine struct {
	rules Rules
}

// NewEngine creates an engine for rules.
func NewEngine(rules Rules) *Engine {
	return &Engine{rules: rules}
}

// Rules returns the engine's rule set.
func (e *Engine) Rules() Rules { return e.rules }

// Evaluate applies the rules in order. Later rules may override the verdict
// of earlier ones; an amount above the overall limit always ends partially
// approved.
func (e *Engine) Evaluate(c Claim) Evaluation {
	r := e.rules
	res := Evaluation{Decision: VerdictPending, Reason: []string{}}

	claimType := strings.ToLower(c.Type)
	condition := strings.ToLower(c.Condition)

	maxLimit := r.CoverageLimits.ForType(claimType)
	approved := c.Amount

	for _, info := range c.WebInfo {
		if info.CoverageLimit > 0 {
			maxLimit = info.CoverageLimit
			break
		}
	}

	if c.PreExisting {
		limit := r.CoverageLimits.PreExisting
		if c.Amount > limit {
			approved = limit
			res.Reason = append(res.Reason, fmt.Sprintf("Claim is for pre-existing condition. Limit is ₹%s.", FormatAmount(limit)))
			res.Decision = VerdictPartiallyApproved
		}
	}

	if strings.Contains(claimType, "outpatient") || strings.Contains(condition, "opd") {
		limit := r.CoverageLimits.Outpatient
		if c.Amount > limit {
			approved = limit
			res.Reason = append(res.Reason, fmt.Sprintf("Outpatient claim capped at ₹%s.", FormatAmount(limit)))
			res.Decision = VerdictPartiallyApproved
		}
	}

	if strings.Contains(condition, "maternity") {
		limit := r.CoverageLimits.Maternity
		if c.Amount > limit {
			approved = limit
			res.Reason = append(res.Reason, fmt.Sprintf("Maternity coverage limited to ₹%s.", FormatAmount(limit)))
			res.Decision = VerdictPartiallyApproved
		}
	}

	excluded := e.excluded(condition)
	if excluded {
		res.Decision = VerdictDenied
		res.Reason = append(res.Reason, fmt.Sprintf("Claim involves excluded condition: %s.", condition))
	}

	if claimType == "hospitalization" {
		window := r.PrePostHospitalization
		if c.PreHospDays > window.PreDays {
			res.Decision = VerdictDenied
			res.Reason = append(res.Reason, fmt.Sprintf("Exceeds %d days pre-hospitalization coverage.", window.PreDays))
		}
		if c.PostHospDays > window.PostDays {
			res.Decision = VerdictDenied
			res.Reason = append(res.Reason, fmt.Sprintf("Exceeds %d days post-hospitalization coverage.", window.PostDays))
		}
	}

	if c.SubmittedDays > r.ClaimProcess.SubmissionDeadline {
		res.Decision = VerdictDenied
		res.Reason = append(res.Reason, fmt.Sprintf("Claim submitted after %d days.", r.ClaimProcess.SubmissionDeadline))
	}
	if c.PlannedTreatment && !c.PreAuthorized {
		res.Decision = VerdictDenied
		res.Reason = append(res.Reason, "Pre-authorization required for planned treatment.")
	}

	if c.Amount > maxLimit {
		approved = maxLimit
		res.Reason = append(res.Reason, fmt.Sprintf("Claim amount ₹%s exceeds policy limit of ₹%s. Approving ₹%s.",
			FormatAmount(c.Amount), FormatAmount(maxLimit), FormatAmount(maxLimit)))
		res.Decision = VerdictPartiallyApproved
	} else if maxLimit <= 0 {
		res.Reason = append(res.Reason, "Unable to determine policy limit from available data. Please contact policy provider for clarification.")
		res.Decision = VerdictPending
	}

	if res.Decision == VerdictPending {
		res.Decision = VerdictApproved
	}

	res.Details = &Details{
		ClaimAmount:          c.Amount,
		ApprovedAmount:       approved,
		ClaimType:            claimType,
		Condition:            condition,
		IsPreExisting:        c.PreExisting,
		PolicyLimits:         r.CoverageLimits,
		DynamicLimit:         maxLimit,
		ExclusionsApplied:    excluded,
		SubmissionDays:       c.SubmittedDays,
		PreHospDays:          c.PreHospDays,
		PostHospDays:         c.PostHospDays,
		CashlessEligible:     r.NetworkHospitals,
		ClaimSettlementRatio: r.ClaimSettlementRatio,
	}
	return res
}

func (e *Engine) excluded(condition string) bool {
	for _, ex := range e.rules.Exclusions {
		if strings.Contains(condition, strings.ToLower(ex)) {
			return true
		}
	}
	return false
}

// Explain renders a one-line customer message for an evaluation.
func (e *Engine) Explain(ev Evaluation) string {
	reasons := strings.Join(ev.Reason, ", ")
	switch ev.Decision {
	case VerdictApproved:
		d := ev.details()
		return fmt.Sprintf("🎉 Claim APPROVED! Amount: ₹%s approved for %s. Meets policy limit. Pre/Post days within range. (Settlement ratio: %.2f%%)",
			FormatAmount(d.ApprovedAmount), d.ClaimType, d.ClaimSettlementRatio*100)
	case VerdictPartiallyApproved:
		d := ev.details()
		return fmt.Sprintf("🟡 Claim PARTIALLY APPROVED. ₹%s approved out of ₹%s. Reason(s): %s",
			FormatAmount(d.ApprovedAmount), FormatAmount(d.ClaimAmount), reasons)
	case VerdictDenied:
		return "❌ Claim DENIED. Reason(s): " + reasons
	default:
		return "🤔 Error evaluating claim. Reason: " + reasons
	}
}

func (e Evaluation) details() Details {
	if e.Details == nil {
		return Details{}
	}
	return *e.Details
}

// Process decodes a JSON claim, evaluates it and attaches the explanation.
func (e *Engine) Process(raw []byte) Evaluation {
	var c Claim
	if err := json.Unmarshal(raw, &c); err != nil {
		return Evaluation{
			Decision:    VerdictError,
			Reason:      []string{"Invalid JSON input"},
			Explanation: "Please provide valid claim data!",
		}
	}
	return e.ProcessClaim(c)
}

// ProcessClaim evaluates c and attaches the explanation.
func (e *Engine) ProcessClaim(c Claim) Evaluation {
	ev := e.Evaluate(c)
	ev.Explanation = e.Explain(ev)
	return ev
}

// FormatAmount renders rupee amounts without a trailing ".0" for whole numbers.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
