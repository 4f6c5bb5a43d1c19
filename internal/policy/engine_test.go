// SPDX-License-Identifier: MIT

package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseClaim() Claim {
	return Claim{
		Amount:        50000,
		Type:          "hospitalization",
		Condition:     "appendicitis",
		SubmittedDays: 15,
		PreHospDays:   30,
		PostHospDays:  45,
		PreAuthorized: true,
	}
}

func TestEvaluate_Rules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		mutate       func(*Claim)
		wantDecision Verdict
		wantApproved float64
		wantReasons  []string
	}{
		{
			name:         "within limits is approved",
			mutate:       func(*Claim) {},
			wantDecision: VerdictApproved,
			wantApproved: 50000,
			wantReasons:  []string{},
		},
		{
			name:         "above hospitalization limit is capped",
			mutate:       func(c *Claim) { c.Amount = 600000 },
			wantDecision: VerdictPartiallyApproved,
			wantApproved: 500000,
			wantReasons:  []string{"Claim amount ₹600000 exceeds policy limit of ₹500000. Approving ₹500000."},
		},
		{
			name: "web info raises the limit",
			mutate: func(c *Claim) {
				c.Amount = 600000
				c.WebInfo = []WebInfo{{CoverageLimit: 0}, {CoverageLimit: 700000}}
			},
			wantDecision: VerdictApproved,
			wantApproved: 600000,
			wantReasons:  []string{},
		},
		{
			name: "pre-existing capped",
			mutate: func(c *Claim) {
				c.Amount = 150000
				c.PreExisting = true
			},
			wantDecision: VerdictPartiallyApproved,
			wantApproved: 100000,
			wantReasons:  []string{"Claim is for pre-existing condition. Limit is ₹100000."},
		},
		{
			name: "opd condition uses outpatient cap",
			mutate: func(c *Claim) {
				c.Type = "general"
				c.Condition = "opd consultation"
				c.Amount = 25000
			},
			wantDecision: VerdictPartiallyApproved,
			wantApproved: 20000,
			wantReasons:  []string{"Outpatient claim capped at ₹20000."},
		},
		{
			name: "maternity capped",
			mutate: func(c *Claim) {
				c.Condition = "maternity delivery"
				c.Amount = 40000
			},
			wantDecision: VerdictPartiallyApproved,
			wantApproved: 30000,
			wantReasons:  []string{"Maternity coverage limited to ₹30000."},
		},
		{
			name:         "exclusion denies",
			mutate:       func(c *Claim) { c.Condition = "Cosmetic Surgery on nose" },
			wantDecision: VerdictDenied,
			wantApproved: 50000,
			wantReasons:  []string{"Claim involves excluded condition: cosmetic surgery on nose."},
		},
		{
			name: "hospitalization windows deny",
			mutate: func(c *Claim) {
				c.PreHospDays = 61
				c.PostHospDays = 91
			},
			wantDecision: VerdictDenied,
			wantApproved: 50000,
			wantReasons: []string{
				"Exceeds 60 days pre-hospitalization coverage.",
				"Exceeds 90 days post-hospitalization coverage.",
			},
		},
		{
			name:         "windows ignored for non-hospitalization",
			mutate:       func(c *Claim) { c.Type = "daycare"; c.PreHospDays = 100 },
			wantDecision: VerdictApproved,
			wantApproved: 50000,
			wantReasons:  []string{},
		},
		{
			name:         "late submission denies",
			mutate:       func(c *Claim) { c.SubmittedDays = 31 },
			wantDecision: VerdictDenied,
			wantApproved: 50000,
			wantReasons:  []string{"Claim submitted after 30 days."},
		},
		{
			name: "planned without pre-authorization denies",
			mutate: func(c *Claim) {
				c.PlannedTreatment = true
				c.PreAuthorized = false
			},
			wantDecision: VerdictDenied,
			wantApproved: 50000,
			wantReasons:  []string{"Pre-authorization required for planned treatment."},
		},
		{
			name: "over-limit overrides denial",
			mutate: func(c *Claim) {
				c.SubmittedDays = 40
				c.Amount = 600000
			},
			wantDecision: VerdictPartiallyApproved,
			wantApproved: 500000,
			wantReasons: []string{
				"Claim submitted after 30 days.",
				"Claim amount ₹600000 exceeds policy limit of ₹500000. Approving ₹500000.",
			},
		},
	}

	e := NewEngine(DefaultRules())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := baseClaim()
			tt.mutate(&c)
			got := e.Evaluate(c)
			assert.Equal(t, tt.wantDecision, got.Decision)
			assert.Equal(t, tt.wantReasons, got.Reason)
			require.NotNil(t, got.Details)
			assert.Equal(t, tt.wantApproved, got.Details.ApprovedAmount)
		})
	}
}

func TestEvaluate_UnknownLimitStaysPending(t *testing.T) {
	rules := DefaultRules()
	rules.CoverageLimits.SumInsuredMax = 0
	e := NewEngine(rules)

	got := e.Evaluate(Claim{Type: "unknown", Amount: 0})
	// Pending is resolved to approved after the reason is recorded.
	assert.Equal(t, VerdictApproved, got.Decision)
	assert.Equal(t, []string{"Unable to determine policy limit from available data. Please contact policy provider for clarification."}, got.Reason)
}

func TestEvaluate_Details(t *testing.T) {
	e := NewEngine(DefaultRules())
	got := e.Evaluate(Claim{Amount: 1000, Type: "Hospitalization", Condition: "Knee Surgery"})
	require.NotNil(t, got.Details)
	assert.Equal(t, "hospitalization", got.Details.ClaimType)
	assert.Equal(t, "knee surgery", got.Details.Condition)
	assert.Equal(t, float64(500000), got.Details.DynamicLimit)
	assert.True(t, got.Details.CashlessEligible)
	assert.InDelta(t, 0.9064, got.Details.ClaimSettlementRatio, 1e-9)
}

func TestExplain(t *testing.T) {
	e := NewEngine(DefaultRules())

	approved := e.ProcessClaim(baseClaim())
	assert.Equal(t, "🎉 Claim APPROVED! Amount: ₹50000 approved for hospitalization. Meets policy limit. Pre/Post days within range. (Settlement ratio: 90.64%)", approved.Explanation)

	c := baseClaim()
	c.Amount = 600000
	partial := e.ProcessClaim(c)
	assert.Equal(t, "🟡 Claim PARTIALLY APPROVED. ₹500000 approved out of ₹600000. Reason(s): Claim amount ₹600000 exceeds policy limit of ₹500000. Approving ₹500000.", partial.Explanation)

	c = baseClaim()
	c.SubmittedDays = 45
	denied := e.ProcessClaim(c)
	assert.Equal(t, "❌ Claim DENIED. Reason(s): Claim submitted after 30 days.", denied.Explanation)

	assert.Equal(t, "🤔 Error evaluating claim. Reason: boom", e.Explain(Evaluation{Decision: VerdictError, Reason: []string{"boom"}}))
}

func TestProcess(t *testing.T) {
	e := NewEngine(DefaultRules())

	got := e.Process([]byte(`{"amount": 600000, "type": "hospitalization", "condition": "appendicitis",
		"submitted_days": 15, "pre_hosp_days": 30, "post_hosp_days": 45, "pre_authorized": true,
		"web_info": [{"coverage_limit": 700000}]}`))
	assert.Equal(t, VerdictApproved, got.Decision)
	assert.Equal(t, float64(600000), got.ApprovedAmount())
	assert.NotEmpty(t, got.Explanation)

	bad := e.Process([]byte(`{not json`))
	assert.Equal(t, VerdictError, bad.Decision)
	assert.Equal(t, []string{"Invalid JSON input"}, bad.Reason)
	assert.Equal(t, "Please provide valid claim data!", bad.Explanation)
	assert.Zero(t, bad.ApprovedAmount())
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "5000", FormatAmount(5000))
	assert.Equal(t, "2500.5", FormatAmount(2500.5))
}
