// SPDX-License-Identifier: MIT

package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadRules_EmptySourceIsDefault(t *testing.T) {
	rules, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)
}

func TestLoadRules_JSONOverridesDefaults(t *testing.T) {
	p := writeFile(t, "local_policy.json", `{
		"coverage_limits": {"hospitalization": 300000},
		"exclusions": ["Dental"]
	}`)
	rules, err := LoadRules(p)
	require.NoError(t, err)
	assert.Equal(t, float64(300000), rules.CoverageLimits.Hospitalization)
	assert.Equal(t, float64(100000), rules.CoverageLimits.PreExisting)
	assert.Equal(t, []string{"Dental"}, rules.Exclusions)
	assert.Equal(t, 60, rules.PrePostHospitalization.PreDays)
}

func TestLoadRules_YAML(t *testing.T) {
	p := writeFile(t, "rules.yaml", "claim_process:\n  submission_deadline: 45\nclaim_settlement_ratio: 0.95\n")
	rules, err := LoadRules(p)
	require.NoError(t, err)
	assert.Equal(t, 45, rules.ClaimProcess.SubmissionDeadline)
	assert.InDelta(t, 0.95, rules.ClaimSettlementRatio, 1e-9)
}

func TestLoadRules_FallsBackToDefaults(t *testing.T) {
	tests := []struct {
		name   string
		source func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.json") }},
		{"invalid json", func(t *testing.T) string { return writeFile(t, "bad.json", "{") }},
		{"unknown key", func(t *testing.T) string { return writeFile(t, "bad.yaml", "coverage: 1\n") }},
		{"url", func(*testing.T) string {
			return "https://www.bajajallianz.com/health-insurance-plans/private-health-insurance.html"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules, err := LoadRules(tt.source(t))
			assert.Error(t, err)
			assert.Equal(t, DefaultRules(), rules)
		})
	}
}
