// SPDX-License-Identifier: MIT

// Package policy evaluates medical claims against deterministic health
// insurance rules (coverage limits, exclusions, hospitalization windows and
// claim process deadlines).
package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	xglog "github.com/Shansgupta/Bajaj-hackathon/internal/log"
)

// CoverageLimits are rupee caps per claim type.
type CoverageLimits struct {
	Hospitalization float64 `json:"hospitalization" yaml:"hospitalization"`
	PreExisting     float64 `json:"pre_existing" yaml:"pre_existing"`
	Outpatient      float64 `json:"outpatient" yaml:"outpatient"`
	Maternity       float64 `json:"maternity" yaml:"maternity"`
	SumInsuredMax   float64 `json:"sum_insured_max" yaml:"sum_insured_max"`
}

// ForType returns the limit for a claim type, or the sum insured maximum.
func (c CoverageLimits) ForType(claimType string) float64 {
	switch claimType {
	case "hospitalization":
		return c.Hospitalization
	case "pre_existing":
		return c.PreExisting
	case "outpatient":
		return c.Outpatient
	case "maternity":
		return c.Maternity
	default:
		return c.SumInsuredMax
	}
}

// PrePostHospitalization is the covered window around a hospital stay, in days.
type PrePostHospitalization struct {
	PreDays  int `json:"pre_days" yaml:"pre_days"`
	PostDays int `json:"post_days" yaml:"post_days"`
}

// ClaimProcess holds process deadlines, in days (approval time in minutes).
type ClaimProcess struct {
	SubmissionDeadline   int  `json:"submission_deadline" yaml:"submission_deadline"`
	CashlessApprovalTime int  `json:"cashless_approval_time" yaml:"cashless_approval_time"`
	PreAuthorization     bool `json:"pre_authorization" yaml:"pre_authorization"`
	FreeLookPeriod       int  `json:"free_look_period" yaml:"free_look_period"`
}

// Rules is a complete policy rule set.
type Rules struct {
	CoverageLimits         CoverageLimits         `json:"coverage_limits" yaml:"coverage_limits"`
	PrePostHospitalization PrePostHospitalization `json:"pre_post_hospitalization" yaml:"pre_post_hospitalization"`
	Exclusions             []string               `json:"exclusions" yaml:"exclusions"`
	ClaimProcess           ClaimProcess           `json:"claim_process" yaml:"claim_process"`
	NetworkHospitals       bool                   `json:"network_hospitals" yaml:"network_hospitals"`
	ClaimSettlementRatio   float64                `json:"claim_settlement_ratio" yaml:"claim_settlement_ratio"`
}

// DefaultRules returns the built-in Bajaj Allianz health rules.
func DefaultRules() Rules {
	return Rules{
		CoverageLimits: CoverageLimits{
			Hospitalization: 500000,
			PreExisting:     100000,
			Outpatient:      20000,
			Maternity:       30000,
			SumInsuredMax:   5000000,
		},
		PrePostHospitalization: PrePostHospitalization{PreDays: 60, PostDays: 90},
		Exclusions: []string{
			"Cosmetic surgery",
			"Experimental treatments",
			"Self-inflicted injuries",
			"HIV/AIDS",
			"Non-medical expenses",
		},
		ClaimProcess: ClaimProcess{
			SubmissionDeadline:   30,
			CashlessApprovalTime: 60,
			PreAuthorization:     true,
			FreeLookPeriod:       30,
		},
		NetworkHospitals:     true,
		ClaimSettlementRatio: 0.9064,
	}
}

// LoadRules reads rules from a JSON or YAML file. Keys absent from the file
// keep their default. An empty path, a URL, a missing file or an invalid file
// all fall back to DefaultRules with a warning; the returned error reports why.
func LoadRules(source string) (Rules, error) {
	logger := xglog.WithComponent("policy")
	rules := DefaultRules()

	if source == "" {
		return rules, nil
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		logger.Warn().
			Str(xglog.FieldEvent, "policy.rules_url_unsupported").
			Str("source", source).
			Msg("fetching policy rules from a URL is not supported, using default rules")
		return rules, fmt.Errorf("policy rules from URL not supported: %s", source)
	}

	// #nosec G304 -- rules path is operator configuration
	data, err := os.ReadFile(filepath.Clean(source))
	if err != nil {
		logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "policy.rules_missing").
			Str("source", source).
			Msg("policy file not found, using default rules")
		return DefaultRules(), fmt.Errorf("read policy rules: %w", err)
	}

	switch strings.ToLower(filepath.Ext(source)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&rules)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&rules)
	}
	if err != nil {
		logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "policy.rules_invalid").
			Str("source", source).
			Msg("invalid policy file, using default rules")
		return DefaultRules(), fmt.Errorf("parse policy rules %s: %w", source, err)
	}

	logger.Info().
		Str(xglog.FieldEvent, "policy.rules_loaded").
		Str("source", source).
		Int("exclusions", len(rules.Exclusions)).
		Msg("loaded policy rules")
	return rules, nil
}
