// SPDX-License-Identifier: MIT

package history

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Shansgupta/Bajaj-hackathon/internal/claims"
)

const (
	topN                = 5
	unknownProcedure    = "Unknown"
	noJustificationText = "No justification"
)

// Count is a ranked value with its frequency.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats summarizes processed claims.
type Stats struct {
	TotalClaims       int     `json:"total_claims"`
	RejectionRate     float64 `json:"rejection_rate"`
	AvgPolicyDuration float64 `json:"avg_policy_duration"`
	TopProcedures     []Count `json:"top_procedures"`
	TopJustifications []Count `json:"top_justifications"`
}

// Compute derives statistics from records. The rejection rate is a
// percentage; a claim's justification is its first clause.
func Compute(records []Record) Stats {
	s := Stats{
		TotalClaims:       len(records),
		TopProcedures:     []Count{},
		TopJustifications: []Count{},
	}
	if len(records) == 0 {
		return s
	}

	rejected := 0
	months := 0
	procedures := map[string]int{}
	justifications := map[string]int{}
	for _, r := range records {
		if r.Decision == claims.DecisionRejected {
			rejected++
		}
		months += r.ParsedQuery.PolicyDurationMonths

		proc := r.ParsedQuery.Procedure
		if proc == "" {
			proc = unknownProcedure
		}
		procedures[proc]++

		just := noJustificationText
		if len(r.Justifications) > 0 && r.Justifications[0].ClauseText != "" {
			just = r.Justifications[0].ClauseText
		}
		justifications[just]++
	}

	s.RejectionRate = float64(rejected) / float64(len(records)) * 100
	s.AvgPolicyDuration = float64(months) / float64(len(records))
	s.TopProcedures = top(procedures, topN)
	s.TopJustifications = top(justifications, topN)
	return s
}

// top ranks by count desc, ties by name.
func top(m map[string]int, n int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Name: k, Count: v})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out[:min(n, len(out))]
}

// WriteReport prints the statistics in the dashboard's text layout.
func (s Stats) WriteReport(w io.Writer) error {
	p := message.NewPrinter(language.English)
	lines := []string{
		"Business Improvement Statistics:",
		p.Sprintf("Total Claims Analyzed: %d", s.TotalClaims),
		p.Sprintf("Rejection Rate: %.1f%%", s.RejectionRate),
		p.Sprintf("Average Policy Duration (months): %.1f", s.AvgPolicyDuration),
		"Top 5 Procedures by Frequency:",
	}
	for _, c := range s.TopProcedures {
		lines = append(lines, p.Sprintf("  %s: %d claims", c.Name, c.Count))
	}
	lines = append(lines, "Top 5 Rejection Justifications:")
	for _, c := range s.TopJustifications {
		lines = append(lines, p.Sprintf("  %s: %d instances", c.Name, c.Count))
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
