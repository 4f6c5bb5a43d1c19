// SPDX-License-Identifier: MIT

package ingest

import "strings"

// FAQEntry is one question and answer pair.
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

var faqMarkers = strings.NewReplacer("Q：", "Q:", "A：", "A:")

// ParseFAQ extracts "Q: ... A: ..." pairs. The full-width markers "Q：" and
// "A：" count as well; blocks without an answer are dropped.
func ParseFAQ(text string) []FAQEntry {
	text = faqMarkers.Replace(text)
	var out []FAQEntry
	for _, block := range strings.Split(text, "Q:") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		q, a, ok := strings.Cut(block, "A:")
		if !ok {
			continue
		}
		out = append(out, FAQEntry{
			Question: strings.ReplaceAll(strings.TrimSpace(q), "\n", " "),
			Answer:   strings.ReplaceAll(strings.TrimSpace(a), "\n", " "),
		})
	}
	return out
}
