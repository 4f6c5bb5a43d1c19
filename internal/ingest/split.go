// SPDX-License-Identifier: MIT

package ingest

import (
	"strings"
	"unicode/utf8"
)

// Splitter cuts text into chunks of at most ChunkSize characters, trying
// paragraph, line and word boundaries in turn. Consecutive chunks share up
// to Overlap characters.
type Splitter struct {
	ChunkSize  int
	Overlap    int
	Separators []string
}

// DefaultSplitter matches the document ingestion settings.
func DefaultSplitter() Splitter {
	return Splitter{ChunkSize: 800, Overlap: 100, Separators: []string{"\n\n", "\n", " ", ""}}
}

// Split returns the chunks of text.
func (s Splitter) Split(text string) []string {
	seps := s.Separators
	if len(seps) == 0 {
		seps = DefaultSplitter().Separators
	}
	return s.split(text, seps)
}

func (s Splitter) split(text string, seps []string) []string {
	sep := seps[len(seps)-1]
	var rest []string
	for i, c := range seps {
		if c == "" {
			sep = c
			break
		}
		if strings.Contains(text, c) {
			sep = c
			rest = seps[i+1:]
			break
		}
	}

	var parts []string
	if sep == "" {
		for _, r := range text {
			parts = append(parts, string(r))
		}
	} else {
		for _, p := range strings.Split(text, sep) {
			if p != "" {
				parts = append(parts, p)
			}
		}
	}

	var out, good []string
	for _, p := range parts {
		if utf8.RuneCountInString(p) < s.ChunkSize {
			good = append(good, p)
			continue
		}
		if len(good) > 0 {
			out = append(out, s.merge(good, sep)...)
			good = nil
		}
		if len(rest) == 0 {
			out = append(out, p)
		} else {
			out = append(out, s.split(p, rest)...)
		}
	}
	if len(good) > 0 {
		out = append(out, s.merge(good, sep)...)
	}
	return out
}

// merge packs small parts into chunks, carrying the tail of each chunk into
// the next one while it fits in Overlap.
func (s Splitter) merge(parts []string, sep string) []string {
	sepLen := utf8.RuneCountInString(sep)
	var out, cur []string
	total := 0
	join := func() {
		if doc := strings.TrimSpace(strings.Join(cur, sep)); doc != "" {
			out = append(out, doc)
		}
	}
	extra := func() int {
		if len(cur) > 0 {
			return sepLen
		}
		return 0
	}

	for _, p := range parts {
		n := utf8.RuneCountInString(p)
		if total+n+extra() > s.ChunkSize && len(cur) > 0 {
			join()
			for total > s.Overlap || (total+n+extra() > s.ChunkSize && total > 0) {
				drop := utf8.RuneCountInString(cur[0])
				if len(cur) > 1 {
					drop += sepLen
				}
				total -= drop
				cur = cur[1:]
			}
		}
		cur = append(cur, p)
		total += n
		if len(cur) > 1 {
			total += sepLen
		}
	}
	join()
	return out
}
