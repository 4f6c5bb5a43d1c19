// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/Shansgupta/Bajaj-hackathon/internal/daemon"
	"github.com/Shansgupta/Bajaj-hackathon/internal/history"
	"github.com/Shansgupta/Bajaj-hackathon/internal/vectorstore"
)

const (
	indexScanLimit   = 10000
	defaultQueryTopK = 10
)

// runStats prints the business statistics computed from the local history
// database or from the claims index.
func runStats(args []string, stdout, stderr io.Writer) int {
	fs, configPath := commandFlags("claimd stats", stderr)
	source := fs.String("source", "history", "where to read claims from: history or index")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *source != "history" && *source != "index" {
		fmt.Fprintf(stderr, "Error: unsupported source %q (use history or index)\n", *source)
		return 2
	}

	path := resolveConfigPath(*configPath)
	cfg, err := loadConfig(path)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", displayPath(path), err)
		return 1
	}
	ctx := context.Background()

	var records []history.Record
	if *source == "index" {
		records, err = history.LoadFromIndex(ctx, daemon.NewClaimsIndex(cfg), cfg.OpenAI.EmbeddingDim, indexScanLimit)
	} else {
		var store *history.Store
		store, err = history.Open(ctx, cfg.History.Path)
		if err == nil {
			defer store.Close()
			records, err = store.List(ctx, 0)
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := history.Compute(records).WriteReport(stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// filterFlag collects repeated --filter key=value pairs. Values that parse
// as a number or a boolean are matched as such.
type filterFlag map[string]any

func (f filterFlag) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, f[k]))
	}
	return strings.Join(parts, ",")
}

func (f filterFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return fmt.Errorf("filter %q: want key=value", s)
	}
	f[k] = parseFilterValue(v)
	return nil
}

func parseFilterValue(v string) any {
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n
	}
	return v
}

// runQuery looks up claims in the claims index by exact metadata match.
func runQuery(args []string, stdout, stderr io.Writer) int {
	fs, configPath := commandFlags("claimd query", stderr)
	filter := filterFlag{}
	fs.Var(filter, "filter", "metadata filter key=value (repeatable)")
	topK := fs.Int("top-k", defaultQueryTopK, "maximum number of matches")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if len(filter) == 0 {
		fmt.Fprintln(stderr, "Error: at least one --filter key=value is required")
		return 2
	}

	path := resolveConfigPath(*configPath)
	cfg, err := loadConfig(path)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", displayPath(path), err)
		return 1
	}
	return queryIndex(context.Background(), daemon.NewClaimsIndex(cfg), cfg.OpenAI.EmbeddingDim, filter, *topK, stdout, stderr)
}

func queryIndex(ctx context.Context, idx vectorstore.Store, dim int, filter map[string]any, topK int, stdout, stderr io.Writer) int {
	matches, err := idx.Query(ctx, vectorstore.QueryRequest{
		Vector:          make([]float32, dim),
		TopK:            topK,
		IncludeMetadata: true,
		Filter:          filter,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(matches) == 0 {
		fmt.Fprintln(stdout, "Query not found in the claims index")
		return 0
	}
	fmt.Fprintln(stdout, "Query found in the claims index:")
	for _, m := range matches {
		meta, err := json.Marshal(m.Metadata)
		if err != nil {
			meta = []byte("{}")
		}
		fmt.Fprintf(stdout, "ID: %s, Metadata: %s\n", m.ID, meta)
	}
	return 0
}
