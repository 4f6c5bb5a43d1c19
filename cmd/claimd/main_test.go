// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shansgupta/Bajaj-hackathon/internal/claims"
	"github.com/Shansgupta/Bajaj-hackathon/internal/history"
	"github.com/Shansgupta/Bajaj-hackathon/internal/ingest"
	"github.com/Shansgupta/Bajaj-hackathon/internal/policy"
	"github.com/Shansgupta/Bajaj-hackathon/internal/vectorstore"
)

// offlineEnv points the loader at an empty data dir with every remote
// integration disabled.
func offlineEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CLAIMD_DATA", dir)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CLAIMD_VECTOR_BACKEND", "memory")
	t.Setenv("CLAIMD_CACHE_BACKEND", "none")
	t.Setenv("CLAIMD_WEB_FALLBACK", "false")
	t.Setenv("CLAIMD_RECORD_PINECONE", "false")
	t.Setenv("CLAIMD_TRACING_ENABLED", "false")
	t.Setenv("CLAIMD_LOG_LEVEL", "error")
	return dir
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI(t, "--version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, version)
}

func TestRun_UnknownCommand(t *testing.T) {
	code, _, errOut := runCLI(t, "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Unknown command: frobnicate")
	assert.Contains(t, errOut, "Usage:")
}

func TestConfigPrint_MasksSecrets(t *testing.T) {
	offlineEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-very-secret")

	code, out, errOut := runCLI(t, "config", "print", "--format", "json")
	require.Equal(t, 0, code, errOut)
	assert.NotContains(t, out, "sk-very-secret")
	assert.Contains(t, out, "***")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
}

func TestConfigPrint_RejectsUnknownFormat(t *testing.T) {
	offlineEnv(t)
	code, _, errOut := runCLI(t, "config", "print", "--format", "toml")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "unsupported format")
}

func TestConfigValidate(t *testing.T) {
	dir := offlineEnv(t)

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("logLevel: debug\n"), 0o600))
	code, out, errOut := runCLI(t, "config", "validate", "-f", good)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "is valid")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("logLevel: [unterminated\n"), 0o600))
	code, _, errOut = runCLI(t, "config", "validate", "--file", bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Configuration error in "+bad)
}

func TestConvertDataset(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "train.jsonl")
	out := filepath.Join(dir, "chat.jsonl")
	require.NoError(t, os.WriteFile(in, []byte(
		`{"prompt":"46M knee surgery Pune 3 months","completion":" {\"decision\":\"rejected\"} "}`+"\n"+
			`{"prompt":"30F dental Mumbai 2 years","completion":"{\"decision\":\"approved\"}"}`+"\n"), 0o600))

	code, stdout, errOut := runCLI(t, "convert-dataset", "--in", in, "--out", out)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, stdout, "Converted 2 examples")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	var lines int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines++
		var ex struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ex))
		require.Len(t, ex.Messages, 3)
		assert.Equal(t, "system", ex.Messages[0].Role)
		assert.Equal(t, ingest.DatasetSystemPrompt, ex.Messages[0].Content)
		assert.Equal(t, "assistant", ex.Messages[2].Role)
		assert.Equal(t, strings.TrimSpace(ex.Messages[2].Content), ex.Messages[2].Content)
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, 2, lines)
}

func TestConvertDataset_RequiresPaths(t *testing.T) {
	code, _, errOut := runCLI(t, "convert-dataset", "--in", "x.jsonl")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "--in and --out are required")
}

func TestStats_FromHistory(t *testing.T) {
	dir := offlineEnv(t)
	ctx := context.Background()

	store, err := history.Open(ctx, filepath.Join(dir, "claims.db"))
	require.NoError(t, err)
	base := time.Date(2026, 10, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, history.Record{
		ID: "one", Query: "knee", Decision: claims.DecisionApproved, Amount: 900,
		ParsedQuery: claims.ParsedQuery{Procedure: "knee surgery"}, CreatedAt: base,
	}))
	require.NoError(t, store.Save(ctx, history.Record{
		ID: "two", Query: "hip", Decision: claims.DecisionRejected,
		ParsedQuery: claims.ParsedQuery{Procedure: "hip replacement"}, CreatedAt: base.Add(time.Minute),
	}))
	require.NoError(t, store.Close())

	code, out, errOut := runCLI(t, "stats")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Business Improvement Statistics:")
	assert.Contains(t, out, "Total Claims Analyzed: 2")
}

func TestStats_RejectsUnknownSource(t *testing.T) {
	code, _, errOut := runCLI(t, "stats", "--source", "s3")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "unsupported source")
}

func TestQuery_RequiresFilter(t *testing.T) {
	code, _, errOut := runCLI(t, "query")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "--filter")
}

func TestFilterFlag(t *testing.T) {
	f := filterFlag{}
	require.NoError(t, f.Set("decision=approved"))
	require.NoError(t, f.Set("age=46"))
	require.NoError(t, f.Set("pre_existing=false"))
	assert.Error(t, f.Set("=x"))
	assert.Error(t, f.Set("novalue"))

	assert.Equal(t, filterFlag{"decision": "approved", "age": 46.0, "pre_existing": false}, f)
	assert.Equal(t, "age=46,decision=approved,pre_existing=false", f.String())
}

func TestQueryIndex(t *testing.T) {
	ctx := context.Background()
	idx := vectorstore.NewMemory("claims")
	require.NoError(t, idx.Upsert(ctx, []vectorstore.Vector{
		{ID: "c1", Values: []float32{1, 0}, Metadata: map[string]any{"decision": "approved", "procedure": "knee surgery"}},
		{ID: "c2", Values: []float32{0, 1}, Metadata: map[string]any{"decision": "rejected", "procedure": "hip replacement"}},
	}))

	var out, errOut bytes.Buffer
	code := queryIndex(ctx, idx, 2, map[string]any{"decision": "rejected"}, 10, &out, &errOut)
	require.Equal(t, 0, code, errOut.String())
	assert.Contains(t, out.String(), "Query found in the claims index:")
	assert.Contains(t, out.String(), "ID: c2, Metadata: ")
	assert.Contains(t, out.String(), `"procedure":"hip replacement"`)
	assert.NotContains(t, out.String(), "c1")

	out.Reset()
	code = queryIndex(ctx, idx, 2, map[string]any{"decision": "pending"}, 10, &out, &errOut)
	require.Equal(t, 0, code)
	assert.Equal(t, "Query not found in the claims index\n", out.String())
}

// fakeEmbeddings answers /v1/embeddings with a fixed-size vector per input.
func fakeEmbeddings(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		type item struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		for i, in := range req.Input {
			data[i] = item{Index: i, Embedding: []float32{float32(len(in)), 1, 0.5}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":  data,
			"usage": map[string]int{"prompt_tokens": len(req.Input)},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIngest_UploadsToBadger(t *testing.T) {
	dir := offlineEnv(t)
	srv := fakeEmbeddings(t)
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("CLAIMD_OPENAI_BASE_URL", srv.URL)
	t.Setenv("CLAIMD_VECTOR_BACKEND", "badger")

	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "policy.txt"), []byte(
		"Knee surgery is covered after a waiting period of 24 months.\n\n"+
			"Cosmetic procedures are excluded.\n"), 0o600))

	code, out, errOut := runCLI(t, "ingest", "--dir", docs)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "policy.txt: ")
	assert.Contains(t, out, "Upload complete: ")
	assert.Contains(t, out, "(0 failed)")

	store, err := vectorstore.OpenBadger(filepath.Join(dir, "vectors"))
	require.NoError(t, err)
	defer store.Close()
	stats, err := store.Describe(context.Background())
	require.NoError(t, err)
	assert.Positive(t, stats.VectorCount)
	assert.Equal(t, 3, stats.Dimension)
}

func TestFAQUpload_RequiresFile(t *testing.T) {
	code, _, errOut := runCLI(t, "faq-upload")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "--file is required")
}

func TestPolicyCheck(t *testing.T) {
	offlineEnv(t)

	var out, errOut bytes.Buffer
	in := strings.NewReader(`{"amount": 80000, "type": "hospitalization", "condition": "Cosmetic surgery"}`)
	code := runPolicyCheck(nil, in, &out, &errOut)
	require.Equal(t, 0, code, errOut.String())

	var ev policy.Evaluation
	require.NoError(t, json.Unmarshal(out.Bytes(), &ev))
	assert.Equal(t, policy.VerdictDenied, ev.Decision)
	assert.NotEmpty(t, ev.Explanation)

	out.Reset()
	code = runPolicyCheck(nil, strings.NewReader("{broken"), &out, &errOut)
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "Invalid JSON input")
}
