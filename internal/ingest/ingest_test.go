// SPDX-License-Identifier: MIT

package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shansgupta/Bajaj-hackathon/internal/vectorstore"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	write("b.txt", "Room rent is capped at 1% of sum insured.")
	write("a.md", "# Waiting period\n\n30 days for illness.")
	write("c.html", `<html><head><style>p{}</style><script>var x=1</script></head>
<body><h1>Exclusions</h1><p>Cosmetic   surgery</p><ul><li>HIV/AIDS</li></ul></body></html>`)
	write("d.docx", "binary")
	write("e.txt", "   ")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o700))

	docs, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, filepath.Join(dir, "a.md"), docs[0].Source)
	assert.Equal(t, "Room rent is capped at 1% of sum insured.", docs[1].Text)
	assert.Equal(t, "Exclusions\nCosmetic surgery\nHIV/AIDS", docs[2].Text)

	_, err = Load(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestSplitter(t *testing.T) {
	s := Splitter{ChunkSize: 20, Overlap: 5}

	assert.Equal(t, []string{"short text"}, s.Split("short text"))

	paragraphs := "alpha beta gamma\n\ndelta epsilon\n\nzeta eta theta iota"
	got := s.Split(paragraphs)
	assert.Equal(t, []string{"alpha beta gamma", "delta epsilon", "zeta eta theta iota"}, got)

	long := strings.Repeat("word ", 30)
	chunks := s.Split(long)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 20)
	}
	assert.True(t, strings.HasPrefix(chunks[1], "word"), "overlap keeps whole words")

	unbroken := strings.Repeat("x", 45)
	chunks = s.Split(unbroken)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 20)
	}
	assert.Equal(t, unbroken[:20], chunks[0])
}

func TestDefaultSplitter(t *testing.T) {
	text := strings.Repeat("Sentence about hospitalization cover. ", 100)
	for _, c := range DefaultSplitter().Split(text) {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 800)
	}
}

func TestParseFAQ(t *testing.T) {
	text := "Intro\nQ： What is the free look period?\nA： 30 days\nfrom receipt.\nQ: No answer here\nQ: Is AYUSH covered?A: Yes."
	got := ParseFAQ(text)
	assert.Equal(t, []FAQEntry{
		{Question: "What is the free look period?", Answer: "30 days from receipt."},
		{Question: "Is AYUSH covered?", Answer: "Yes."},
	}, got)
}

func TestParseFAQ_KeepsSourceText(t *testing.T) {
	got := ParseFAQ("Q： Is the ﬁrst OPD visit free？ A： Up to ５ visits… see clause ²")
	assert.Equal(t, []FAQEntry{
		{Question: "Is the ﬁrst OPD visit free？", Answer: "Up to ５ visits… see clause ²"},
	}, got)
}

func TestChunkAndFAQItems(t *testing.T) {
	long := strings.Repeat("é", 1200)
	items := ChunkItems([]string{"a", "", long})
	require.Len(t, items, 2)
	assert.Equal(t, 1000, utf8.RuneCountInString(items[1].Metadata["text"].(string)))
	assert.Equal(t, long, items[1].Text)

	faq := FAQItems([]FAQEntry{{Question: "Q1?", Answer: "A1"}})
	assert.Equal(t, "Q: Q1?\nA: A1", faq[0].Text)
	assert.Equal(t, FAQType, faq[0].Metadata["type"])
}

type lenEmbedder struct {
	mu    sync.Mutex
	fail  string
	calls int
}

func (e *lenEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if e.fail != "" && t == e.fail {
			return nil, errors.New("embedding failed")
		}
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func TestUploader(t *testing.T) {
	store := vectorstore.NewMemory("")
	emb := &lenEmbedder{fail: "bad"}
	u := &Uploader{Embedder: emb, Store: store, BatchSize: 2, Concurrency: 2}

	items := ChunkItems([]string{"one", "two", "three", "bad", "five"})
	sum, err := u.Upload(context.Background(), KindChunk, items)
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 5, Uploaded: 3, Failed: 2}, sum)
	assert.Equal(t, 3, emb.calls)

	stats, err := store.Describe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.VectorCount)
}

func TestConvertDataset(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.jsonl")
	out := filepath.Join(dir, "out.jsonl")
	require.NoError(t, os.WriteFile(in, []byte(
		`{"prompt": "46M knee surgery", "completion": " {\"decision\": \"approved\"}\n"}`+"\n\n"+
			`{"prompt": "p2", "completion": "c2"}`+"\n"), 0o600))

	n, err := ConvertDataset(context.Background(), in, out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"messages":[
		{"role":"system","content":"`+DatasetSystemPrompt+`"},
		{"role":"user","content":"46M knee surgery"},
		{"role":"assistant","content":"{\"decision\": \"approved\"}"}]}`, lines[0])

	require.NoError(t, os.WriteFile(in, []byte("not json\n"), 0o600))
	_, err = ConvertDataset(context.Background(), in, out)
	assert.ErrorContains(t, err, "dataset line 1")
}
