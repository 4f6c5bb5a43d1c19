// SPDX-License-Identifier: MIT

package ingest

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Shansgupta/Bajaj-hackathon/internal/llm"
	xglog "github.com/Shansgupta/Bajaj-hackathon/internal/log"
	"github.com/Shansgupta/Bajaj-hackathon/internal/metrics"
	"github.com/Shansgupta/Bajaj-hackathon/internal/vectorstore"
)

// Item kinds, also metric labels.
const (
	KindChunk = "chunk"
	KindFAQ   = "faq"
)

// FAQType tags uploaded FAQ entries.
const FAQType = "bajaj_pdf_faq"

const maxMetadataText = 1000

// Item is one text to embed with the metadata stored next to it.
type Item struct {
	Text     string
	Metadata map[string]any
}

// ChunkItems wraps document chunks. Stored text is capped at 1000 characters.
func ChunkItems(chunks []string) []Item {
	out := make([]Item, 0, len(chunks))
	for _, c := range chunks {
		if c == "" {
			continue
		}
		r := []rune(c)
		out = append(out, Item{Text: c, Metadata: map[string]any{"text": string(r[:min(len(r), maxMetadataText)])}})
	}
	return out
}

// FAQItems embeds each pair as "Q: ...\nA: ...".
func FAQItems(entries []FAQEntry) []Item {
	out := make([]Item, 0, len(entries))
	for _, e := range entries {
		out = append(out, Item{
			Text: "Q: " + e.Question + "\nA: " + e.Answer,
			Metadata: map[string]any{
				"question": e.Question,
				"answer":   e.Answer,
				"type":     FAQType,
			},
		})
	}
	return out
}

// Summary reports an upload.
type Summary struct {
	Total    int `json:"total"`
	Uploaded int `json:"uploaded"`
	Failed   int `json:"failed"`
}

// Uploader embeds and upserts items in batches.
type Uploader struct {
	Embedder    llm.Embedder
	Store       vectorstore.Store
	BatchSize   int
	Concurrency int
}

// Upload sends every item. A failed batch is counted and logged; it does not
// stop the others. Only context cancellation is returned as an error.
func (u *Uploader) Upload(ctx context.Context, kind string, items []Item) (Summary, error) {
	batch := u.BatchSize
	if batch <= 0 {
		batch = 32
	}
	conc := u.Concurrency
	if conc <= 0 {
		conc = 4
	}
	logger := xglog.WithComponentFromContext(ctx, "ingest")

	var uploaded, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(conc)
	for start := 0; start < len(items); start += batch {
		chunk := items[start:min(start+batch, len(items))]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := u.send(gctx, chunk); err != nil {
				failed.Add(int64(len(chunk)))
				logger.Warn().
					Err(err).
					Str(xglog.FieldEvent, "ingest.batch_failed").
					Int("offset", start).
					Int("size", len(chunk)).
					Msg("batch upload failed")
				return nil
			}
			n := uploaded.Add(int64(len(chunk)))
			logger.Info().
				Str(xglog.FieldEvent, "ingest.batch_uploaded").
				Int64("uploaded", n).
				Int("total", len(items)).
				Msg("batch uploaded")
			return nil
		})
	}
	err := g.Wait()

	s := Summary{Total: len(items), Uploaded: int(uploaded.Load()), Failed: int(failed.Load())}
	metrics.RecordIngestedChunks(kind, s.Uploaded, s.Failed)
	logger.Info().
		Str(xglog.FieldEvent, "ingest.done").
		Str("kind", kind).
		Int("uploaded", s.Uploaded).
		Int("failed", s.Failed).
		Str(xglog.FieldBackend, u.Store.Name()).
		Msg("upload complete")
	return s, err
}

func (u *Uploader) send(ctx context.Context, items []Item) error {
	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = it.Text
	}
	vecs, err := u.Embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}
	out := make([]vectorstore.Vector, len(items))
	for i, it := range items {
		out[i] = vectorstore.Vector{ID: uuid.NewString(), Values: vecs[i], Metadata: it.Metadata}
	}
	return u.Store.Upsert(ctx, out)
}
