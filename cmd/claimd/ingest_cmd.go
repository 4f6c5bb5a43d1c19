// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Shansgupta/Bajaj-hackathon/internal/daemon"
	"github.com/Shansgupta/Bajaj-hackathon/internal/ingest"
)

const (
	uploadBatchSize   = 32
	uploadConcurrency = 4
)

// withRuntime loads the configuration, builds the runtime and closes it
// once fn returns.
func withRuntime(configPath string, stderr io.Writer, fn func(ctx context.Context, rt *daemon.Runtime) int) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := resolveConfigPath(configPath)
	cfg, err := loadConfig(path)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", displayPath(path), err)
		return 1
	}
	rt, err := daemon.Build(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		if err := rt.Close(context.WithoutCancel(ctx)); err != nil {
			fmt.Fprintf(stderr, "Warning: %v\n", err)
		}
	}()
	return fn(ctx, rt)
}

// commandFlags registers --config for commands that need the runtime.
func commandFlags(name string, stderr io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs, fs.String("config", "", "path to config file (YAML)")
}

func uploader(rt *daemon.Runtime) *ingest.Uploader {
	return &ingest.Uploader{
		Embedder:    rt.Embedder,
		Store:       rt.Policies,
		BatchSize:   uploadBatchSize,
		Concurrency: uploadConcurrency,
	}
}

func printSummary(w io.Writer, kind string, s ingest.Summary) {
	fmt.Fprintf(w, "Upload complete: %d/%d %s sent (%d failed).\n", s.Uploaded, s.Total, kind, s.Failed)
}

// runIngest splits every supported document in a directory and uploads the
// chunks to the policy index.
func runIngest(args []string, stdout, stderr io.Writer) int {
	fs, configPath := commandFlags("claimd ingest", stderr)
	dir := fs.String("dir", "", "directory with policy documents (default: data dir)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	return withRuntime(*configPath, stderr, func(ctx context.Context, rt *daemon.Runtime) int {
		src := strings.TrimSpace(*dir)
		if src == "" {
			src = rt.Config.DataDir
		}
		docs, err := ingest.Load(src)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if len(docs) == 0 {
			fmt.Fprintf(stderr, "No supported documents found in %s\n", src)
			return 1
		}

		splitter := ingest.DefaultSplitter()
		var chunks []string
		for _, d := range docs {
			parts := splitter.Split(d.Text)
			fmt.Fprintf(stdout, "%s: %d chunks\n", d.Source, len(parts))
			chunks = append(chunks, parts...)
		}

		summary, err := uploader(rt).Upload(ctx, "document", ingest.ChunkItems(chunks))
		printSummary(stdout, "chunks", summary)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if summary.Failed > 0 {
			return 1
		}
		return 0
	})
}

// runFAQUpload extracts Q/A pairs from one document and uploads them.
func runFAQUpload(args []string, stdout, stderr io.Writer) int {
	fs, configPath := commandFlags("claimd faq-upload", stderr)
	src := fs.String("file", "", "FAQ document (.pdf, .txt, .md, .html)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*src) == "" {
		fmt.Fprintln(stderr, "Error: --file is required")
		return 2
	}

	return withRuntime(*configPath, stderr, func(ctx context.Context, rt *daemon.Runtime) int {
		text, err := ingest.LoadFile(*src)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		entries := ingest.ParseFAQ(text)
		if len(entries) == 0 {
			fmt.Fprintf(stderr, "No Q/A pairs found in %s\n", *src)
			return 1
		}
		fmt.Fprintf(stdout, "Found %d Q/A pairs in %s\n", len(entries), *src)

		summary, err := uploader(rt).Upload(ctx, "faq", ingest.FAQItems(entries))
		printSummary(stdout, "Q&A pairs", summary)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if summary.Failed > 0 {
			return 1
		}
		return 0
	})
}
