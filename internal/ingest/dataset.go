// SPDX-License-Identifier: MIT

package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Shansgupta/Bajaj-hackathon/internal/fsutil"
)

// DatasetSystemPrompt is the system message of converted training examples.
const DatasetSystemPrompt = "You are a health insurance claim decision assistant. Respond with a structured JSON object."

type promptCompletion struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

type chatExample struct {
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConvertDataset rewrites a prompt/completion JSONL file as chat-format
// JSONL. The output file is replaced atomically; it returns the number of
// examples written.
func ConvertDataset(ctx context.Context, inPath, outPath string) (int, error) {
	// #nosec G304 -- dataset paths come from the operator
	in, err := os.Open(inPath)
	if err != nil {
		return 0, fmt.Errorf("open dataset: %w", err)
	}
	defer in.Close()

	var examples []chatExample
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var pc promptCompletion
		if err := json.Unmarshal([]byte(raw), &pc); err != nil {
			return 0, fmt.Errorf("dataset line %d: %w", line, err)
		}
		examples = append(examples, chatExample{Messages: []chatMessage{
			{Role: "system", Content: DatasetSystemPrompt},
			{Role: "user", Content: pc.Prompt},
			{Role: "assistant", Content: strings.TrimSpace(pc.Completion)},
		}})
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("read dataset: %w", err)
	}

	err = fsutil.WriteAtomic(ctx, outPath, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		enc := json.NewEncoder(bw)
		enc.SetEscapeHTML(false)
		for _, ex := range examples {
			if err := enc.Encode(ex); err != nil {
				return err
			}
		}
		return bw.Flush()
	})
	if err != nil {
		return 0, err
	}
	return len(examples), nil
}
