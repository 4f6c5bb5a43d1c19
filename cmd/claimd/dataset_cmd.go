// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/Shansgupta/Bajaj-hackathon/internal/ingest"
)

// runConvertDataset rewrites a prompt/completion JSONL file into the chat
// format used for fine-tuning.
func runConvertDataset(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("claimd convert-dataset", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "", "input JSONL (prompt/completion)")
	out := fs.String("out", "", "output JSONL (chat messages)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*in) == "" || strings.TrimSpace(*out) == "" {
		fmt.Fprintln(stderr, "Error: --in and --out are required")
		return 2
	}

	n, err := ingest.ConvertDataset(context.Background(), *in, *out)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Converted %d examples to %s\n", n, *out)
	return 0
}
