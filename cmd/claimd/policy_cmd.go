// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Shansgupta/Bajaj-hackathon/internal/policy"
)

// runPolicyCheck evaluates one JSON claim against the medical policy rules
// without touching any remote service.
func runPolicyCheck(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs, configPath := commandFlags("claimd policy-check", stderr)
	file := fs.String("file", "-", "claim JSON file, - for stdin")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := resolveConfigPath(*configPath)
	cfg, err := loadConfig(path)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", displayPath(path), err)
		return 1
	}
	rules, err := policy.LoadRules(cfg.Policy.RulesFile)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: %v (using default rules)\n", err)
	}

	var raw []byte
	if *file == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(*file)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ev := policy.NewEngine(rules).Process(raw)
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ev); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if ev.Decision == policy.VerdictError {
		return 1
	}
	return 0
}
