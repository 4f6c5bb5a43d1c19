// SPDX-License-Identifier: MIT

//go:build windows

package fsutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	xglog "github.com/Shansgupta/Bajaj-hackathon/internal/log"
)

// WriteAtomic writes through a temp file and renames it over path.
// Windows has no durable atomic rename, so this is best effort.
func WriteAtomic(ctx context.Context, path string, fill func(io.Writer) error) error {
	logger := xglog.FromContext(ctx)

	tmp, err := os.CreateTemp(filepath.Dir(path), ".claimd-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := fill(tmp); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmp = nil

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	logger.Debug().Str("path", path).Msg("wrote file")
	return nil
}
