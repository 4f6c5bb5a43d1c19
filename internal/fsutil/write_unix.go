// SPDX-License-Identifier: MIT

//go:build !windows

// Package fsutil writes files atomically.
package fsutil

import (
	"context"
	"fmt"
	"io"

	"github.com/google/renameio/v2"

	xglog "github.com/Shansgupta/Bajaj-hackathon/internal/log"
)

// WriteAtomic writes path through fill. The file appears only once fill
// succeeded and the data is synced; readers never see a partial file.
func WriteAtomic(ctx context.Context, path string, fill func(io.Writer) error) error {
	logger := xglog.FromContext(ctx)

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Str("path", path).Msg("cleanup pending file")
		}
	}()

	if err := fill(pending); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}
	return nil
}
