// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package wal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/fleetwatch/internal/logging"
)

// Compact deletes confirmed entries confirmed before cutoff and then runs
// value log GC. It returns the number of entries removed.
func (w *BadgerWAL) Compact(ctx context.Context, cutoff time.Time) (int, error) {
	if err := w.checkOpen(); err != nil {
		return 0, err
	}

	var keys [][]byte
	err := w.scan(ctx, prefixConfirmed, func(entry *Entry) {
		if entry.ConfirmedAt != nil && entry.ConfirmedAt.Before(cutoff) {
			keys = append(keys, []byte(prefixConfirmed+entry.ID))
		}
	})
	if err != nil {
		return 0, fmt.Errorf("scan confirmed entries: %w", err)
	}

	if len(keys) > 0 {
		wb := w.db.NewWriteBatch()
		defer wb.Cancel()
		for _, key := range keys {
			if err := wb.Delete(key); err != nil {
				return 0, fmt.Errorf("delete confirmed entry: %w", err)
			}
		}
		if err := wb.Flush(); err != nil {
			return 0, fmt.Errorf("flush deletes: %w", err)
		}
		logging.Debug().Int("removed", len(keys)).Msg("Outbox compacted")
	}

	if err := w.runGC(); err != nil {
		return len(keys), err
	}
	return len(keys), nil
}

// runGC reclaims value log space until BadgerDB reports nothing to rewrite.
func (w *BadgerWAL) runGC() error {
	if w.config.InMemory {
		return nil
	}
	for {
		err := w.db.RunValueLogGC(w.config.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run value log GC: %w", err)
		}
	}
}
