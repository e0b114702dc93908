// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package wal

import (
	"context"
	"math"
	"time"

	"github.com/tomtom215/fleetwatch/internal/logging"
	"github.com/tomtom215/fleetwatch/internal/metrics"
)

// Publisher delivers a pending entry to its destination.
type Publisher interface {
	PublishEntry(ctx context.Context, entry *Entry) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, entry *Entry) error

// PublishEntry implements Publisher.
func (f PublisherFunc) PublishEntry(ctx context.Context, entry *Entry) error {
	return f(ctx, entry)
}

// maxBackoff caps the exponential retry delay.
const maxBackoff = 5 * time.Minute

type retryResult int

const (
	retryResultSuccess retryResult = iota
	retryResultFailed
	retryResultExpired
	retryResultMaxRetried
	retryResultSkipped
)

// RetryLoop re-publishes pending entries and compacts confirmed ones.
type RetryLoop struct {
	wal       *BadgerWAL
	publisher Publisher
	config    Config
	now       func() time.Time
}

// NewRetryLoop creates a retry loop over w.
func NewRetryLoop(w *BadgerWAL, publisher Publisher) *RetryLoop {
	return &RetryLoop{
		wal:       w,
		publisher: publisher,
		config:    w.config,
		now:       time.Now,
	}
}

// Run retries pending entries every RetryInterval and compacts every
// CompactInterval until ctx ends. Entries left over from a previous run are
// retried on the first pass.
func (r *RetryLoop) Run(ctx context.Context) error {
	logging.Info().
		Dur("interval", r.config.RetryInterval).
		Int("max_retries", r.config.MaxRetries).
		Msg("Outbox retry loop started")

	r.RetryPending(ctx)

	retryTicker := time.NewTicker(r.config.RetryInterval)
	defer retryTicker.Stop()
	compactTicker := time.NewTicker(r.config.CompactInterval)
	defer compactTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Outbox retry loop stopped")
			return ctx.Err()
		case <-retryTicker.C:
			r.RetryPending(ctx)
		case <-compactTicker.C:
			if _, err := r.wal.Compact(ctx, r.now().Add(-r.config.ConfirmedRetention)); err != nil {
				logging.Warn().Err(err).Msg("Outbox compaction failed")
			}
		}
	}
}

// RetryPending makes one pass over the pending entries.
func (r *RetryLoop) RetryPending(ctx context.Context) {
	entries, err := r.wal.GetPending(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Outbox retry: failed to get pending entries")
		return
	}
	defer r.wal.Stats()

	if len(entries) == 0 {
		return
	}

	var success, failed, expired, maxRetried int
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}

		switch r.processEntry(ctx, entry) {
		case retryResultSuccess:
			success++
		case retryResultFailed:
			failed++
		case retryResultExpired:
			expired++
		case retryResultMaxRetried:
			maxRetried++
		}
	}

	if success > 0 || failed > 0 || expired > 0 || maxRetried > 0 {
		logging.Info().
			Int("succeeded", success).
			Int("failed", failed).
			Int("expired", expired).
			Int("max_retried", maxRetried).
			Msg("Outbox retry complete")
	}
}

func (r *RetryLoop) processEntry(ctx context.Context, entry *Entry) retryResult {
	if !r.wal.TryClaimEntry(entry.ID) {
		return retryResultSkipped
	}
	defer r.wal.ReleaseEntry(entry.ID)

	now := r.now()
	if now.Sub(entry.CreatedAt) > r.config.EntryTTL {
		r.drop(ctx, entry, "expired")
		metrics.RecordOutboxOp(metrics.OutboxExpired)
		return retryResultExpired
	}
	if entry.Attempts >= r.config.MaxRetries {
		r.drop(ctx, entry, "max retries exceeded")
		metrics.RecordOutboxOp(metrics.OutboxDropped)
		return retryResultMaxRetried
	}
	if !r.isReadyForRetry(entry, now) {
		return retryResultSkipped
	}

	pubCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := r.publisher.PublishEntry(pubCtx, entry)
	cancel()
	metrics.RecordOutboxOp(metrics.OutboxRetry)

	if err != nil {
		logging.Warn().Err(err).
			Str("entry_id", entry.ID).
			Int("attempt", entry.Attempts+1).
			Msg("Outbox retry: publish failed")
		if updateErr := r.wal.UpdateAttempt(ctx, entry.ID, err.Error()); updateErr != nil {
			logging.Error().Err(updateErr).Str("entry_id", entry.ID).Msg("Outbox retry: failed to record attempt")
		}
		return retryResultFailed
	}

	if err := r.wal.Confirm(ctx, entry.ID); err != nil {
		logging.Error().Err(err).Str("entry_id", entry.ID).Msg("Outbox retry: failed to confirm entry")
		return retryResultFailed
	}
	return retryResultSuccess
}

func (r *RetryLoop) drop(ctx context.Context, entry *Entry, reason string) {
	logging.Warn().
		Str("entry_id", entry.ID).
		Int("attempts", entry.Attempts).
		Str("reason", reason).
		Msg("Outbox retry: dropping entry")
	if err := r.wal.DeleteEntry(ctx, entry.ID); err != nil {
		logging.Error().Err(err).Str("entry_id", entry.ID).Msg("Outbox retry: failed to delete entry")
	}
}

// isReadyForRetry reports whether the backoff since the last attempt (or
// since creation, for entries never attempted) has elapsed. Measuring fresh
// entries from creation keeps the loop off entries the live publisher is
// still handling.
func (r *RetryLoop) isReadyForRetry(entry *Entry, now time.Time) bool {
	last := entry.LastAttemptAt
	if last.IsZero() {
		last = entry.CreatedAt
	}
	return now.Sub(last) >= r.calculateBackoff(entry.Attempts)
}

// calculateBackoff returns base * 2^attempts, capped at maxBackoff.
func (r *RetryLoop) calculateBackoff(attempts int) time.Duration {
	if attempts > 30 {
		return maxBackoff
	}
	backoff := time.Duration(float64(r.config.RetryBackoff) * math.Pow(2, float64(attempts)))
	if backoff <= 0 || backoff > maxBackoff {
		return maxBackoff
	}
	return backoff
}
