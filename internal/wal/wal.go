// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package wal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/fleetwatch/internal/logging"
	"github.com/tomtom215/fleetwatch/internal/metrics"
)

// Entry is one recorded event and its delivery state.
type Entry struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`

	CreatedAt     time.Time  `json:"created_at"`
	Attempts      int        `json:"attempts"`
	LastAttemptAt time.Time  `json:"last_attempt_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	Confirmed     bool       `json:"confirmed"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
}

// UnmarshalPayload decodes the payload into v.
func (e *Entry) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// Stats is a point-in-time view of the outbox.
type Stats struct {
	PendingCount   int64
	ConfirmedCount int64
	DBSizeBytes    int64
}

const (
	prefixPending   = "pending:"
	prefixConfirmed = "confirmed:"
)

// BadgerWAL records events in BadgerDB before they are published and keeps
// them until the publish is confirmed.
//
// Pending entries may be picked up by both the live publisher and the
// retry loop. TryClaimEntry arbitrates between them within one process.
type BadgerWAL struct {
	db     *badger.DB
	config Config

	mu     sync.RWMutex
	closed bool

	// entry ID -> claim time
	processing sync.Map
}

// Open opens (or creates) the outbox described by cfg.
func Open(cfg *Config) (*BadgerWAL, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Alert outbox opened")
	return &BadgerWAL{db: db, config: *cfg}, nil
}

func (w *BadgerWAL) checkOpen() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWALClosed
	}
	return nil
}

// Write records event as a pending entry and returns its ID.
func (w *BadgerWAL) Write(ctx context.Context, event interface{}) (string, error) {
	if err := w.checkOpen(); err != nil {
		return "", err
	}
	if event == nil {
		return "", ErrNilEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	entry := &Entry{
		ID:        uuid.NewString(),
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("marshal entry: %w", err)
	}

	err = w.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(prefixPending+entry.ID), data)
		if w.config.EntryTTL > 0 {
			// Backstop for entries the retry loop never reaches.
			e = e.WithTTL(2 * w.config.EntryTTL)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return "", fmt.Errorf("write to BadgerDB: %w", err)
	}

	metrics.RecordOutboxOp(metrics.OutboxWrite)
	return entry.ID, nil
}

// Confirm moves an entry from pending to confirmed.
func (w *BadgerWAL) Confirm(ctx context.Context, entryID string) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	if entryID == "" {
		return ErrEmptyEntryID
	}

	err := w.db.Update(func(txn *badger.Txn) error {
		pendingKey := []byte(prefixPending + entryID)
		entry, err := getEntry(txn, pendingKey)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		entry.Confirmed = true
		entry.ConfirmedAt = &now

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal confirmed entry: %w", err)
		}
		if err := txn.Set([]byte(prefixConfirmed+entryID), data); err != nil {
			return fmt.Errorf("set confirmed entry: %w", err)
		}
		return txn.Delete(pendingKey)
	})
	if err != nil {
		return err
	}

	metrics.RecordOutboxOp(metrics.OutboxConfirm)
	return nil
}

// UpdateAttempt records a failed publish attempt.
func (w *BadgerWAL) UpdateAttempt(ctx context.Context, entryID, lastError string) error {
	if err := w.checkOpen(); err != nil {
		return err
	}

	return w.db.Update(func(txn *badger.Txn) error {
		key := []byte(prefixPending + entryID)
		entry, err := getEntry(txn, key)
		if err != nil {
			return err
		}

		entry.Attempts++
		entry.LastAttemptAt = time.Now().UTC()
		entry.LastError = lastError

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		return txn.Set(key, data)
	})
}

// DeleteEntry removes an entry in either state.
func (w *BadgerWAL) DeleteEntry(ctx context.Context, entryID string) error {
	if err := w.checkOpen(); err != nil {
		return err
	}

	return w.db.Update(func(txn *badger.Txn) error {
		for _, prefix := range []string{prefixPending, prefixConfirmed} {
			key := []byte(prefix + entryID)
			if _, err := txn.Get(key); err == nil {
				return txn.Delete(key)
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("get entry: %w", err)
			}
		}
		return ErrEntryNotFound
	})
}

// GetPending returns every unconfirmed entry from a consistent snapshot,
// ordered by key.
func (w *BadgerWAL) GetPending(ctx context.Context) ([]*Entry, error) {
	if err := w.checkOpen(); err != nil {
		return nil, err
	}

	var entries []*Entry
	err := w.scan(ctx, prefixPending, func(entry *Entry) {
		entries = append(entries, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("iterate pending entries: %w", err)
	}
	return entries, nil
}

// scan decodes every entry under prefix. Malformed entries are logged and
// skipped.
func (w *BadgerWAL) scan(ctx context.Context, prefix string, fn func(*Entry)) error {
	return w.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			var entry Entry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				logging.Warn().Err(err).Str("key", string(item.Key())).Msg("Outbox skipped malformed entry")
				continue
			}
			fn(&entry)
		}
		return nil
	})
}

// Stats counts entries by state.
func (w *BadgerWAL) Stats() Stats {
	if w.checkOpen() != nil {
		return Stats{}
	}

	var stats Stats
	if err := w.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for _, c := range []struct {
			prefix []byte
			count  *int64
		}{
			{[]byte(prefixPending), &stats.PendingCount},
			{[]byte(prefixConfirmed), &stats.ConfirmedCount},
		} {
			for it.Seek(c.prefix); it.ValidForPrefix(c.prefix); it.Next() {
				*c.count++
			}
		}
		return nil
	}); err != nil {
		logging.Warn().Err(err).Msg("Outbox stats failed to count entries")
	}

	lsm, vlog := w.db.Size()
	stats.DBSizeBytes = lsm + vlog

	metrics.SetOutboxPending(stats.PendingCount)
	return stats
}

// TryClaimEntry claims an entry for processing in this process. The caller
// must call ReleaseEntry when the claim returns true.
func (w *BadgerWAL) TryClaimEntry(entryID string) bool {
	_, alreadyClaimed := w.processing.LoadOrStore(entryID, time.Now())
	return !alreadyClaimed
}

// ReleaseEntry releases a claim taken with TryClaimEntry.
func (w *BadgerWAL) ReleaseEntry(entryID string) {
	w.processing.Delete(entryID)
}

// Close closes the database, giving up after CloseTimeout. Idempotent.
func (w *BadgerWAL) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	timeout := w.config.CloseTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	w.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- w.db.Close() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		logging.Info().Msg("Alert outbox closed")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("close BadgerDB: timed out after %v", timeout)
	}
}

func getEntry(txn *badger.Txn, key []byte) (*Entry, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}

	var entry Entry
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entry)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal entry: %w", err)
	}
	return &entry, nil
}

var (
	// ErrWALClosed is returned after Close.
	ErrWALClosed = errors.New("outbox is closed")

	// ErrNilEvent is returned when Write is given nil.
	ErrNilEvent = errors.New("event cannot be nil")

	// ErrEmptyEntryID is returned for an empty entry ID.
	ErrEmptyEntryID = errors.New("entry ID cannot be empty")

	// ErrEntryNotFound is returned when an entry does not exist.
	ErrEntryNotFound = errors.New("entry not found")
)
