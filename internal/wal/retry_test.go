// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package wal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingPublisher records published payload ids and fails while err is set.
type recordingPublisher struct {
	mu        sync.Mutex
	err       error
	published []string
}

func (p *recordingPublisher) PublishEntry(ctx context.Context, entry *Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	var a testAlert
	if err := entry.UnmarshalPayload(&a); err != nil {
		return err
	}
	p.published = append(p.published, a.ID)
	return nil
}

func newTestLoop(t *testing.T, pub Publisher) (*RetryLoop, *BadgerWAL, *time.Time) {
	t.Helper()
	w := openTestWAL(t)
	loop := NewRetryLoop(w, pub)
	now := time.Now()
	loop.now = func() time.Time { return now }
	return loop, w, &now
}

func TestRetryPendingPublishesAfterBackoff(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pub := &recordingPublisher{}
	loop, w, now := newTestLoop(t, pub)

	_, _ = w.Write(ctx, testAlert{ID: "a-1"})

	// Fresh entries belong to the live publisher.
	loop.RetryPending(ctx)
	if len(pub.published) != 0 {
		t.Fatalf("published fresh entry: %v", pub.published)
	}

	*now = now.Add(loop.config.RetryBackoff + time.Second)
	loop.RetryPending(ctx)
	if len(pub.published) != 1 || pub.published[0] != "a-1" {
		t.Fatalf("published = %v, want [a-1]", pub.published)
	}
	if stats := w.Stats(); stats.PendingCount != 0 || stats.ConfirmedCount != 1 {
		t.Errorf("Stats() = %+v, want entry confirmed", stats)
	}
}

func TestRetryPendingRecordsFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("no responders")}
	loop, w, now := newTestLoop(t, pub)

	_, _ = w.Write(ctx, testAlert{ID: "a-1"})
	*now = now.Add(time.Minute)

	loop.RetryPending(ctx)
	pending, _ := w.GetPending(ctx)
	if len(pending) != 1 || pending[0].Attempts != 1 || pending[0].LastError != "no responders" {
		t.Fatalf("pending after failure = %+v", pending)
	}
}

func TestRetryPendingDropsExhaustedEntries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("down")}
	loop, w, now := newTestLoop(t, pub)
	loop.config.MaxRetries = 1

	_, _ = w.Write(ctx, testAlert{ID: "a-1"})
	*now = now.Add(time.Minute)
	loop.RetryPending(ctx) // attempt 1 fails
	loop.RetryPending(ctx) // exhausted, dropped

	if pending, _ := w.GetPending(ctx); len(pending) != 0 {
		t.Errorf("pending = %+v, want exhausted entry dropped", pending)
	}
}

func TestRetryPendingDropsExpiredEntries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pub := &recordingPublisher{}
	loop, w, now := newTestLoop(t, pub)

	_, _ = w.Write(ctx, testAlert{ID: "a-1"})
	*now = now.Add(loop.config.EntryTTL + time.Minute)
	loop.RetryPending(ctx)

	if len(pub.published) != 0 {
		t.Errorf("expired entry was published: %v", pub.published)
	}
	if pending, _ := w.GetPending(ctx); len(pending) != 0 {
		t.Errorf("pending = %+v, want expired entry dropped", pending)
	}
}

func TestRetryPendingSkipsClaimedEntries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pub := &recordingPublisher{}
	loop, w, now := newTestLoop(t, pub)

	id, _ := w.Write(ctx, testAlert{ID: "a-1"})
	w.TryClaimEntry(id)
	*now = now.Add(time.Minute)

	loop.RetryPending(ctx)
	if len(pub.published) != 0 {
		t.Errorf("claimed entry was published: %v", pub.published)
	}
}

func TestCalculateBackoff(t *testing.T) {
	t.Parallel()
	loop := &RetryLoop{config: Config{RetryBackoff: time.Second}}

	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{4, 16 * time.Second},
		{9, maxBackoff},
		{1000, maxBackoff},
	}
	for _, tt := range tests {
		if got := loop.calculateBackoff(tt.attempts); got != tt.want {
			t.Errorf("calculateBackoff(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	loop, _, _ := newTestLoop(t, &recordingPublisher{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}
