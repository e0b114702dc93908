// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package wal

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testAlert struct {
	ID   string `json:"alert_id"`
	Rule string `json:"rule"`
}

func openTestWAL(t *testing.T) *BadgerWAL {
	t.Helper()
	cfg := DefaultConfig()
	cfg.InMemory = true
	cfg.SyncWrites = false
	w, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestWriteConfirmLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := openTestWAL(t)

	id, err := w.Write(ctx, testAlert{ID: "a-1", Rule: "high_risk"})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	pending, err := w.GetPending(ctx)
	if err != nil {
		t.Fatalf("GetPending() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id {
		t.Fatalf("pending = %+v, want one entry %s", pending, id)
	}

	var got testAlert
	if err := pending[0].UnmarshalPayload(&got); err != nil {
		t.Fatalf("UnmarshalPayload() error = %v", err)
	}
	if got.ID != "a-1" || got.Rule != "high_risk" {
		t.Errorf("payload = %+v", got)
	}

	if err := w.Confirm(ctx, id); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	stats := w.Stats()
	if stats.PendingCount != 0 || stats.ConfirmedCount != 1 {
		t.Errorf("Stats() = %+v, want 0 pending and 1 confirmed", stats)
	}

	if err := w.Confirm(ctx, id); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("second Confirm() error = %v, want ErrEntryNotFound", err)
	}
}

func TestWriteErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := openTestWAL(t)

	if _, err := w.Write(ctx, nil); !errors.Is(err, ErrNilEvent) {
		t.Errorf("Write(nil) error = %v, want ErrNilEvent", err)
	}
	if err := w.Confirm(ctx, ""); !errors.Is(err, ErrEmptyEntryID) {
		t.Errorf("Confirm(\"\") error = %v, want ErrEmptyEntryID", err)
	}
	if err := w.DeleteEntry(ctx, "missing"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("DeleteEntry(missing) error = %v, want ErrEntryNotFound", err)
	}

	_ = w.Close()
	if _, err := w.Write(ctx, testAlert{}); !errors.Is(err, ErrWALClosed) {
		t.Errorf("Write after Close error = %v, want ErrWALClosed", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestUpdateAttempt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := openTestWAL(t)

	id, _ := w.Write(ctx, testAlert{ID: "a-2"})
	if err := w.UpdateAttempt(ctx, id, "connection refused"); err != nil {
		t.Fatalf("UpdateAttempt() error = %v", err)
	}

	pending, _ := w.GetPending(ctx)
	if pending[0].Attempts != 1 || pending[0].LastError != "connection refused" || pending[0].LastAttemptAt.IsZero() {
		t.Errorf("entry after attempt = %+v", pending[0])
	}
}

func TestClaims(t *testing.T) {
	t.Parallel()
	w := openTestWAL(t)

	if !w.TryClaimEntry("x") {
		t.Fatal("first claim should succeed")
	}
	if w.TryClaimEntry("x") {
		t.Error("second claim should fail while held")
	}
	w.ReleaseEntry("x")
	if !w.TryClaimEntry("x") {
		t.Error("claim after release should succeed")
	}
}

func TestCompact(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := openTestWAL(t)

	confirmed, _ := w.Write(ctx, testAlert{ID: "old"})
	_ = w.Confirm(ctx, confirmed)
	stillPending, _ := w.Write(ctx, testAlert{ID: "pending"})

	// A cutoff in the past keeps everything.
	removed, err := w.Compact(ctx, time.Now().Add(-time.Hour))
	if err != nil || removed != 0 {
		t.Fatalf("Compact(past) = %d, %v; want 0, nil", removed, err)
	}

	removed, err = w.Compact(ctx, time.Now().Add(time.Second))
	if err != nil || removed != 1 {
		t.Fatalf("Compact(future) = %d, %v; want 1, nil", removed, err)
	}

	pending, _ := w.GetPending(ctx)
	if len(pending) != 1 || pending[0].ID != stillPending {
		t.Errorf("compaction touched pending entries: %+v", pending)
	}
	if stats := w.Stats(); stats.ConfirmedCount != 0 {
		t.Errorf("ConfirmedCount = %d, want 0", stats.ConfirmedCount)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"no path", func(c *Config) { c.Path = "" }, true},
		{"no path in memory", func(c *Config) { c.Path = ""; c.InMemory = true }, false},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }, true},
		{"zero interval", func(c *Config) { c.RetryInterval = 0 }, true},
		{"gc ratio one", func(c *Config) { c.GCRatio = 1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			var cfgErr *ConfigError
			if err != nil && !errors.As(err, &cfgErr) {
				t.Errorf("error %T is not a *ConfigError", err)
			}
		})
	}
}
