// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package wal

import (
	"fmt"
	"time"
)

// Config holds outbox settings.
type Config struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps entries in memory only. Entries do not survive a
	// restart; intended for tests and ephemeral deployments.
	InMemory bool

	// SyncWrites fsyncs every write before Write returns.
	SyncWrites bool

	// RetryInterval is how often pending entries are scanned.
	RetryInterval time.Duration

	// RetryBackoff is the base delay; attempt n waits RetryBackoff * 2^n.
	RetryBackoff time.Duration

	// MaxRetries drops an entry after this many failed attempts.
	MaxRetries int

	// EntryTTL drops pending entries older than this.
	EntryTTL time.Duration

	// ConfirmedRetention is how long confirmed entries stay before
	// compaction removes them.
	ConfirmedRetention time.Duration

	// CompactInterval is how often compaction runs.
	CompactInterval time.Duration

	// GCRatio is the BadgerDB value log GC discard ratio.
	GCRatio float64

	// CloseTimeout bounds Close.
	CloseTimeout time.Duration
}

// DefaultConfig returns defaults that favor durability.
func DefaultConfig() Config {
	return Config{
		Path:               "./data/outbox",
		SyncWrites:         true,
		RetryInterval:      10 * time.Second,
		RetryBackoff:       2 * time.Second,
		MaxRetries:         50,
		EntryTTL:           24 * time.Hour,
		ConfirmedRetention: time.Hour,
		CompactInterval:    10 * time.Minute,
		GCRatio:            0.5,
		CloseTimeout:       30 * time.Second,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if !c.InMemory && c.Path == "" {
		return &ConfigError{Field: "Path", Message: "is required unless InMemory is set"}
	}
	if c.RetryInterval <= 0 {
		return &ConfigError{Field: "RetryInterval", Message: "must be positive"}
	}
	if c.RetryBackoff <= 0 {
		return &ConfigError{Field: "RetryBackoff", Message: "must be positive"}
	}
	if c.MaxRetries < 1 {
		return &ConfigError{Field: "MaxRetries", Message: "must be at least 1"}
	}
	if c.EntryTTL <= 0 {
		return &ConfigError{Field: "EntryTTL", Message: "must be positive"}
	}
	if c.CompactInterval <= 0 {
		return &ConfigError{Field: "CompactInterval", Message: "must be positive"}
	}
	if c.GCRatio <= 0 || c.GCRatio >= 1 {
		return &ConfigError{Field: "GCRatio", Message: "must be between 0 and 1 exclusive"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("outbox config %s: %s", e.Field, e.Message)
}
