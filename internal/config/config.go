// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package config

import "time"

// Config is the complete runtime configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Simulation SimulationConfig `koanf:"simulation"`
	Anomaly    AnomalyConfig    `koanf:"anomaly"`
	Threat     ThreatConfig     `koanf:"threat"`
	NATS       NATSConfig       `koanf:"nats"`
	Security   SecurityConfig   `koanf:"security"`
	Audit      AuditConfig      `koanf:"audit"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port    int           `koanf:"port"`
	Host    string        `koanf:"host"`
	Timeout time.Duration `koanf:"timeout"`
}

// SimulationConfig holds tick loop settings.
type SimulationConfig struct {
	TickInterval time.Duration `koanf:"tick_interval"`
}

// AnomalyConfig holds baseline collection and isolation forest settings.
type AnomalyConfig struct {
	MinBaselineSamples int     `koanf:"min_baseline_samples"`
	HistorySize        int     `koanf:"history_size"`
	Trees              int     `koanf:"trees"`
	SampleSize         int     `koanf:"sample_size"`
	Contamination      float64 `koanf:"contamination"`
	Seed               uint64  `koanf:"seed"`
}

// ThreatConfig holds risk scoring and correlation settings.
type ThreatConfig struct {
	AlertCooldown    time.Duration `koanf:"alert_cooldown"`
	ClusterRadiusM   float64       `koanf:"cluster_radius_m"`
	ScoreHistorySize int           `koanf:"score_history_size"`
}

// NATSConfig holds alert export settings.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	EmbeddedPort   int    `koanf:"embedded_port"`
	Subject        string `koanf:"subject"`
	QueueSize      int    `koanf:"queue_size"`

	// Circuit breaker around publishing.
	BreakerThreshold uint32        `koanf:"breaker_threshold"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout"`

	// Outbox records alerts in BadgerDB until NATS accepts them.
	Outbox OutboxConfig `koanf:"outbox"`
}

// OutboxConfig holds the durable alert outbox settings.
type OutboxConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Path          string        `koanf:"path"`
	SyncWrites    bool          `koanf:"sync_writes"`
	RetryInterval time.Duration `koanf:"retry_interval"`
	MaxRetries    int           `koanf:"max_retries"`
	EntryTTL      time.Duration `koanf:"entry_ttl"`
}

// SecurityConfig holds CORS and rate limiting settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// AuditConfig holds fleet activity journal settings.
type AuditConfig struct {
	Enabled bool `koanf:"enabled"`

	// MinSeverity is debug, info, warning or critical.
	MinSeverity     string        `koanf:"min_severity"`
	MaxEvents       int           `koanf:"max_events"`
	BufferSize      int           `koanf:"buffer_size"`
	Retention       time.Duration `koanf:"retention"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	LogToStdout     bool          `koanf:"log_to_stdout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}
