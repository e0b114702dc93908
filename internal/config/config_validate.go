// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/fleetwatch/internal/logging"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateSimulation,
		c.validateAnomaly,
		c.validateThreat,
		c.validateNATS,
		c.validateSecurity,
		c.validateAudit,
		c.validateLogging,
	}

	for _, validator := range validators {
		if err := validator(); err != nil {
			return err
		}
	}
	return nil
}

const (
	minTickInterval = 10 * time.Millisecond
	maxTickInterval = time.Minute
)

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("SERVER_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateSimulation() error {
	if c.Simulation.TickInterval < minTickInterval || c.Simulation.TickInterval > maxTickInterval {
		return fmt.Errorf("TICK_INTERVAL must be between 10ms and 1m")
	}
	return nil
}

// validateAnomaly validates the baseline and forest settings
func (c *Config) validateAnomaly() error {
	a := c.Anomaly
	if a.MinBaselineSamples < 2 {
		return fmt.Errorf("ANOMALY_MIN_BASELINE must be at least 2")
	}
	if a.HistorySize < 2 {
		return fmt.Errorf("ANOMALY_HISTORY_SIZE must be at least 2")
	}
	if a.Trees < 1 {
		return fmt.Errorf("ANOMALY_TREES must be at least 1")
	}
	if a.SampleSize < 2 {
		return fmt.Errorf("ANOMALY_SAMPLE_SIZE must be at least 2")
	}
	if a.Contamination <= 0 || a.Contamination > 0.5 {
		return fmt.Errorf("ANOMALY_CONTAMINATION must be in (0, 0.5]")
	}
	return nil
}

func (c *Config) validateThreat() error {
	if c.Threat.AlertCooldown < 0 {
		return fmt.Errorf("ALERT_COOLDOWN must not be negative")
	}
	if c.Threat.ClusterRadiusM <= 0 {
		return fmt.Errorf("CLUSTER_RADIUS_M must be positive")
	}
	if c.Threat.ScoreHistorySize < 1 {
		return fmt.Errorf("SCORE_HISTORY_SIZE must be at least 1")
	}
	return nil
}

// validateNATS validates NATS configuration (only if enabled)
func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}

	if !c.NATS.EmbeddedServer {
		if err := validateNATSURL(c.NATS.URL); err != nil {
			return fmt.Errorf("NATS_URL is invalid: %w", err)
		}
	} else if c.NATS.EmbeddedPort < -1 || c.NATS.EmbeddedPort > 65535 {
		return fmt.Errorf("NATS_EMBEDDED_PORT must be -1 (random) or between 0 and 65535")
	}

	if c.NATS.Subject == "" {
		return fmt.Errorf("NATS_SUBJECT is required when NATS_ENABLED=true")
	}
	if c.NATS.QueueSize < 1 {
		return fmt.Errorf("NATS_QUEUE_SIZE must be at least 1")
	}
	if c.NATS.BreakerThreshold < 1 {
		return fmt.Errorf("NATS_BREAKER_THRESHOLD must be at least 1")
	}
	return c.validateOutbox()
}

func (c *Config) validateOutbox() error {
	o := &c.NATS.Outbox
	if !o.Enabled {
		return nil
	}
	if o.Path == "" {
		return fmt.Errorf("NATS_OUTBOX_PATH is required when NATS_OUTBOX_ENABLED=true")
	}
	if o.RetryInterval < time.Second {
		return fmt.Errorf("NATS_OUTBOX_RETRY must be at least 1s")
	}
	if o.MaxRetries < 1 {
		return fmt.Errorf("NATS_OUTBOX_MAX_RETRY must be at least 1")
	}
	if o.EntryTTL < time.Minute {
		return fmt.Errorf("NATS_OUTBOX_TTL must be at least 1m")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

var validAuditSeverities = map[string]bool{"debug": true, "info": true, "warning": true, "critical": true}

func (c *Config) validateAudit() error {
	if !c.Audit.Enabled {
		return nil
	}
	if !validAuditSeverities[c.Audit.MinSeverity] {
		return fmt.Errorf("AUDIT_MIN_SEVERITY must be debug, info, warning or critical, got %q", c.Audit.MinSeverity)
	}
	if c.Audit.MaxEvents < 1 {
		return fmt.Errorf("AUDIT_MAX_EVENTS must be at least 1")
	}
	if c.Audit.BufferSize < 1 {
		return fmt.Errorf("AUDIT_BUFFER_SIZE must be at least 1")
	}
	if c.Audit.Retention < 0 {
		return fmt.Errorf("AUDIT_RETENTION must not be negative")
	}
	if c.Audit.Retention > 0 && c.Audit.CleanupInterval <= 0 {
		return fmt.Errorf("AUDIT_CLEANUP_INTERVAL must be positive when AUDIT_RETENTION is set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
