// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/fleetwatch/config.yaml",
	"/etc/fleetwatch/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults, applied before the config
// file and environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    8000,
			Host:    "0.0.0.0",
			Timeout: 30 * time.Second,
		},
		Simulation: SimulationConfig{
			TickInterval: time.Second,
		},
		Anomaly: AnomalyConfig{
			MinBaselineSamples: 30,
			HistorySize:        200,
			Trees:              100,
			SampleSize:         256,
			Contamination:      0.1,
			Seed:               42,
		},
		Threat: ThreatConfig{
			AlertCooldown:    15 * time.Second,
			ClusterRadiusM:   2000,
			ScoreHistorySize: 30,
		},
		NATS: NATSConfig{
			Enabled:          false,
			URL:              "nats://127.0.0.1:4222",
			EmbeddedServer:   false,
			EmbeddedPort:     4222,
			Subject:          "fleet.alerts",
			QueueSize:        256,
			BreakerThreshold: 5,
			BreakerTimeout:   10 * time.Second,
			Outbox: OutboxConfig{
				Enabled:       false,
				Path:          "./data/outbox",
				SyncWrites:    true,
				RetryInterval: 10 * time.Second,
				MaxRetries:    50,
				EntryTTL:      24 * time.Hour,
			},
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Audit: AuditConfig{
			Enabled:         true,
			MinSeverity:     "info",
			MaxEvents:       10000,
			BufferSize:      1000,
			Retention:       24 * time.Hour,
			CleanupInterval: 10 * time.Minute,
			LogToStdout:     false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration from three layers, later ones winning:
//  1. built-in defaults
//  2. an optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. mapped environment variables
//
// The result is validated before it is returned.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set via env.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated env values into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to config paths.
var envMappings = map[string]string{
	// Server
	"http_host":      "server.host",
	"http_port":      "server.port",
	"server_timeout": "server.timeout",

	// Simulation
	"tick_interval": "simulation.tick_interval",

	// Anomaly detection
	"anomaly_min_baseline":  "anomaly.min_baseline_samples",
	"anomaly_history_size":  "anomaly.history_size",
	"anomaly_trees":         "anomaly.trees",
	"anomaly_sample_size":   "anomaly.sample_size",
	"anomaly_contamination": "anomaly.contamination",
	"anomaly_seed":          "anomaly.seed",

	// Threat correlation
	"alert_cooldown":     "threat.alert_cooldown",
	"cluster_radius_m":   "threat.cluster_radius_m",
	"score_history_size": "threat.score_history_size",

	// NATS alert export
	"nats_enabled":           "nats.enabled",
	"nats_url":               "nats.url",
	"nats_embedded":          "nats.embedded_server",
	"nats_embedded_port":     "nats.embedded_port",
	"nats_subject":           "nats.subject",
	"nats_queue_size":        "nats.queue_size",
	"nats_breaker_threshold": "nats.breaker_threshold",
	"nats_breaker_timeout":   "nats.breaker_timeout",
	"nats_outbox_enabled":    "nats.outbox.enabled",
	"nats_outbox_path":       "nats.outbox.path",
	"nats_outbox_sync":       "nats.outbox.sync_writes",
	"nats_outbox_retry":      "nats.outbox.retry_interval",
	"nats_outbox_max_retry":  "nats.outbox.max_retries",
	"nats_outbox_ttl":        "nats.outbox.entry_ttl",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Activity journal
	"audit_enabled":          "audit.enabled",
	"audit_min_severity":     "audit.min_severity",
	"audit_max_events":       "audit.max_events",
	"audit_buffer_size":      "audit.buffer_size",
	"audit_retention":        "audit.retention",
	"audit_cleanup_interval": "audit.cleanup_interval",
	"audit_log_to_stdout":    "audit.log_to_stdout",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its config path.
// Unmapped variables return "" and are ignored.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - ALERT_COOLDOWN -> threat.alert_cooldown
//   - NATS_ENABLED -> nats.enabled
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
