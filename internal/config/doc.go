// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

/*
Package config loads Fleetwatch configuration with koanf.

Sources, later ones overriding earlier ones:
  - built-in defaults (defaultConfig)
  - an optional YAML file: $CONFIG_PATH, ./config.yaml or /etc/fleetwatch/config.yaml
  - environment variables, mapped explicitly in envMappings

Environment variables:

	HTTP_HOST, HTTP_PORT (8000), SERVER_TIMEOUT (30s)
	TICK_INTERVAL (1s)
	ANOMALY_MIN_BASELINE (30), ANOMALY_HISTORY_SIZE (200), ANOMALY_TREES (100),
	ANOMALY_SAMPLE_SIZE (256), ANOMALY_CONTAMINATION (0.1), ANOMALY_SEED (42)
	ALERT_COOLDOWN (15s), CLUSTER_RADIUS_M (2000), SCORE_HISTORY_SIZE (30)
	NATS_ENABLED (false), NATS_URL, NATS_EMBEDDED, NATS_EMBEDDED_PORT, NATS_SUBJECT
	(fleet.alerts), NATS_QUEUE_SIZE, NATS_BREAKER_THRESHOLD, NATS_BREAKER_TIMEOUT
	NATS_OUTBOX_ENABLED (false), NATS_OUTBOX_PATH (./data/outbox), NATS_OUTBOX_SYNC,
	NATS_OUTBOX_RETRY (10s), NATS_OUTBOX_MAX_RETRY (50), NATS_OUTBOX_TTL (24h)
	CORS_ORIGINS (comma separated), RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
	AUDIT_ENABLED (true), AUDIT_MIN_SEVERITY (info), AUDIT_MAX_EVENTS (10000),
	AUDIT_BUFFER_SIZE, AUDIT_RETENTION (24h), AUDIT_CLEANUP_INTERVAL, AUDIT_LOG_TO_STDOUT
	LOG_LEVEL, LOG_FORMAT, LOG_CALLER

Example YAML:

	server:
	  port: 8000
	simulation:
	  tick_interval: 500ms
	threat:
	  alert_cooldown: 30s
	nats:
	  enabled: true
	  embedded_server: true
*/
package config
