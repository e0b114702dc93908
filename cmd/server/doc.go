// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

/*
Package main is the entry point for the Fleetwatch server.

Fleetwatch keeps an in-memory fleet of units, advances active units toward
their destinations once per tick, scores every unit's motion with an
isolation forest trained on the fleet's own baseline, and correlates the
scores into alerts. State and alerts are streamed to WebSocket clients and,
optionally, exported to NATS.

# Application Architecture

Suture v4 supervises three layers:

	RootSupervisor ("fleetwatch")
	├── SimulationSupervisor ("simulation-layer")
	│   └── Simulation engine (tick loop)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocket hub
	│   └── Alert exporter (optional, NATS_ENABLED=true)
	└── APISupervisor ("api-layer")
	    └── HTTP server

Component initialization order:

 1. Configuration: Koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog with JSON/console output
 3. Store, anomaly scorer and threat correlator
 4. WebSocket hub and optional NATS alert export (embedded server optional)
 5. Simulation engine, publishing to the hub and exporter
 6. Supervisor tree and HTTP server

# Configuration

Priority: environment variables > config file > defaults.

	HTTP_HOST=0.0.0.0
	HTTP_PORT=8000
	TICK_INTERVAL=1s
	ALERT_COOLDOWN=15s
	CLUSTER_RADIUS_M=2000
	ANOMALY_MIN_BASELINE=30
	NATS_ENABLED=false
	NATS_URL=nats://127.0.0.1:4222
	NATS_EMBEDDED=false
	NATS_SUBJECT=fleet.alerts
	CORS_ORIGINS=https://ops.example.com
	LOG_LEVEL=info
	LOG_FORMAT=json

# Signal Handling

SIGINT and SIGTERM cancel the root context. The supervisor stops the HTTP
server, the tick loop and the hub; the alert exporter and the embedded NATS
server are closed afterwards.
*/
package main
