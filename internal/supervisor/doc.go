// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

/*
Package supervisor runs Fleetwatch's long-lived services under suture v4.

	fleetwatch
	├── simulation-layer
	│   └── simulation-engine
	├── messaging-layer
	│   ├── websocket-hub
	│   ├── alert-exporter (NATS_ENABLED)
	│   ├── alert-outbox-retry (NATS_OUTBOX_ENABLED)
	│   └── journal-cleanup (AUDIT_ENABLED)
	└── api-layer
	    └── http-server

A service that returns or panics is restarted with backoff; repeated failures
in one layer never restart another. Supervisor events are logged through
sutureslog using the slog adapter from internal/logging.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddSimulationService(services.NewSimulationService(engine))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(srv, 10*time.Second))
	err = tree.Serve(ctx)
*/
package supervisor
