// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

/*
Package eventprocessor exports threat alerts to NATS.

AlertExporter sits beside the websocket hub as a second simulation
Broadcaster. Each state payload carries the alerts fired on that tick; the
exporter queues them and a supervised goroutine publishes each one as a
watermill message (UUID = alert id, JSON payload, rule and severity
metadata) on the configured subject.

Publishing goes through a sony/gobreaker circuit breaker. After
FailureThreshold consecutive failures the breaker opens and alerts are
rejected without touching the broker until Timeout elapses. Every outcome is
counted in alert_exports_total{result}.

The transport is watermill-nats on core NATS with JetStream disabled.
For single-binary deployments an embedded nats-server can be started:

	srv, err := eventprocessor.NewEmbeddedServer(eventprocessor.DefaultServerConfig())
	pub, err := eventprocessor.NewNATSPublisher(
	    eventprocessor.DefaultPublisherConfig(srv.ClientURL()), nil)
	exporter, err := eventprocessor.NewAlertExporter(pub, eventprocessor.DefaultExporterConfig())
	tree.AddMessagingService(services.NewAlertExportService(exporter))
*/
package eventprocessor
