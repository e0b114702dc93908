// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

/*
Package services provides suture.Service wrappers for Fleetwatch components.

Each wrapper translates a component lifecycle into suture's Serve pattern and
names itself through fmt.Stringer so supervisor events are readable:

  - HTTPServerService: ListenAndServe plus graceful Shutdown on stop
  - NewSimulationService: the tick loop (simulation.Engine.RunWithContext)
  - NewWebSocketHubService: the websocket fan-out (websocket.Hub.RunWithContext)
  - NewAlertExportService: the NATS alert exporter queue (eventprocessor.AlertExporter.Run)
  - NewOutboxRetryService: redelivery of pending outbox alerts (wal.RetryLoop.Run)
  - NewJournalCleanupService: activity journal retention (audit.Logger.RunCleanup)
*/
package services
