// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

// Package audit keeps a queryable journal of fleet activity: unit lifecycle
// changes made through the API and alerts fired by the threat correlator.
//
// # Event Types
//
//   - unit.registered, unit.telemetry, unit.status_changed, unit.removed
//   - alert.fired
//
// Telemetry events are recorded at debug severity and are therefore
// filtered out under the default minimum severity of info.
//
// # Architecture
//
//	Logger.Log() -> Event Buffer (chan) -> Async Writer -> Store
//	                     |                      |
//	                 Non-blocking           Background goroutine
//
// Log never blocks the caller. When the buffer is full the event is dropped
// and a warning is logged, so the simulation tick is never delayed by the
// journal.
//
// The Logger also implements the simulation broadcaster contract: placed in
// the engine fan-out, it journals every alert in a payload's Alerts field.
//
// # Storage
//
// MemoryStore keeps events in a fixed-size ring; once full, each new event
// evicts the oldest. RunCleanup additionally enforces a time-based retention
// window and is meant to run under the supervisor tree.
//
// # Usage
//
//	journal := audit.NewLogger(audit.NewMemoryStore(10000), audit.DefaultConfig())
//	defer journal.Close()
//
//	events, err := journal.Query(ctx, audit.QueryFilter{UnitID: "alpha-1", Limit: 50})
package audit
