// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

/*
Package models defines the data structures shared by the Fleetwatch pipeline
and its transport layer.

Key Components:

  - Unit: authoritative runtime record of one simulated unit, owned by the store
  - PublicUnit: the view of a Unit that crosses the API and WebSocket boundary
  - Alert: an immutable alert issued by the threat correlator
  - StatePayload: the combined per-tick broadcast (units, alerts, model status)
  - APIResponse: standard HTTP response envelope

Internal feature vectors, history buffers and the outlier model never appear
in this package; they stay inside the anomaly and detection packages.
*/
package models
