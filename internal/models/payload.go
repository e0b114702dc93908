// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package models

import "time"

// Payload event types.
const (
	EventStateUpdate = "state_update"
	EventStateInit   = "state_init"
)

// MLStatus reports the anomaly model phase.
type MLStatus struct {
	Trained bool `json:"trained"`
}

// StatePayload is the single message published per tick, and on demand when
// the unit table changes through the API or a client connects.
type StatePayload struct {
	Type         string       `json:"type"`
	Units        []PublicUnit `json:"units"`
	Timestamp    time.Time    `json:"timestamp"`
	Alerts       []Alert      `json:"alerts,omitempty"`
	ActiveAlerts []Alert      `json:"active_alerts,omitempty"`
	MLStatus     *MLStatus    `json:"ml_status,omitempty"`
}

// NewStatePayload builds a payload of the given type from a unit snapshot.
func NewStatePayload(eventType string, units []Unit, now time.Time) *StatePayload {
	return &StatePayload{
		Type:      eventType,
		Units:     PublicUnits(units),
		Timestamp: now.UTC(),
	}
}
