// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package models

import "time"

// APIResponse is the envelope returned by every HTTP endpoint.
//
//	{
//	  "status": "success",
//	  "data": {...},
//	  "metadata": {"timestamp": "2026-01-01T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is a machine-readable error with optional details.
//
// Codes in use: VALIDATION_ERROR, INVALID_JSON, NOT_FOUND, RATE_LIMIT_EXCEEDED.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is returned by the health endpoint.
type HealthStatus struct {
	Status       string `json:"status"`
	UnitCount    int    `json:"unit_count"`
	ModelTrained bool   `json:"model_trained"`
	Clients      int    `json:"websocket_clients"`
	Uptime       string `json:"uptime"`
}

// RegisterUnitRequest registers (or replaces) a unit. New units start idle.
type RegisterUnitRequest struct {
	UnitID       string   `json:"unit_id" validate:"required,min=3,max=64,unit_id"`
	Label        string   `json:"label,omitempty" validate:"max=128"`
	Position     Position `json:"position"`
	SpeedMPS     float64  `json:"speed_mps" validate:"gte=0"`
	DirectionDeg float64  `json:"direction_deg" validate:"gte=0,lte=360"`
}

// TelemetryUpdateRequest applies a partial update; nil fields are left alone.
type TelemetryUpdateRequest struct {
	UnitID       string      `json:"unit_id" validate:"required,min=3,max=64,unit_id"`
	Position     *Position   `json:"position,omitempty"`
	SpeedMPS     *float64    `json:"speed_mps,omitempty" validate:"omitempty,gte=0"`
	DirectionDeg *float64    `json:"direction_deg,omitempty" validate:"omitempty,gte=0,lte=360"`
	Status       *UnitStatus `json:"status,omitempty" validate:"omitempty,oneof=idle active paused offline"`
	Destination  *Position   `json:"destination,omitempty"`
}

// StatusUpdateRequest changes only the lifecycle status.
type StatusUpdateRequest struct {
	Status UnitStatus `json:"status" validate:"required,oneof=idle active paused offline"`
}
