// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package models

import "time"

// RuleType identifies the correlation rule that produced an alert.
type RuleType string

const (
	// RuleCoordinatedCluster fires when nearby units are anomalous together.
	RuleCoordinatedCluster RuleType = "coordinated_cluster"

	// RuleImmobileActive fires when an active unit stops moving.
	RuleImmobileActive RuleType = "immobile_active"

	// RuleHighRisk fires when a single unit's risk crosses the high threshold.
	RuleHighRisk RuleType = "high_risk"
)

// Severity is the four-band severity scale used for alerts and risk levels.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityElevated Severity = "elevated"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert is issued once by the threat correlator and never mutated.
type Alert struct {
	ID            string    `json:"alert_id"`
	Rule          RuleType  `json:"rule"`
	Severity      Severity  `json:"severity"`
	Message       string    `json:"message"`
	AffectedUnits []string  `json:"affected_units"`
	CreatedAt     time.Time `json:"created_at"`
}
