// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package detection

import (
	"strings"
	"time"

	"github.com/tomtom215/fleetwatch/internal/models"
)

// Risk bands and rule thresholds.
const (
	// LowThreshold separates low from elevated and marks a historical
	// anomaly score as contributing to persistence.
	LowThreshold = 0.3

	// ElevatedThreshold is the anomaly score above which a unit can join a
	// coordinated cluster.
	ElevatedThreshold = 0.55

	// HighThreshold is the risk above which a high-risk alert fires.
	HighThreshold = 0.75

	// CriticalThreshold upgrades a high-risk alert to critical.
	CriticalThreshold = 0.9
)

const (
	anomalyWeight     = 0.7
	persistenceWeight = 0.3

	// immobileSpeed is the speed below which an active unit is immobile.
	immobileSpeed = 0.05

	// immobileWindow caps how many score-history entries are counted.
	immobileWindow = 10

	// immobileMinSamples is the capped history length that triggers the rule.
	immobileMinSamples = 8
)

// Config controls the correlator.
type Config struct {
	// Cooldown is the minimum time between two alerts with the same key.
	Cooldown time.Duration

	// ClusterRadiusMeters is the single-link distance for coordinated clusters.
	ClusterRadiusMeters float64

	// ScoreHistorySize bounds the per-unit anomaly score history.
	ScoreHistorySize int
}

// DefaultConfig returns a 15 s cooldown, 2 km cluster radius and a
// 30-entry score history.
func DefaultConfig() Config {
	return Config{
		Cooldown:            15 * time.Second,
		ClusterRadiusMeters: 2000,
		ScoreHistorySize:    30,
	}
}

// AlertKey identifies an alert for deduplication: the rule that fired and
// the subject it fired about. For clusters the subject is the sorted,
// comma-joined member ids.
type AlertKey struct {
	Rule    models.RuleType
	Subject string
}

// ClusterKey builds the key for a set of cluster members in any order.
func ClusterKey(memberIDs []string) AlertKey {
	ids := append([]string(nil), memberIDs...)
	sortStrings(ids)
	return AlertKey{Rule: models.RuleCoordinatedCluster, Subject: strings.Join(ids, ",")}
}

// ImmobileKey builds the key for the immobility rule.
func ImmobileKey(unitID string) AlertKey {
	return AlertKey{Rule: models.RuleImmobileActive, Subject: unitID}
}

// HighRiskKey builds the key for the absolute risk rule.
func HighRiskKey(unitID string) AlertKey {
	return AlertKey{Rule: models.RuleHighRisk, Subject: unitID}
}

// String renders the key the way it appears in logs: the cluster member
// list, immobile_<id> or high_risk_<id>.
func (k AlertKey) String() string {
	switch k.Rule {
	case models.RuleImmobileActive:
		return "immobile_" + k.Subject
	case models.RuleHighRisk:
		return "high_risk_" + k.Subject
	default:
		return k.Subject
	}
}

// ClassifyRisk maps a risk value onto the four severity bands.
func ClassifyRisk(risk float64) models.Severity {
	switch {
	case risk < LowThreshold:
		return models.SeverityLow
	case risk < ElevatedThreshold:
		return models.SeverityElevated
	case risk < HighThreshold:
		return models.SeverityHigh
	default:
		return models.SeverityCritical
	}
}

// Finding is a rule match before cooldown gating turns it into an Alert.
type Finding struct {
	Key      AlertKey
	Severity models.Severity
	Message  string
	Units    []string
}

// Fleet is the read-only view a Rule evaluates.
type Fleet struct {
	// Units is the post-write-back snapshot, ordered by id.
	Units []models.Unit

	// ScoreHistoryLen returns how many anomaly scores are recorded for a unit.
	ScoreHistoryLen func(unitID string) int
}

// Rule is one cross-unit correlation rule.
type Rule interface {
	// Type returns the rule type this rule emits.
	Type() models.RuleType

	// Evaluate returns every match in the fleet. It must not keep state.
	Evaluate(fleet *Fleet) []Finding
}
