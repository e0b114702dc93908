// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package detection

import (
	"fmt"

	"github.com/tomtom215/fleetwatch/internal/models"
)

// HighRiskRule flags any unit whose risk exceeds HighThreshold.
type HighRiskRule struct{}

// NewHighRiskRule creates a HighRiskRule.
func NewHighRiskRule() *HighRiskRule {
	return &HighRiskRule{}
}

// Type implements Rule.
func (r *HighRiskRule) Type() models.RuleType {
	return models.RuleHighRisk
}

// Evaluate implements Rule.
func (r *HighRiskRule) Evaluate(fleet *Fleet) []Finding {
	var findings []Finding
	for i := range fleet.Units {
		u := &fleet.Units[i]
		if u.RiskScore <= HighThreshold {
			continue
		}
		severity := models.SeverityHigh
		if u.RiskScore > CriticalThreshold {
			severity = models.SeverityCritical
		}
		findings = append(findings, Finding{
			Key:      HighRiskKey(u.ID),
			Severity: severity,
			Message:  fmt.Sprintf("Unit %s risk score %.2f exceeds %.2f", u.ID, u.RiskScore, HighThreshold),
			Units:    []string{u.ID},
		})
	}
	return findings
}
