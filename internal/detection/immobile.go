// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package detection

import (
	"fmt"

	"github.com/tomtom215/fleetwatch/internal/models"
)

// ImmobileRule flags units that are marked active but are not moving.
//
// The rule requires at least immobileMinSamples entries in the unit's score
// history (capped at immobileWindow). It does not check that those ticks
// were themselves stationary.
type ImmobileRule struct{}

// NewImmobileRule creates an ImmobileRule.
func NewImmobileRule() *ImmobileRule {
	return &ImmobileRule{}
}

// Type implements Rule.
func (r *ImmobileRule) Type() models.RuleType {
	return models.RuleImmobileActive
}

// Evaluate implements Rule.
func (r *ImmobileRule) Evaluate(fleet *Fleet) []Finding {
	var findings []Finding
	for i := range fleet.Units {
		u := &fleet.Units[i]
		if u.Status != models.StatusActive || u.SpeedMPS >= immobileSpeed {
			continue
		}
		observed := min(fleet.ScoreHistoryLen(u.ID), immobileWindow)
		if observed < immobileMinSamples {
			continue
		}
		findings = append(findings, Finding{
			Key:      ImmobileKey(u.ID),
			Severity: models.SeverityElevated,
			Message:  fmt.Sprintf("Unit %s is active but has been stationary for %d ticks", u.ID, observed),
			Units:    []string{u.ID},
		})
	}
	return findings
}
