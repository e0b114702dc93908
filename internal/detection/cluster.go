// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package detection

import (
	"fmt"
	"strings"

	"github.com/tomtom215/fleetwatch/internal/cache"
	"github.com/tomtom215/fleetwatch/internal/models"
)

// ClusterRule flags groups of anomalous units operating close together.
type ClusterRule struct {
	radiusMeters float64
}

// NewClusterRule creates a ClusterRule with the given single-link radius.
func NewClusterRule(radiusMeters float64) *ClusterRule {
	return &ClusterRule{radiusMeters: radiusMeters}
}

// Type implements Rule.
func (r *ClusterRule) Type() models.RuleType {
	return models.RuleCoordinatedCluster
}

// Evaluate implements Rule.
func (r *ClusterRule) Evaluate(fleet *Fleet) []Finding {
	var elevated []*models.Unit
	for i := range fleet.Units {
		if fleet.Units[i].AnomalyScore > ElevatedThreshold {
			elevated = append(elevated, &fleet.Units[i])
		}
	}

	var findings []Finding
	for _, cluster := range r.clusters(elevated) {
		if len(cluster) < 2 {
			continue
		}
		key := ClusterKey(cluster)
		findings = append(findings, Finding{
			Key:      key,
			Severity: models.SeverityHigh,
			Message: fmt.Sprintf("Coordinated anomaly: %d units within %.0f m (%s)",
				len(cluster), r.radiusMeters, strings.ReplaceAll(key.Subject, ",", ", ")),
			Units: strings.Split(key.Subject, ","),
		})
	}
	return findings
}

// clusters groups units greedily. Each unvisited unit seeds a cluster and
// every later unvisited unit within radius of any current member joins it,
// in scan order. Visited units never seed another cluster.
//
// Members of the growing cluster are kept in a spatial grid, so the
// "near any member" test inspects only neighbouring cells.
func (r *ClusterRule) clusters(units []*models.Unit) [][]string {
	visited := make(map[string]bool, len(units))
	members := cache.NewSpatialHashGrid(r.radiusMeters)
	var out [][]string

	for i, seed := range units {
		if visited[seed.ID] {
			continue
		}
		visited[seed.ID] = true
		members.Clear()
		members.Insert(seed.ID, seed.Lat, seed.Lon)
		ids := []string{seed.ID}

		for _, candidate := range units[i+1:] {
			if visited[candidate.ID] {
				continue
			}
			if members.AnyWithin(candidate.Lat, candidate.Lon, r.radiusMeters) {
				members.Insert(candidate.ID, candidate.Lat, candidate.Lon)
				ids = append(ids, candidate.ID)
				visited[candidate.ID] = true
			}
		}

		out = append(out, ids)
	}
	return out
}
