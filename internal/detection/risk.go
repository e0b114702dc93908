// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package detection

import (
	"math"
	"sort"
)

// ScoreRisk records anomaly in the unit's score history and returns
//
//	0.7*anomaly + 0.3*(scores above LowThreshold)/(history length)
//
// clamped to [0, 1] and rounded to 4 decimals. The current score is part
// of the history it is weighed against.
func (c *Correlator) ScoreRisk(unitID string, anomaly float64) float64 {
	h := c.scoreHistory(unitID)
	h.Push(anomaly)

	elevated := 0
	for i := 0; i < h.Len(); i++ {
		if h.At(i) > LowThreshold {
			elevated++
		}
	}
	persistence := float64(elevated) / float64(h.Len())

	return round4(clamp01(anomalyWeight*anomaly + persistenceWeight*persistence))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func sortStrings(s []string) {
	sort.Strings(s)
}
