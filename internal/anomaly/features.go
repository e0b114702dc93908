// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package anomaly

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/tomtom215/fleetwatch/internal/geo"
	"github.com/tomtom215/fleetwatch/internal/models"
	"github.com/tomtom215/fleetwatch/internal/window"
)

// Feature indices into a FeatureVector.
const (
	FeatureSpeed = iota
	FeatureAcceleration
	FeatureNearestDistance
	FeatureHeadingContinuity
	FeatureStationaryRun

	featureCount
)

const (
	// maxNeighborDistance caps the nearest-unit feature, in metres.
	maxNeighborDistance = 5000.0

	// continuityWindow is how many recent headings feed the continuity feature.
	continuityWindow = 10

	// stationarySpeed is the speed below which a sample counts as stationary.
	stationarySpeed = 0.05
)

// FeatureVector is the per-sample input to the outlier model.
type FeatureVector [featureCount]float64

// Slice returns the vector as a fresh slice.
func (v FeatureVector) Slice() []float64 {
	out := make([]float64, featureCount)
	copy(out, v[:])
	return out
}

// sample is one recorded (speed, heading) observation.
type sample struct {
	speed   float64
	heading float64
}

// extractFeatures builds the vector for u from its history as it stood
// before the current observation. history may be nil.
func extractFeatures(u *models.Unit, history *window.Ring[sample], positions map[string]models.Position) FeatureVector {
	var v FeatureVector
	v[FeatureSpeed] = u.SpeedMPS

	if history != nil {
		if last, ok := history.Last(); ok {
			v[FeatureAcceleration] = u.SpeedMPS - last.speed
		}
	}

	nearest := maxNeighborDistance
	for id, pos := range positions {
		if id == u.ID {
			continue
		}
		if d := geo.Distance(u.Lat, u.Lon, pos.Lat, pos.Lon); d < nearest {
			nearest = d
		}
	}
	v[FeatureNearestDistance] = nearest

	if history != nil {
		v[FeatureHeadingContinuity] = headingContinuity(history.Tail(continuityWindow))
		v[FeatureStationaryRun] = float64(stationaryRun(history))
	}
	return v
}

// headingContinuity is the population standard deviation of the absolute
// differences between consecutive headings.
func headingContinuity(recent []sample) float64 {
	if len(recent) < 2 {
		return 0
	}
	deltas := make([]float64, len(recent)-1)
	for i := 1; i < len(recent); i++ {
		deltas[i-1] = math.Abs(recent[i].heading - recent[i-1].heading)
	}
	if len(deltas) == 1 {
		return 0
	}
	return math.Sqrt(stat.PopVariance(deltas, nil))
}

// stationaryRun counts trailing samples slower than stationarySpeed.
func stationaryRun(history *window.Ring[sample]) int {
	count := 0
	for i := history.Len() - 1; i >= 0; i-- {
		if history.At(i).speed >= stationarySpeed {
			break
		}
		count++
	}
	return count
}
