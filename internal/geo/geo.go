// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

// Package geo provides great-circle helpers shared by the motion integrator,
// the anomaly scorer and the threat correlator. All functions are pure.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by every distance and
// displacement computation in Fleetwatch.
const EarthRadiusMeters = 6_371_000.0

// Distance returns the haversine great-circle distance in metres.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dPhi := toRadians(lat2 - lat1)
	dLambda := toRadians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(dLambda/2)*math.Sin(dLambda/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// Bearing returns the initial bearing from the first point to the second in
// degrees, normalized to [0, 360).
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dLambda := toRadians(lon2 - lon1)

	x := math.Sin(dLambda) * math.Cos(phi2)
	y := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)

	return NormalizeHeading(toDegrees(math.Atan2(x, y)))
}

// NormalizeHeading maps any angle in degrees into [0, 360).
func NormalizeHeading(deg float64) float64 {
	h := math.Mod(deg, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}

// NormalizeLongitude maps a longitude into [-180, 180) using a floored
// modulo, so 180 becomes -180 and 190 becomes -170.
func NormalizeLongitude(lon float64) float64 {
	shifted := math.Mod(lon+180, 360)
	if shifted < 0 {
		shifted += 360
	}
	return shifted - 180
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func toDegrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
