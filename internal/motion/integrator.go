// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

// Package motion advances unit kinematics by an elapsed time delta.
package motion

import (
	"math"

	"github.com/tomtom215/fleetwatch/internal/geo"
	"github.com/tomtom215/fleetwatch/internal/models"
)

// minCosLat replaces cos(lat) when it is exactly zero at the poles.
const minCosLat = 1e-6

// Integrate moves u along its heading for dtSeconds and reports whether it
// moved. When a destination is set the heading is steered toward it, and a
// unit that would reach it within this step lands exactly on it with speed
// zeroed and the destination cleared.
//
// Status is not checked here; the caller decides which units to integrate.
func Integrate(u *models.Unit, dtSeconds float64) bool {
	if u.SpeedMPS <= 0 || dtSeconds <= 0 {
		return false
	}

	step := u.SpeedMPS * dtSeconds

	if u.Destination != nil {
		dest := u.Destination
		u.HeadingDeg = geo.Bearing(u.Lat, u.Lon, dest.Lat, dest.Lon)
		if geo.Distance(u.Lat, u.Lon, dest.Lat, dest.Lon) < step {
			u.Lat = dest.Lat
			u.Lon = dest.Lon
			u.SpeedMPS = 0
			u.Destination = nil
			return true
		}
	}

	heading := u.HeadingDeg * math.Pi / 180
	dLat := step * math.Cos(heading) / geo.EarthRadiusMeters

	cosLat := math.Cos(u.Lat * math.Pi / 180)
	if cosLat == 0 {
		cosLat = minCosLat
	}
	dLon := step * math.Sin(heading) / (geo.EarthRadiusMeters * cosLat)

	u.Lat += dLat * 180 / math.Pi
	u.Lon = geo.NormalizeLongitude(u.Lon + dLon*180/math.Pi)
	return true
}
