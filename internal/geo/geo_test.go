// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package geo

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		lat1      float64
		lon1      float64
		lat2      float64
		lon2      float64
		want      float64
		tolerance float64
	}{
		{"identical points", 51.5, -0.12, 51.5, -0.12, 0, 1e-9},
		{"0.001 degree longitude at equator", 0, 0, 0, 0.001, 111.19, 0.01},
		{"one degree latitude", 0, 0, 1, 0, 111194.93, 0.01},
		{"London to Paris", 51.5074, -0.1278, 48.8566, 2.3522, 343556, 500},
		{"antimeridian crossing", 0, 179.9995, 0, -179.9995, 111.19, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("Distance() = %.4f, want %.4f (+/- %.4f)", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestDistanceSymmetric(t *testing.T) {
	t.Parallel()

	points := [][2]float64{
		{0, 0}, {45, 90}, {-33.86, 151.2}, {89.9, -179.9}, {-89.9, 179.9}, {12.5, -45.25},
	}
	for i, a := range points {
		for j, b := range points {
			ab := Distance(a[0], a[1], b[0], b[1])
			ba := Distance(b[0], b[1], a[0], a[1])
			if math.Abs(ab-ba) > 1e-6 {
				t.Errorf("points %d,%d: Distance not symmetric: %f vs %f", i, j, ab, ba)
			}
			if i == j && ab != 0 {
				t.Errorf("point %d: distance to itself = %f, want 0", i, ab)
			}
		}
	}
}

func TestBearing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		lat2 float64
		lon2 float64
		want float64
	}{
		{"north", 1, 0, 0},
		{"east", 0, 1, 90},
		{"south", -1, 0, 180},
		{"west", 0, -1, 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Bearing(0, 0, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Bearing() = %f, want %f", got, tt.want)
			}
			if got < 0 || got >= 360 {
				t.Errorf("Bearing() = %f outside [0, 360)", got)
			}
		})
	}
}

func TestNormalizeLongitude(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{179.5, 179.5},
		{180, -180},
		{190, -170},
		{-180, -180},
		{-190, 170},
		{540, -180},
	}
	for _, tt := range tests {
		if got := NormalizeLongitude(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NormalizeLongitude(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeHeading(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{360, 0},
		{-90, 270},
		{725, 5},
	}
	for _, tt := range tests {
		if got := NormalizeHeading(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NormalizeHeading(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
