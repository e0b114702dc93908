// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package models

import "time"

// UnitStatus is the lifecycle state of a unit.
type UnitStatus string

const (
	StatusIdle    UnitStatus = "idle"
	StatusActive  UnitStatus = "active"
	StatusPaused  UnitStatus = "paused"
	StatusOffline UnitStatus = "offline"
)

// Valid reports whether s is one of the four known states.
func (s UnitStatus) Valid() bool {
	switch s {
	case StatusIdle, StatusActive, StatusPaused, StatusOffline:
		return true
	}
	return false
}

// Position is a WGS84 coordinate pair in degrees.
type Position struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lon float64 `json:"lon" validate:"longitude"`
}

// Unit is the runtime record of one simulated unit. The store owns the
// canonical copy; everything else works on clones.
type Unit struct {
	ID           string
	Label        string
	Lat          float64
	Lon          float64
	SpeedMPS     float64
	HeadingDeg   float64
	Status       UnitStatus
	Destination  *Position
	AnomalyScore float64
	RiskScore    float64
	LastUpdate   time.Time

	// Revision is assigned by the store on every external write. The tick
	// loop hands it back on Persist to detect writes it did not see.
	Revision uint64
}

// Clone returns a deep copy of u.
func (u *Unit) Clone() Unit {
	c := *u
	if u.Destination != nil {
		dest := *u.Destination
		c.Destination = &dest
	}
	return c
}

// PublicUnit is the externally visible view of a Unit.
type PublicUnit struct {
	UnitID       string     `json:"unit_id"`
	Label        string     `json:"label,omitempty"`
	Lat          float64    `json:"lat"`
	Lon          float64    `json:"lon"`
	SpeedMPS     float64    `json:"speed_mps"`
	DirectionDeg float64    `json:"direction_deg"`
	Status       UnitStatus `json:"status"`
	AnomalyScore float64    `json:"anomaly_score"`
	RiskScore    float64    `json:"risk_score"`
	LastUpdate   time.Time  `json:"last_update"`
	Destination  *Position  `json:"destination,omitempty"`
}

// Public converts u into its boundary view.
func (u *Unit) Public() PublicUnit {
	pub := PublicUnit{
		UnitID:       u.ID,
		Label:        u.Label,
		Lat:          u.Lat,
		Lon:          u.Lon,
		SpeedMPS:     u.SpeedMPS,
		DirectionDeg: u.HeadingDeg,
		Status:       u.Status,
		AnomalyScore: u.AnomalyScore,
		RiskScore:    u.RiskScore,
		LastUpdate:   u.LastUpdate,
	}
	if u.Destination != nil {
		dest := *u.Destination
		pub.Destination = &dest
	}
	return pub
}

// PublicUnits converts a slice of units preserving order.
func PublicUnits(units []Unit) []PublicUnit {
	out := make([]PublicUnit, len(units))
	for i := range units {
		out[i] = units[i].Public()
	}
	return out
}
