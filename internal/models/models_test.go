// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package models

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestUnitClone(t *testing.T) {
	t.Parallel()

	orig := Unit{ID: "U-01", Lat: 1, Destination: &Position{Lat: 2, Lon: 3}}
	c := orig.Clone()
	c.Destination.Lat = 50
	c.Lat = 9

	if orig.Destination.Lat != 2 {
		t.Errorf("clone shares destination with original")
	}
	if orig.Lat != 1 {
		t.Errorf("clone shares fields with original")
	}
}

func TestUnitStatusValid(t *testing.T) {
	t.Parallel()

	for _, s := range []UnitStatus{StatusIdle, StatusActive, StatusPaused, StatusOffline} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if UnitStatus("lost").Valid() {
		t.Error("unknown status should be invalid")
	}
}

func TestStatePayloadJSON(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	units := []Unit{{ID: "U-01", Label: "alpha", Status: StatusActive, LastUpdate: now}}
	payload := NewStatePayload(EventStateUpdate, units, now)

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(data)

	for _, want := range []string{`"type":"state_update"`, `"unit_id":"U-01"`, `"direction_deg":0`, `"status":"active"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
	for _, absent := range []string{"active_alerts", "ml_status", "destination"} {
		if strings.Contains(out, absent) {
			t.Errorf("did not expect %s in %s", absent, out)
		}
	}
}
