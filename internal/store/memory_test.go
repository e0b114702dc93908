// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/fleetwatch/internal/models"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore() *MemoryStore {
	s := NewMemoryStore()
	s.SetClock(func() time.Time { return fixedNow })
	return s
}

func TestRegister(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	got := s.Register(&models.RegisterUnitRequest{
		UnitID:       "U-01",
		Position:     models.Position{Lat: 10, Lon: 20},
		SpeedMPS:     3,
		DirectionDeg: 45,
	})

	want := models.Unit{
		ID:         "U-01",
		Label:      "U-01",
		Lat:        10,
		Lon:        20,
		SpeedMPS:   3,
		HeadingDeg: 45,
		Status:     models.StatusIdle,
		LastUpdate: fixedNow,
		Revision:   1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Register() mismatch (-want +got):\n%s", diff)
	}
	if s.Count() != 1 {
		t.Errorf("Count() = %d, want 1", s.Count())
	}
}

func TestRegisterReplacesExisting(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	s.Register(&models.RegisterUnitRequest{UnitID: "U-01", Label: "first"})
	if _, err := s.SetStatus("U-01", models.StatusActive); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	s.Register(&models.RegisterUnitRequest{UnitID: "U-01", Label: "second"})

	got, err := s.Get("U-01")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Label != "second" || got.Status != models.StatusIdle {
		t.Errorf("got label=%q status=%q, want second/idle", got.Label, got.Status)
	}
}

func TestUpdatePartial(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	s.Register(&models.RegisterUnitRequest{UnitID: "U-01", Position: models.Position{Lat: 1, Lon: 2}, SpeedMPS: 4})

	speed := 7.5
	active := models.StatusActive
	got, err := s.Update(&models.TelemetryUpdateRequest{
		UnitID:      "U-01",
		SpeedMPS:    &speed,
		Status:      &active,
		Destination: &models.Position{Lat: 1.5, Lon: 2.5},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if got.Lat != 1 || got.Lon != 2 {
		t.Errorf("position changed unexpectedly: %v,%v", got.Lat, got.Lon)
	}
	if got.SpeedMPS != 7.5 || got.Status != models.StatusActive {
		t.Errorf("speed/status not applied: %v %v", got.SpeedMPS, got.Status)
	}
	if got.Destination == nil || got.Destination.Lat != 1.5 {
		t.Errorf("destination not applied: %+v", got.Destination)
	}
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	tests := []struct {
		name string
		call func() error
	}{
		{"update", func() error { _, err := s.Update(&models.TelemetryUpdateRequest{UnitID: "ghost"}); return err }},
		{"set status", func() error { _, err := s.SetStatus("ghost", models.StatusActive); return err }},
		{"persist", func() error { return s.Persist(&models.Unit{ID: "ghost"}) }},
		{"get", func() error { _, err := s.Get("ghost"); return err }},
		{"remove", func() error { return s.Remove("ghost") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestSnapshotReturnsSortedCopies(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	for _, id := range []string{"U-03", "U-01", "U-02"} {
		s.Register(&models.RegisterUnitRequest{UnitID: id})
	}
	if _, err := s.Update(&models.TelemetryUpdateRequest{UnitID: "U-01", Destination: &models.Position{Lat: 5}}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	snap := s.Snapshot()
	ids := make([]string, len(snap))
	for i := range snap {
		ids[i] = snap[i].ID
	}
	if diff := cmp.Diff([]string{"U-01", "U-02", "U-03"}, ids); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	snap[0].Lat = 80
	snap[0].Destination.Lat = 80
	again, _ := s.Get("U-01")
	if again.Lat == 80 || again.Destination.Lat == 80 {
		t.Error("snapshot mutation leaked into the store")
	}
}

func TestPersist(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	s.Register(&models.RegisterUnitRequest{UnitID: "U-01"})

	unit, _ := s.Get("U-01")
	unit.AnomalyScore = 0.4
	unit.RiskScore = 0.6
	if err := s.Persist(&unit); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	got, _ := s.Get("U-01")
	if got.AnomalyScore != 0.4 || got.RiskScore != 0.6 {
		t.Errorf("Persist did not write scores: %+v", got)
	}
}

func TestPersistKeepsConcurrentStatusChange(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	s.Register(&models.RegisterUnitRequest{UnitID: "U-01"})

	working, _ := s.Get("U-01")
	if _, err := s.SetStatus("U-01", models.StatusPaused); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	working.Lat = 3
	working.RiskScore = 0.7
	if err := s.Persist(&working); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	got, _ := s.Get("U-01")
	if got.Status != models.StatusPaused {
		t.Errorf("status = %q, want paused", got.Status)
	}
	if got.Lat != 0 {
		t.Errorf("lat = %v, want 0 from the newer record", got.Lat)
	}
	if got.RiskScore != 0.7 {
		t.Errorf("risk = %v, want 0.7", got.RiskScore)
	}
}

func TestPersistKeepsConcurrentTelemetry(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	s.Register(&models.RegisterUnitRequest{UnitID: "U-01", SpeedMPS: 20})

	working, _ := s.Get("U-01")

	speed := 0.0
	dest := models.Position{Lat: 11, Lon: 11}
	if _, err := s.Update(&models.TelemetryUpdateRequest{
		UnitID:      "U-01",
		Position:    &models.Position{Lat: 10, Lon: 10},
		SpeedMPS:    &speed,
		Destination: &dest,
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	working.Lat, working.Lon = 0.001, 0.001
	working.Destination = nil
	working.AnomalyScore = 0.3
	working.RiskScore = 0.5
	if err := s.Persist(&working); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	got, _ := s.Get("U-01")
	if got.Lat != 10 || got.Lon != 10 || got.SpeedMPS != 0 {
		t.Errorf("kinematics = (%v, %v, %v), want API values (10, 10, 0)", got.Lat, got.Lon, got.SpeedMPS)
	}
	if diff := cmp.Diff(&dest, got.Destination); diff != "" {
		t.Errorf("destination mismatch (-want +got):\n%s", diff)
	}
	if got.AnomalyScore != 0.3 || got.RiskScore != 0.5 {
		t.Errorf("scores = (%v, %v), want (0.3, 0.5)", got.AnomalyScore, got.RiskScore)
	}
}

func TestPersistAfterReregisterKeepsNewUnit(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	s.Register(&models.RegisterUnitRequest{UnitID: "U-01"})
	stale, _ := s.Get("U-01")

	if err := s.Remove("U-01"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	s.Register(&models.RegisterUnitRequest{UnitID: "U-01", Position: models.Position{Lat: 5, Lon: 5}})

	stale.Lat = 1
	if err := s.Persist(&stale); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	got, _ := s.Get("U-01")
	if got.Lat != 5 {
		t.Errorf("lat = %v, want 5 from the re-registered unit", got.Lat)
	}
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("U-%02d", n)
			s.Register(&models.RegisterUnitRequest{UnitID: id})
			for j := 0; j < 50; j++ {
				speed := float64(j)
				_, _ = s.Update(&models.TelemetryUpdateRequest{UnitID: id, SpeedMPS: &speed})
				_ = s.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	if s.Count() != 8 {
		t.Errorf("Count() = %d, want 8", s.Count())
	}
}
