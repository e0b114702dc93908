// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package simulation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/fleetwatch/internal/anomaly"
	"github.com/tomtom215/fleetwatch/internal/detection"
	"github.com/tomtom215/fleetwatch/internal/geo"
	"github.com/tomtom215/fleetwatch/internal/models"
	"github.com/tomtom215/fleetwatch/internal/store"
)

// recorder collects published payloads.
type recorder struct {
	mu       sync.Mutex
	payloads []*models.StatePayload
}

func (r *recorder) Publish(p *models.StatePayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func (r *recorder) last() *models.StatePayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.payloads) == 0 {
		return nil
	}
	return r.payloads[len(r.payloads)-1]
}

var epoch = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *store.MemoryStore, *recorder) {
	t.Helper()
	st := store.NewMemoryStore()
	rec := &recorder{}
	eng := NewEngine(st, rec, anomaly.NewScorer(anomaly.DefaultConfig()),
		detection.NewCorrelator(detection.DefaultConfig()), DefaultConfig())
	return eng, st, rec
}

func activate(t *testing.T, st *store.MemoryStore, id string, speed float64, dest *models.Position) {
	t.Helper()
	status := models.StatusActive
	req := &models.TelemetryUpdateRequest{UnitID: id, SpeedMPS: &speed, Status: &status, Destination: dest}
	if _, err := st.Update(req); err != nil {
		t.Fatalf("Update(%s) error = %v", id, err)
	}
}

func TestTickMovesActiveUnitTowardDestination(t *testing.T) {
	t.Parallel()

	eng, st, rec := newTestEngine(t)
	st.Register(&models.RegisterUnitRequest{UnitID: "U1"})
	dest := &models.Position{Lat: 0, Lon: 0.001}
	activate(t, st, "U1", 50, dest)

	// The first tick has no prior tick to measure from.
	res := eng.Tick(context.Background(), epoch)
	if res.Moved != 0 {
		t.Fatalf("first tick moved %d units, want 0", res.Moved)
	}

	res = eng.Tick(context.Background(), epoch.Add(time.Second))
	if res.Moved != 1 || res.Changed != 1 || !res.Published {
		t.Fatalf("second tick = %+v, want one moved, changed and published", res)
	}

	u, err := st.Get("U1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	total := geo.Distance(0, 0, dest.Lat, dest.Lon)
	travelled := geo.Distance(0, 0, u.Lat, u.Lon)
	if travelled < 49 || travelled > 51 {
		t.Errorf("travelled %.2f m in one second at 50 m/s", travelled)
	}
	if remaining := geo.Distance(u.Lat, u.Lon, dest.Lat, dest.Lon); remaining >= total {
		t.Errorf("remaining %.2f m is not closer than %.2f m", remaining, total)
	}
	if !u.LastUpdate.Equal(epoch.Add(time.Second)) {
		t.Errorf("LastUpdate = %v, want tick time", u.LastUpdate)
	}

	p := rec.last()
	if p == nil || p.Type != models.EventStateUpdate || len(p.Units) != 1 {
		t.Fatalf("published payload = %+v", p)
	}
	if p.MLStatus == nil || p.MLStatus.Trained {
		t.Errorf("MLStatus = %+v, want untrained", p.MLStatus)
	}

	// Two more ticks cover the remaining ~61 m and stop at the destination.
	eng.Tick(context.Background(), epoch.Add(2*time.Second))
	eng.Tick(context.Background(), epoch.Add(3*time.Second))
	u, _ = st.Get("U1")
	if u.Lat != dest.Lat || u.Lon != dest.Lon || u.Destination != nil {
		t.Errorf("unit at (%v, %v) dest %v, want arrival at destination", u.Lat, u.Lon, u.Destination)
	}
}

func TestTickIdleFleetPublishesNothing(t *testing.T) {
	t.Parallel()

	eng, st, rec := newTestEngine(t)
	st.Register(&models.RegisterUnitRequest{UnitID: "U-01", Position: models.Position{Lat: 1, Lon: 1}})
	st.Register(&models.RegisterUnitRequest{UnitID: "U-02", Position: models.Position{Lat: 2, Lon: 2}})

	for i := 0; i < 3; i++ {
		res := eng.Tick(context.Background(), epoch.Add(time.Duration(i)*time.Second))
		if res.Units != 2 || res.Moved != 0 || res.Changed != 0 || res.Published {
			t.Fatalf("tick %d = %+v, want nothing to do", i, res)
		}
	}
	if rec.count() != 0 {
		t.Errorf("published %d payloads for an idle fleet", rec.count())
	}
}

func TestTickEmptyStore(t *testing.T) {
	t.Parallel()

	eng, _, rec := newTestEngine(t)
	res := eng.Tick(context.Background(), epoch)
	if res.Units != 0 || res.Published || rec.count() != 0 {
		t.Errorf("empty tick = %+v, published %d", res, rec.count())
	}
}

func TestTickPublishesAlertWithoutUnitChange(t *testing.T) {
	t.Parallel()

	eng, st, rec := newTestEngine(t)
	st.Register(&models.RegisterUnitRequest{UnitID: "U-01"})
	activate(t, st, "U-01", 0, nil)

	var fired []models.Alert
	for i := 0; i < 8; i++ {
		res := eng.Tick(context.Background(), epoch.Add(time.Duration(i)*time.Second))
		if res.Changed != 0 {
			t.Fatalf("tick %d changed %d units, want 0", i, res.Changed)
		}
		fired = append(fired, res.Alerts...)
		if i < 7 && res.Published {
			t.Fatalf("tick %d published without a change or alert", i)
		}
	}

	if len(fired) != 1 || fired[0].Rule != models.RuleImmobileActive {
		t.Fatalf("fired = %+v, want one immobile alert", fired)
	}
	if rec.count() != 1 {
		t.Fatalf("published %d payloads, want 1", rec.count())
	}
	p := rec.last()
	if len(p.Alerts) != 1 || len(p.ActiveAlerts) != 1 {
		t.Errorf("payload alerts = %d, active = %d, want 1 and 1", len(p.Alerts), len(p.ActiveAlerts))
	}
	if got := eng.ActiveAlerts(); len(got) != 1 || got[0].ID != fired[0].ID {
		t.Errorf("ActiveAlerts() = %+v", got)
	}

	// Still immobile, but inside the cooldown.
	res := eng.Tick(context.Background(), epoch.Add(8*time.Second))
	if len(res.Alerts) != 0 || res.Published {
		t.Errorf("tick inside cooldown = %+v", res)
	}
}

// vanishingStore deletes a unit right after the snapshot numbered removeAt.
type vanishingStore struct {
	*store.MemoryStore
	victim    string
	removeAt  int
	snapshots int
}

func (s *vanishingStore) Snapshot() []models.Unit {
	units := s.MemoryStore.Snapshot()
	s.snapshots++
	if s.snapshots == s.removeAt {
		_ = s.Remove(s.victim)
	}
	return units
}

func TestTickSkipsUnitRemovedMidTick(t *testing.T) {
	t.Parallel()

	mem := store.NewMemoryStore()
	mem.Register(&models.RegisterUnitRequest{UnitID: "U-01"})
	mem.Register(&models.RegisterUnitRequest{UnitID: "U-02"})
	dest := &models.Position{Lat: 0, Lon: 1}
	activate(t, mem, "U-01", 10, dest)
	activate(t, mem, "U-02", 10, dest)

	rec := &recorder{}
	// Each tick snapshots twice; the third snapshot opens the second tick.
	eng := NewEngine(&vanishingStore{MemoryStore: mem, victim: "U-01", removeAt: 3}, rec,
		anomaly.NewScorer(anomaly.DefaultConfig()), detection.NewCorrelator(detection.DefaultConfig()), DefaultConfig())

	eng.Tick(context.Background(), epoch)
	res := eng.Tick(context.Background(), epoch.Add(time.Second))

	if res.Moved != 2 || res.Changed != 1 {
		t.Fatalf("tick = %+v, want two moved and only U-02 written back", res)
	}
	if _, err := mem.Get("U-01"); err == nil {
		t.Error("removed unit was resurrected by the write-back")
	}
	if p := rec.last(); p == nil || len(p.Units) != 1 || p.Units[0].UnitID != "U-02" {
		t.Errorf("payload = %+v, want only U-02", p)
	}
}

// steeringStore applies an API update right after the snapshot numbered
// updateAt, before the tick writes back.
type steeringStore struct {
	*store.MemoryStore
	update    *models.TelemetryUpdateRequest
	updateAt  int
	snapshots int
}

func (s *steeringStore) Snapshot() []models.Unit {
	units := s.MemoryStore.Snapshot()
	s.snapshots++
	if s.snapshots == s.updateAt {
		_, _ = s.Update(s.update)
	}
	return units
}

func TestTickKeepsTelemetryWrittenMidTick(t *testing.T) {
	t.Parallel()

	mem := store.NewMemoryStore()
	mem.Register(&models.RegisterUnitRequest{UnitID: "U-01"})
	activate(t, mem, "U-01", 10, &models.Position{Lat: 0, Lon: 1})

	stop := 0.0
	rec := &recorder{}
	eng := NewEngine(&steeringStore{
		MemoryStore: mem,
		update: &models.TelemetryUpdateRequest{
			UnitID:   "U-01",
			Position: &models.Position{Lat: 10, Lon: 10},
			SpeedMPS: &stop,
		},
		updateAt: 3,
	}, rec, anomaly.NewScorer(anomaly.DefaultConfig()), detection.NewCorrelator(detection.DefaultConfig()), DefaultConfig())

	eng.Tick(context.Background(), epoch)
	res := eng.Tick(context.Background(), epoch.Add(time.Second))
	if res.Moved != 1 {
		t.Fatalf("tick = %+v, want the snapshot copy moved", res)
	}

	u, err := mem.Get("U-01")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if u.Lat != 10 || u.Lon != 10 || u.SpeedMPS != 0 {
		t.Errorf("unit at (%v, %v) speed %v, want the API update (10, 10, 0)", u.Lat, u.Lon, u.SpeedMPS)
	}
}

func TestEngineStartStop(t *testing.T) {
	t.Parallel()

	st := store.NewMemoryStore()
	st.Register(&models.RegisterUnitRequest{UnitID: "U-01"})
	activate(t, st, "U-01", 5, &models.Position{Lat: 0, Lon: 1})

	rec := &recorder{}
	eng := NewEngine(st, rec, anomaly.NewScorer(anomaly.DefaultConfig()),
		detection.NewCorrelator(detection.DefaultConfig()), Config{TickInterval: 10 * time.Millisecond})

	eng.Start(context.Background())
	eng.Start(context.Background())
	if !eng.Running() {
		t.Fatal("Running() = false after Start")
	}

	deadline := time.Now().Add(2 * time.Second)
	for rec.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := eng.RunWithContext(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("RunWithContext() during Start loop error = %v, want ErrAlreadyRunning", err)
	}
	eng.Stop()
	eng.Stop()

	if eng.Running() {
		t.Error("Running() = true after Stop")
	}
	if rec.count() < 2 {
		t.Fatalf("published %d payloads in 2s, want at least 2", rec.count())
	}

	n := rec.count()
	time.Sleep(50 * time.Millisecond)
	if rec.count() != n {
		t.Error("engine kept publishing after Stop")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := eng.RunWithContext(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("RunWithContext() after Stop error = %v, want context.Canceled", err)
	}
}

func TestStatePayload(t *testing.T) {
	t.Parallel()

	eng, st, _ := newTestEngine(t)
	st.Register(&models.RegisterUnitRequest{UnitID: "U-01", Label: "Alpha"})

	p := eng.StatePayload(models.EventStateInit)
	if p.Type != models.EventStateInit || len(p.Units) != 1 || p.Units[0].Label != "Alpha" {
		t.Errorf("StatePayload() = %+v", p)
	}
	if p.MLStatus == nil || p.MLStatus.Trained || eng.ModelTrained() {
		t.Errorf("MLStatus = %+v, want untrained", p.MLStatus)
	}
}

type panicky struct{}

func (panicky) Publish(*models.StatePayload) { panic("boom") }

func TestFanOutIsolatesPanics(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	var calls int
	fan := FanOut{panicky{}, rec, BroadcasterFunc(func(*models.StatePayload) { calls++ })}
	fan.Publish(&models.StatePayload{Type: models.EventStateUpdate})

	if rec.count() != 1 || calls != 1 {
		t.Errorf("recorder got %d, func got %d, want 1 and 1", rec.count(), calls)
	}
}

func TestRiskLevelCounts(t *testing.T) {
	t.Parallel()

	units := []models.Unit{
		{ID: "a", RiskScore: 0.1},
		{ID: "b", RiskScore: 0.29},
		{ID: "c", RiskScore: 0.5},
		{ID: "d", RiskScore: 0.75},
	}
	got := riskLevelCounts(units)
	want := map[string]int{"low": 2, "elevated": 1, "critical": 1}
	for level, n := range want {
		if got[level] != n {
			t.Errorf("%s = %d, want %d", level, got[level], n)
		}
	}
	if got["high"] != 0 {
		t.Errorf("high = %d, want 0", got["high"])
	}
}
