// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

// Package store holds the authoritative in-memory unit table.
//
// Every read returns independent copies and every write replaces a whole
// record under the lock, so neither the tick loop nor an API handler can
// observe a half-updated unit.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/fleetwatch/internal/models"
)

// ErrNotFound is returned when an operation references an unknown unit id.
var ErrNotFound = errors.New("unit not found")

// MemoryStore is a concurrency-safe map of units keyed by id.
type MemoryStore struct {
	mu    sync.RWMutex
	units map[string]*models.Unit
	rev   uint64
	now   func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		units: make(map[string]*models.Unit),
		now:   time.Now,
	}
}

// SetClock replaces the time source used to stamp LastUpdate.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Register inserts a new idle unit, replacing any existing unit with the
// same id. The label defaults to the id.
func (s *MemoryStore) Register(req *models.RegisterUnitRequest) models.Unit {
	label := req.Label
	if label == "" {
		label = req.UnitID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unit := &models.Unit{
		ID:         req.UnitID,
		Label:      label,
		Lat:        req.Position.Lat,
		Lon:        req.Position.Lon,
		SpeedMPS:   req.SpeedMPS,
		HeadingDeg: req.DirectionDeg,
		Status:     models.StatusIdle,
		LastUpdate: s.now().UTC(),
		Revision:   s.nextRevision(),
	}
	s.units[unit.ID] = unit
	return unit.Clone()
}

// Update applies a partial telemetry update.
func (s *MemoryStore) Update(req *models.TelemetryUpdateRequest) (models.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unit, ok := s.units[req.UnitID]
	if !ok {
		return models.Unit{}, fmt.Errorf("update %s: %w", req.UnitID, ErrNotFound)
	}

	if req.Position != nil {
		unit.Lat = req.Position.Lat
		unit.Lon = req.Position.Lon
	}
	if req.SpeedMPS != nil {
		unit.SpeedMPS = *req.SpeedMPS
	}
	if req.DirectionDeg != nil {
		unit.HeadingDeg = *req.DirectionDeg
	}
	if req.Status != nil {
		unit.Status = *req.Status
	}
	if req.Destination != nil {
		dest := *req.Destination
		unit.Destination = &dest
	}
	unit.LastUpdate = s.now().UTC()
	unit.Revision = s.nextRevision()
	return unit.Clone(), nil
}

// SetStatus changes a unit's lifecycle status.
func (s *MemoryStore) SetStatus(id string, status models.UnitStatus) (models.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unit, ok := s.units[id]
	if !ok {
		return models.Unit{}, fmt.Errorf("set status %s: %w", id, ErrNotFound)
	}
	unit.Status = status
	unit.LastUpdate = s.now().UTC()
	unit.Revision = s.nextRevision()
	return unit.Clone(), nil
}

// Persist writes back a unit modified by the tick loop. unit.Revision must
// be the revision the tick read. When the stored record is still at that
// revision, kinematics, destination, scores and LastUpdate are taken from
// unit. When an API write landed in between, only the scores are written so
// the newer telemetry, status and destination survive. It fails with
// ErrNotFound when the unit was removed in the meantime.
func (s *MemoryStore) Persist(unit *models.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.units[unit.ID]
	if !ok {
		return fmt.Errorf("persist %s: %w", unit.ID, ErrNotFound)
	}
	if current.Revision != unit.Revision {
		current.AnomalyScore = unit.AnomalyScore
		current.RiskScore = unit.RiskScore
		return nil
	}
	c := unit.Clone()
	c.Label = current.Label
	c.Status = current.Status
	s.units[unit.ID] = &c
	return nil
}

// Get returns a copy of one unit.
func (s *MemoryStore) Get(id string) (models.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	unit, ok := s.units[id]
	if !ok {
		return models.Unit{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return unit.Clone(), nil
}

// Remove deletes a unit.
func (s *MemoryStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.units[id]; !ok {
		return fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	delete(s.units, id)
	return nil
}

// Snapshot returns copies of every unit ordered by id.
func (s *MemoryStore) Snapshot() []models.Unit {
	s.mu.RLock()
	out := make([]models.Unit, 0, len(s.units))
	for _, unit := range s.units {
		out = append(out, unit.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// nextRevision must be called with mu held. The counter is store-wide so a
// unit removed and registered again never reuses a revision.
func (s *MemoryStore) nextRevision() uint64 {
	s.rev++
	return s.rev
}

// Count returns the number of registered units.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.units)
}
