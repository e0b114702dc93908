// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package audit

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/tomtom215/fleetwatch/internal/window"
)

// DefaultMaxEvents bounds a MemoryStore created with a non-positive size.
const DefaultMaxEvents = 10000

// MemoryStore implements Store on a fixed-size ring. Once full, each Save
// evicts the oldest event. Data is lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	events *window.Ring[Event]
}

// NewMemoryStore creates a store holding at most maxLen events.
func NewMemoryStore(maxLen int) *MemoryStore {
	if maxLen <= 0 {
		maxLen = DefaultMaxEvents
	}
	return &MemoryStore{events: window.New[Event](maxLen)}
}

// Save appends a copy of event.
func (s *MemoryStore) Save(_ context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events.Push(*event)
	return nil
}

// Query returns matching events, newest first, stopping at filter.Limit.
func (s *MemoryStore) Query(_ context.Context, filter QueryFilter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []Event{}
	for i := s.events.Len() - 1; i >= 0; i-- {
		event := s.events.At(i)
		if !matchesFilter(&event, &filter) {
			continue
		}
		results = append(results, event)
		if filter.Limit > 0 && len(results) >= filter.Limit {
			break
		}
	}
	return results, nil
}

// matchesFilter returns true if the event matches all filter criteria.
func matchesFilter(event *Event, filter *QueryFilter) bool {
	if len(filter.Types) > 0 && !slices.Contains(filter.Types, event.Type) {
		return false
	}
	if len(filter.Severities) > 0 && !slices.Contains(filter.Severities, event.Severity) {
		return false
	}
	if filter.UnitID != "" && !slices.Contains(event.UnitIDs, filter.UnitID) {
		return false
	}
	if filter.StartTime != nil && event.Timestamp.Before(*filter.StartTime) {
		return false
	}
	if filter.EndTime != nil && event.Timestamp.After(*filter.EndTime) {
		return false
	}
	if filter.CorrelationID != "" && event.CorrelationID != filter.CorrelationID {
		return false
	}
	if filter.RequestID != "" && event.RequestID != filter.RequestID {
		return false
	}
	return true
}

// Count returns the number of events matching the filter, ignoring Limit.
func (s *MemoryStore) Count(_ context.Context, filter QueryFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for i := range s.events.Len() {
		event := s.events.At(i)
		if matchesFilter(&event, &filter) {
			count++
		}
	}
	return count, nil
}

// Delete removes events older than olderThan. The ring is rebuilt from the
// survivors, which keep their order.
func (s *MemoryStore) Delete(_ context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := window.New[Event](s.events.Cap())
	var deleted int64
	for _, event := range s.events.Values() {
		if event.Timestamp.Before(olderThan) {
			deleted++
			continue
		}
		kept.Push(event)
	}
	if deleted > 0 {
		s.events = kept
	}
	return deleted, nil
}

// Len returns the number of events in the store.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events.Len()
}
