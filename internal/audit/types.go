// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// EventType categorizes journal events.
type EventType string

const (
	// Unit lifecycle events, recorded by the API.
	EventTypeUnitRegistered    EventType = "unit.registered"
	EventTypeUnitTelemetry     EventType = "unit.telemetry"
	EventTypeUnitStatusChanged EventType = "unit.status_changed"
	EventTypeUnitRemoved       EventType = "unit.removed"

	// Threat events, recorded from the tick loop.
	EventTypeAlertFired EventType = "alert.fired"
)

// Severity indicates the severity level of an event.
type Severity string

const (
	SeverityDebug    Severity = "debug"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

var severityOrder = map[Severity]int{
	SeverityDebug:    0,
	SeverityInfo:     1,
	SeverityWarning:  2,
	SeverityCritical: 3,
}

// Event is one journal entry.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Severity  Severity  `json:"severity"`

	// UnitIDs lists the units the event concerns, ordered by id.
	UnitIDs []string `json:"unit_ids"`

	Action      string `json:"action"`
	Description string `json:"description"`

	Source Source `json:"source"`

	// Metadata contains event-specific details.
	Metadata json.RawMessage `json:"metadata,omitempty"`

	CorrelationID string `json:"correlation_id,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
}

// Source represents where a change originated. System events carry only
// the component name.
type Source struct {
	Component string `json:"component"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Store defines the interface for journal persistence.
type Store interface {
	Save(ctx context.Context, event *Event) error
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)
	Count(ctx context.Context, filter QueryFilter) (int64, error)
	Delete(ctx context.Context, olderThan time.Time) (int64, error)
}

// QueryFilter defines filtering options for journal queries. Zero fields
// match everything.
type QueryFilter struct {
	Types         []EventType `json:"types,omitempty"`
	Severities    []Severity  `json:"severities,omitempty"`
	UnitID        string      `json:"unit_id,omitempty"`
	StartTime     *time.Time  `json:"start_time,omitempty"`
	EndTime       *time.Time  `json:"end_time,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	RequestID     string      `json:"request_id,omitempty"`

	// Limit is the maximum number of results, newest first.
	Limit int `json:"limit,omitempty"`
}

// MaxQueryLimit caps QueryFilter.Limit for API callers.
const MaxQueryLimit = 1000

// DefaultQueryFilter returns the newest 100 events of any kind.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{Limit: 100}
}
