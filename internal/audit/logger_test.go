// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package audit

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/fleetwatch/internal/logging"
	"github.com/tomtom215/fleetwatch/internal/models"
)

func testConfig() *Config {
	return &Config{
		Enabled:     true,
		MinSeverity: SeverityInfo,
		BufferSize:  16,
	}
}

func TestLogger_LogAndDrainOnClose(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(100)
	logger := NewLogger(store, testConfig())

	logger.Log(&Event{Type: EventTypeUnitRegistered, Severity: SeverityInfo, UnitIDs: []string{"alpha-1"}})
	logger.Log(&Event{Type: EventTypeUnitRemoved, Severity: SeverityInfo, UnitIDs: []string{"alpha-1"}})

	// Close drains the buffer before returning.
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	events, err := logger.Query(context.Background(), DefaultQueryFilter())
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != EventTypeUnitRemoved {
		t.Errorf("newest event type = %s, want %s", events[0].Type, EventTypeUnitRemoved)
	}
	for _, e := range events {
		if e.ID == "" {
			t.Error("event ID not generated")
		}
		if e.Timestamp.IsZero() {
			t.Error("event timestamp not set")
		}
	}

	// Events after Close are ignored.
	logger.Log(&Event{Type: EventTypeUnitRegistered, Severity: SeverityInfo})
	if store.Len() != 2 {
		t.Errorf("store length after Close = %d, want 2", store.Len())
	}
}

func TestLogger_Filtering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		config   *Config
		severity Severity
		want     int
	}{
		{"info passes info minimum", testConfig(), SeverityInfo, 1},
		{"debug dropped by info minimum", testConfig(), SeverityDebug, 0},
		{"critical passes warning minimum", &Config{Enabled: true, MinSeverity: SeverityWarning, BufferSize: 4}, SeverityCritical, 1},
		{"disabled drops everything", &Config{Enabled: false, BufferSize: 4}, SeverityCritical, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := NewMemoryStore(10)
			logger := NewLogger(store, tt.config)
			logger.Log(&Event{Type: EventTypeAlertFired, Severity: tt.severity})
			_ = logger.Close()

			if store.Len() != tt.want {
				t.Errorf("store length = %d, want %d", store.Len(), tt.want)
			}
		})
	}
}

func TestLogger_PublishJournalsFiredAlerts(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(10)
	logger := NewLogger(store, testConfig())

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	logger.Publish(&models.StatePayload{
		Type: models.EventStateUpdate,
		Alerts: []models.Alert{{
			ID:            "a-1",
			Rule:          models.RuleCoordinatedCluster,
			Severity:      models.SeverityHigh,
			Message:       "3 units within 100m",
			AffectedUnits: []string{"charlie", "alpha", "bravo"},
			CreatedAt:     created,
		}},
		// Active alerts that fired earlier are not journaled again.
		ActiveAlerts: []models.Alert{{ID: "a-0", Severity: models.SeverityLow}},
	})
	_ = logger.Close()

	events, _ := store.Query(context.Background(), QueryFilter{})
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	e := events[0]

	if diff := cmp.Diff([]string{"alpha", "bravo", "charlie"}, e.UnitIDs); diff != "" {
		t.Errorf("UnitIDs mismatch (-want +got):\n%s", diff)
	}
	if e.Type != EventTypeAlertFired || e.Severity != SeverityWarning {
		t.Errorf("got type %s severity %s, want alert.fired warning", e.Type, e.Severity)
	}
	if !e.Timestamp.Equal(created) {
		t.Errorf("Timestamp = %v, want alert creation time %v", e.Timestamp, created)
	}
	if e.Source.Component != ComponentCorrelator {
		t.Errorf("Source.Component = %q, want %q", e.Source.Component, ComponentCorrelator)
	}

	var meta map[string]string
	if err := json.Unmarshal(e.Metadata, &meta); err != nil {
		t.Fatalf("metadata is not JSON: %v", err)
	}
	if meta["alert_id"] != "a-1" || meta["rule"] != string(models.RuleCoordinatedCluster) {
		t.Errorf("metadata = %v", meta)
	}
}

func TestLogger_LogUnitChangeCarriesRequestContext(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(10)
	logger := NewLogger(store, testConfig())

	req := httptest.NewRequest("PUT", "/api/v1/units/alpha-1/status", nil)
	req.RemoteAddr = "203.0.113.9:41000"
	req.Header.Set("User-Agent", "fleet-console/1.0")
	req = req.WithContext(logging.ContextWithRequestID(req.Context(), "req-42"))

	logger.LogUnitChange(req, EventTypeUnitStatusChanged, "alpha-1", "Unit status changed", map[string]string{"status": "offline"})
	logger.LogUnitChange(req, EventTypeUnitTelemetry, "alpha-1", "Telemetry applied", nil)
	_ = logger.Close()

	events, _ := store.Query(context.Background(), QueryFilter{})
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1 (telemetry is debug)", len(events))
	}

	want := Source{Component: ComponentAPI, IPAddress: "203.0.113.9", UserAgent: "fleet-console/1.0"}
	if diff := cmp.Diff(want, events[0].Source); diff != "" {
		t.Errorf("Source mismatch (-want +got):\n%s", diff)
	}
	if events[0].RequestID != "req-42" {
		t.Errorf("RequestID = %q, want req-42", events[0].RequestID)
	}
	if events[0].Action != "set_status" {
		t.Errorf("Action = %q, want set_status", events[0].Action)
	}
}

func TestSourceFromRequest_BareAddress(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "2001:db8::1"

	if got := SourceFromRequest(req).IPAddress; got != "2001:db8::1" {
		t.Errorf("IPAddress = %q, want 2001:db8::1", got)
	}
}

func TestLogger_CleanupRemovesExpired(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(10)
	logger := NewLogger(store, testConfig())
	defer logger.Close()

	ctx := context.Background()
	now := time.Now()
	_ = store.Save(ctx, &Event{ID: "old", Timestamp: now.Add(-2 * time.Hour)})
	_ = store.Save(ctx, &Event{ID: "new", Timestamp: now})

	logger.cleanup(ctx, now.Add(-time.Hour))

	events, _ := store.Query(ctx, QueryFilter{})
	if len(events) != 1 || events[0].ID != "new" {
		t.Errorf("events after cleanup = %+v, want only 'new'", events)
	}
}

func TestLogger_RunCleanupStopsOnCancel(t *testing.T) {
	t.Parallel()

	logger := NewLogger(NewMemoryStore(10), &Config{
		Enabled:         true,
		BufferSize:      1,
		Retention:       time.Hour,
		CleanupInterval: time.Millisecond,
	})
	defer logger.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- logger.RunCleanup(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("RunCleanup() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunCleanup did not return after cancel")
	}
}
