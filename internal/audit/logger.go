// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package audit

import (
	"context"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/fleetwatch/internal/logging"
	"github.com/tomtom215/fleetwatch/internal/models"
)

// Component names used in Source.Component.
const (
	ComponentAPI        = "api"
	ComponentCorrelator = "correlator"
)

// Config holds configuration for the journal.
type Config struct {
	// Enabled controls whether events are recorded at all.
	Enabled bool

	// MinSeverity drops events below this level.
	MinSeverity Severity

	// Retention is how long events are kept. Zero keeps them until the
	// store evicts them for space.
	Retention time.Duration

	// CleanupInterval is how often retention cleanup runs.
	CleanupInterval time.Duration

	// BufferSize is the size of the async write buffer.
	BufferSize int

	// LogToStdout also writes each event through the application logger.
	LogToStdout bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		MinSeverity:     SeverityInfo,
		Retention:       24 * time.Hour,
		CleanupInterval: 10 * time.Minute,
		BufferSize:      1000,
	}
}

// Logger records journal events asynchronously. Log never blocks: when the
// buffer is full the event is dropped with a warning.
type Logger struct {
	config    *Config
	store     Store
	eventChan chan *Event
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewLogger creates a journal logger and starts its writer goroutine.
func NewLogger(store Store, config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}

	l := &Logger{
		config:    config,
		store:     store,
		eventChan: make(chan *Event, config.BufferSize),
		stopChan:  make(chan struct{}),
	}

	l.wg.Add(1)
	go l.asyncWriter()

	return l
}

func (l *Logger) asyncWriter() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			// Drain what is already buffered.
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	if l.config.LogToStdout {
		data, err := json.Marshal(event)
		if err != nil {
			logging.Error().Err(err).Msg("Failed to marshal audit event")
		} else {
			logging.Info().RawJSON("event", data).Msg("Audit event")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.store.Save(ctx, event); err != nil {
		logging.Error().Err(err).Str("event_id", event.ID).Msg("Failed to save audit event")
	}
}

// Log records an event, filling in ID and Timestamp when unset.
func (l *Logger) Log(event *Event) {
	if !l.config.Enabled {
		return
	}
	if severityOrder[event.Severity] < severityOrder[l.config.MinSeverity] {
		return
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case <-l.stopChan:
		return
	default:
	}

	select {
	case l.eventChan <- event:
	default:
		logging.Warn().Str("event_id", event.ID).Str("type", string(event.Type)).Msg("Audit event buffer full, dropping event")
	}
}

// Close stops the writer after draining buffered events. It is safe to
// call more than once.
func (l *Logger) Close() error {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
	return nil
}

// RunCleanup deletes events older than the retention window on every
// CleanupInterval until ctx is canceled.
func (l *Logger) RunCleanup(ctx context.Context) error {
	if l.config.Retention <= 0 || l.config.CleanupInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.cleanup(ctx, time.Now().Add(-l.config.Retention))
		}
	}
}

func (l *Logger) cleanup(ctx context.Context, cutoff time.Time) {
	count, err := l.store.Delete(ctx, cutoff)
	if err != nil {
		logging.Error().Err(err).Msg("Audit cleanup error")
		return
	}
	if count > 0 {
		logging.Debug().Int64("count", count).Msg("Cleaned up old audit events")
	}
}

// Query retrieves events matching the filter.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return l.store.Query(ctx, filter)
}

// Count returns the number of events matching the filter.
func (l *Logger) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return l.store.Count(ctx, filter)
}

// Publish journals the alerts fired in a tick. It lets the logger sit in
// the simulation fan-out next to the WebSocket hub.
func (l *Logger) Publish(payload *models.StatePayload) {
	for i := range payload.Alerts {
		l.LogAlert(&payload.Alerts[i])
	}
}

// LogAlert records a fired alert.
func (l *Logger) LogAlert(alert *models.Alert) {
	units := slices.Clone(alert.AffectedUnits)
	slices.Sort(units)

	l.Log(&Event{
		Timestamp:   alert.CreatedAt,
		Type:        EventTypeAlertFired,
		Severity:    alertSeverity(alert.Severity),
		UnitIDs:     units,
		Action:      "fire",
		Description: alert.Message,
		Source:      Source{Component: ComponentCorrelator},
		Metadata: mustJSON(map[string]string{
			"alert_id": alert.ID,
			"rule":     string(alert.Rule),
			"severity": string(alert.Severity),
		}),
	})
}

// LogUnitChange records a unit lifecycle change made through the API.
// details may be nil.
func (l *Logger) LogUnitChange(r *http.Request, eventType EventType, unitID, description string, details map[string]string) {
	event := &Event{
		Type:        eventType,
		Severity:    SeverityInfo,
		UnitIDs:     []string{unitID},
		Action:      actionFor(eventType),
		Description: description,
		Source:      SourceFromRequest(r),
		Metadata:    mustJSON(details),
	}
	if eventType == EventTypeUnitTelemetry {
		event.Severity = SeverityDebug
	}

	ctx := r.Context()
	event.RequestID = logging.RequestIDFromContext(ctx)
	event.CorrelationID = logging.CorrelationIDFromContext(ctx)

	l.Log(event)
}

// SourceFromRequest extracts the client address and agent. RemoteAddr may
// carry a port or, behind a real-IP middleware, a bare address.
func SourceFromRequest(r *http.Request) Source {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}

	return Source{
		Component: ComponentAPI,
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	}
}

func actionFor(eventType EventType) string {
	switch eventType {
	case EventTypeUnitRegistered:
		return "register"
	case EventTypeUnitTelemetry:
		return "update"
	case EventTypeUnitStatusChanged:
		return "set_status"
	case EventTypeUnitRemoved:
		return "remove"
	default:
		return string(eventType)
	}
}

// alertSeverity maps the alert scale onto the journal scale.
func alertSeverity(s models.Severity) Severity {
	switch s {
	case models.SeverityCritical:
		return SeverityCritical
	case models.SeverityHigh, models.SeverityElevated:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

func mustJSON(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
