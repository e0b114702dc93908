// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/fleetwatch/internal/logging"
	"github.com/tomtom215/fleetwatch/internal/metrics"
	"github.com/tomtom215/fleetwatch/internal/models"
)

// Export results recorded in metrics.
const (
	ResultPublished   = "published"
	ResultFailed      = "failed"
	ResultRejected    = "breaker_open"
	ResultQueueFull   = "queue_full"
	ResultEncodeError = "encode_error"
)

// Outbox records alerts before they are published so that failed exports
// can be retried later.
type Outbox interface {
	Write(ctx context.Context, event interface{}) (string, error)
	Confirm(ctx context.Context, entryID string) error
	UpdateAttempt(ctx context.Context, entryID, lastError string) error
	TryClaimEntry(entryID string) bool
	ReleaseEntry(entryID string)
}

// AlertExporter forwards newly fired alerts to a message topic. It
// implements simulation.Broadcaster: Publish only enqueues, and Run drains
// the queue so a slow or unreachable broker never stalls the tick loop.
type AlertExporter struct {
	publisher message.Publisher
	subject   string
	breaker   *gobreaker.CircuitBreaker[any]
	queue     chan models.Alert
	outbox    Outbox

	mu     sync.RWMutex
	closed bool
}

// NewAlertExporter wraps pub. The exporter owns pub and closes it in Close.
func NewAlertExporter(pub message.Publisher, cfg ExporterConfig) (*AlertExporter, error) {
	if pub == nil {
		return nil, ErrNilPublisher
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultAlertSubject
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultExporterConfig().QueueSize
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = DefaultExporterConfig().Breaker
	}

	return &AlertExporter{
		publisher: pub,
		subject:   cfg.Subject,
		breaker:   NewCircuitBreaker(cfg.Breaker),
		queue:     make(chan models.Alert, cfg.QueueSize),
	}, nil
}

// SetOutbox makes Run record each alert in o before publishing it. Must be
// called before Run.
func (e *AlertExporter) SetOutbox(o Outbox) {
	e.outbox = o
}

// Publish implements simulation.Broadcaster. Only the alerts fired in this
// payload are exported; the active set is not re-sent.
func (e *AlertExporter) Publish(payload *models.StatePayload) {
	if payload == nil || len(payload.Alerts) == 0 {
		return
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}

	for i := range payload.Alerts {
		select {
		case e.queue <- payload.Alerts[i]:
		default:
			metrics.RecordAlertExport(ResultQueueFull)
			logging.Warn().Str("alert_id", payload.Alerts[i].ID).Msg("alert export queue full, dropping alert")
		}
	}
}

// Export publishes one alert through the circuit breaker.
func (e *AlertExporter) Export(alert *models.Alert) error {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return ErrExporterClosed
	}

	msg, err := AlertMessage(alert)
	if err != nil {
		metrics.RecordAlertExport(ResultEncodeError)
		return err
	}

	_, err = e.breaker.Execute(func() (any, error) {
		return nil, e.publisher.Publish(e.subject, msg)
	})
	switch {
	case err == nil:
		metrics.RecordAlertExport(ResultPublished)
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordAlertExport(ResultRejected)
	default:
		metrics.RecordAlertExport(ResultFailed)
	}
	return fmt.Errorf("export alert %s: %w", alert.ID, err)
}

// Run exports queued alerts until ctx ends.
func (e *AlertExporter) Run(ctx context.Context) error {
	logging.Info().Str("subject", e.subject).Msg("alert exporter started")
	for {
		select {
		case <-ctx.Done():
			logging.Info().Int("pending", len(e.queue)).Msg("alert exporter stopped")
			return ctx.Err()
		case alert := <-e.queue:
			e.exportQueued(ctx, &alert)
		}
	}
}

// exportQueued exports one dequeued alert, recording it in the outbox
// first when one is set. A failed export stays pending in the outbox.
func (e *AlertExporter) exportQueued(ctx context.Context, alert *models.Alert) {
	entryID := ""
	if e.outbox != nil {
		id, err := e.outbox.Write(ctx, alert)
		if err != nil {
			logging.Error().Err(err).Str("alert_id", alert.ID).Msg("alert outbox write failed, exporting without it")
		} else if e.outbox.TryClaimEntry(id) {
			entryID = id
			defer e.outbox.ReleaseEntry(id)
		}
	}

	err := e.Export(alert)
	if err != nil {
		logging.Warn().Err(err).
			Str("rule", string(alert.Rule)).
			Str("breaker", CircuitBreakerState(e.breaker)).
			Bool("queued_for_retry", entryID != "").
			Msg("alert export failed")
	}
	if entryID == "" {
		return
	}

	if err != nil {
		if updateErr := e.outbox.UpdateAttempt(ctx, entryID, err.Error()); updateErr != nil {
			logging.Error().Err(updateErr).Str("entry_id", entryID).Msg("alert outbox attempt update failed")
		}
		return
	}
	if confirmErr := e.outbox.Confirm(ctx, entryID); confirmErr != nil {
		logging.Error().Err(confirmErr).Str("entry_id", entryID).Msg("alert outbox confirm failed")
	}
}

// PublishOutboxEntry re-exports an alert recorded in the outbox. payload
// is the JSON written by Run.
func (e *AlertExporter) PublishOutboxEntry(payload []byte) error {
	var alert models.Alert
	if err := json.Unmarshal(payload, &alert); err != nil {
		return fmt.Errorf("decode outbox alert: %w", err)
	}
	return e.Export(&alert)
}

// Pending returns the number of queued alerts.
func (e *AlertExporter) Pending() int {
	return len(e.queue)
}

// BreakerState returns the circuit breaker state.
func (e *AlertExporter) BreakerState() string {
	return CircuitBreakerState(e.breaker)
}

// Close stops accepting alerts and closes the publisher. Idempotent.
func (e *AlertExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	return e.publisher.Close()
}
