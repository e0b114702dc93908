// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

// Package metrics registers Fleetwatch's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Simulation Metrics
	SimulationTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "simulation_ticks_total",
			Help: "Total number of completed simulation ticks",
		},
	)

	SimulationTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "simulation_tick_duration_seconds",
			Help:    "Wall-clock time spent processing one tick",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	SimulationUnits = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "simulation_units",
			Help: "Number of units in the last tick snapshot",
		},
	)

	SimulationUnitsMoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "simulation_units_moved_total",
			Help: "Total number of unit position updates applied by the integrator",
		},
	)

	SimulationBroadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "simulation_broadcasts_total",
			Help: "Total number of state payloads published",
		},
	)

	SimulationPersistErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "simulation_persist_errors_total",
			Help: "Total number of write-backs rejected by the store",
		},
	)

	// Anomaly Model Metrics
	AnomalyModelTrained = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "anomaly_model_trained",
			Help: "1 once the outlier model has been fit, 0 while collecting",
		},
	)

	AnomalyBaselineSamples = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "anomaly_baseline_samples",
			Help: "Number of baseline feature vectors collected",
		},
	)

	// Threat Correlation Metrics
	AlertsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threat_alerts_fired_total",
			Help: "Total number of alerts issued",
		},
		[]string{"rule", "severity"},
	)

	AlertsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threat_alerts_suppressed_total",
			Help: "Total number of alerts suppressed by cooldown",
		},
		[]string{"rule"},
	)

	ActiveAlerts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "threat_active_alerts",
			Help: "Number of active alerts",
		},
	)

	UnitsByRiskLevel = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "threat_units_by_risk_level",
			Help: "Units per risk band (low, elevated, high, critical) as of the last tick",
		},
		[]string{"level"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_dropped_total",
			Help: "Total number of WebSocket messages dropped",
		},
		[]string{"reason"},
	)

	// Alert Export Metrics
	AlertExports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_exports_total",
			Help: "Total number of alerts exported to the message bus",
		},
		[]string{"result"}, // "success", "failure", "rejected"
	)

	// Alert Outbox Metrics
	AlertOutboxOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_outbox_operations_total",
			Help: "Total number of alert outbox operations",
		},
		[]string{"op"},
	)

	AlertOutboxPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "alert_outbox_pending_entries",
			Help: "Alerts recorded in the outbox and not yet confirmed as published",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordTick records one completed tick.
func RecordTick(duration time.Duration, units, moved int) {
	SimulationTicks.Inc()
	SimulationTickDuration.Observe(duration.Seconds())
	SimulationUnits.Set(float64(units))
	SimulationUnitsMoved.Add(float64(moved))
}

// SetModelStatus mirrors the anomaly scorer phase.
func SetModelStatus(trained bool, baselineSamples int) {
	if trained {
		AnomalyModelTrained.Set(1)
	} else {
		AnomalyModelTrained.Set(0)
	}
	AnomalyBaselineSamples.Set(float64(baselineSamples))
}

// RecordAlertFired counts an issued alert.
func RecordAlertFired(rule, severity string) {
	AlertsFired.WithLabelValues(rule, severity).Inc()
}

// RecordAlertSuppressed counts an alert held back by cooldown.
func RecordAlertSuppressed(rule string) {
	AlertsSuppressed.WithLabelValues(rule).Inc()
}

// SetUnitsByRiskLevel replaces the per-band unit gauge. Bands missing from
// counts are reset to zero.
func SetUnitsByRiskLevel(levels []string, counts map[string]int) {
	for _, level := range levels {
		UnitsByRiskLevel.WithLabelValues(level).Set(float64(counts[level]))
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordAlertExport counts one export attempt by result.
func RecordAlertExport(result string) {
	AlertExports.WithLabelValues(result).Inc()
}

// Alert outbox operations.
const (
	OutboxWrite   = "write"
	OutboxConfirm = "confirm"
	OutboxRetry   = "retry"
	OutboxExpired = "expired"
	OutboxDropped = "dropped"
)

// RecordOutboxOp counts one outbox operation.
func RecordOutboxOp(op string) {
	AlertOutboxOps.WithLabelValues(op).Inc()
}

// SetOutboxPending sets the pending outbox entry gauge.
func SetOutboxPending(n int64) {
	AlertOutboxPending.Set(float64(n))
}
