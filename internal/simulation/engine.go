// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

// Package simulation drives the fixed-interval tick loop.
//
// Each tick snapshots the store, integrates motion for active units, scores
// anomalies and risk, writes back the units that changed, runs fleet-wide
// correlation on a fresh snapshot and publishes one combined payload when
// anything changed or an alert fired.
//
// The anomaly scorer and the correlator are only touched from Tick, and
// Tick calls never overlap, so neither needs its own locking.
package simulation

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/fleetwatch/internal/anomaly"
	"github.com/tomtom215/fleetwatch/internal/detection"
	"github.com/tomtom215/fleetwatch/internal/logging"
	"github.com/tomtom215/fleetwatch/internal/metrics"
	"github.com/tomtom215/fleetwatch/internal/models"
	"github.com/tomtom215/fleetwatch/internal/motion"
	"github.com/tomtom215/fleetwatch/internal/store"
)

// ErrAlreadyRunning is returned by RunWithContext when another loop is
// already driving the engine.
var ErrAlreadyRunning = errors.New("simulation loop already running")

// scoreEpsilon is the smallest score change treated as a change.
const scoreEpsilon = 1e-6

var riskLevels = []string{
	string(models.SeverityLow),
	string(models.SeverityElevated),
	string(models.SeverityHigh),
	string(models.SeverityCritical),
}

// Store is the unit table the engine reads and writes back to.
type Store interface {
	// Snapshot returns independent copies of every unit.
	Snapshot() []models.Unit

	// Persist writes back a unit carrying the Revision it was snapshotted
	// at; it fails with store.ErrNotFound when the unit no longer exists.
	Persist(unit *models.Unit) error
}

// Config holds engine settings.
type Config struct {
	// TickInterval is the nominal wait between ticks.
	TickInterval time.Duration
}

// DefaultConfig returns a one second tick.
func DefaultConfig() Config {
	return Config{TickInterval: time.Second}
}

// TickResult summarizes one tick.
type TickResult struct {
	Units     int
	Moved     int
	Changed   int
	Alerts    []models.Alert
	Published bool
}

// Engine runs the simulation loop.
type Engine struct {
	store      Store
	sink       Broadcaster
	scorer     *anomaly.Scorer
	correlator *detection.Correlator
	interval   time.Duration
	now        func() time.Time

	// tickMu serializes Tick and guards lastTick.
	tickMu   sync.Mutex
	lastTick time.Time

	// looping is held by the one RunWithContext call allowed at a time.
	looping atomic.Bool

	// runMu guards the Start/Stop lifecycle.
	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// statusMu guards the values readers outside the loop may query.
	statusMu     sync.RWMutex
	activeAlerts []models.Alert
	trained      bool
}

// NewEngine wires an engine. sink may be nil, in which case nothing is published.
func NewEngine(st Store, sink Broadcaster, scorer *anomaly.Scorer, correlator *detection.Correlator, cfg Config) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	if sink == nil {
		sink = FanOut(nil)
	}
	return &Engine{
		store:      st,
		sink:       sink,
		scorer:     scorer,
		correlator: correlator,
		interval:   cfg.TickInterval,
		now:        time.Now,
	}
}

// SetClock replaces the wall clock used by the loop.
func (e *Engine) SetClock(now func() time.Time) {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()
	e.now = now
}

// Start launches the loop in the background. It is a no-op when already running.
func (e *Engine) Start(ctx context.Context) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done

	go func() {
		defer close(done)
		if err := e.RunWithContext(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Warn().Err(err).Msg("simulation loop exited")
		}
	}()
}

// Stop cancels the loop and waits for the in-flight tick to finish. It is a
// no-op when the engine is not running.
func (e *Engine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
	e.cancel = nil
	e.done = nil
}

// Running reports whether Start launched a loop that has not been stopped.
func (e *Engine) Running() bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.cancel != nil
}

// RunWithContext runs ticks until ctx is canceled. Cancellation is only
// observed while waiting between ticks; a tick in progress completes. A
// slow tick delays the next one and missed ticks are not replayed. Only one
// loop may run at a time, whether launched by Start or by a supervisor; a
// second call returns ErrAlreadyRunning.
func (e *Engine) RunWithContext(ctx context.Context) error {
	if !e.looping.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.looping.Store(false)

	e.tickMu.Lock()
	e.lastTick = e.now()
	e.tickMu.Unlock()

	logging.Info().Dur("interval", e.interval).Msg("simulation engine started")

	timer := time.NewTimer(e.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("simulation engine stopped")
			return ctx.Err()
		case <-timer.C:
		}

		tickCtx := logging.ContextWithNewCorrelationID(ctx)
		e.tickMu.Lock()
		now := e.now()
		e.tickMu.Unlock()
		e.Tick(tickCtx, now)

		timer.Reset(e.interval)
	}
}

// Tick runs one pipeline pass at time now. The elapsed delta is measured
// from the previous tick; the first tick has a zero delta.
func (e *Engine) Tick(ctx context.Context, now time.Time) TickResult {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	started := time.Now()
	var delta float64
	if !e.lastTick.IsZero() {
		delta = now.Sub(e.lastTick).Seconds()
	}
	e.lastTick = now

	var result TickResult
	units := e.store.Snapshot()
	result.Units = len(units)
	if len(units) == 0 {
		metrics.RecordTick(time.Since(started), 0, 0)
		return result
	}

	stamp := now.UTC()
	for i := range units {
		u := &units[i]
		changed := false

		if u.Status == models.StatusActive && motion.Integrate(u, delta) {
			changed = true
			result.Moved++
		}

		score := e.scorer.Score(u)
		if math.Abs(score-u.AnomalyScore) > scoreEpsilon {
			u.AnomalyScore = score
			changed = true
		}

		risk := e.correlator.ScoreRisk(u.ID, score)
		if math.Abs(risk-u.RiskScore) > scoreEpsilon {
			u.RiskScore = risk
			changed = true
		}

		if !changed {
			continue
		}
		u.LastUpdate = stamp
		if err := e.store.Persist(u); err != nil {
			metrics.SimulationPersistErrors.Inc()
			if errors.Is(err, store.ErrNotFound) {
				logging.Ctx(ctx).Debug().Str("unit_id", u.ID).Msg("unit removed during tick, skipping write-back")
			} else {
				logging.Ctx(ctx).Warn().Err(err).Str("unit_id", u.ID).Msg("write-back failed")
			}
			continue
		}
		result.Changed++
	}

	post := e.store.Snapshot()
	result.Alerts = e.correlator.Evaluate(post)
	active := e.correlator.ActiveAlerts()
	trained := e.scorer.Trained()

	e.statusMu.Lock()
	e.activeAlerts = active
	e.trained = trained
	e.statusMu.Unlock()

	if result.Changed > 0 || len(result.Alerts) > 0 {
		payload := models.NewStatePayload(models.EventStateUpdate, post, now)
		payload.Alerts = result.Alerts
		payload.ActiveAlerts = active
		payload.MLStatus = &models.MLStatus{Trained: trained}
		e.sink.Publish(payload)
		metrics.SimulationBroadcasts.Inc()
		result.Published = true
	}

	metrics.RecordTick(time.Since(started), len(units), result.Moved)
	metrics.SetModelStatus(trained, e.scorer.BaselineSize())
	metrics.SetUnitsByRiskLevel(riskLevels, riskLevelCounts(post))

	logging.Ctx(ctx).Debug().
		Int("units", result.Units).
		Int("moved", result.Moved).
		Int("changed", result.Changed).
		Int("alerts", len(result.Alerts)).
		Float64("delta_s", delta).
		Msg("tick complete")

	return result
}

// ActiveAlerts returns the active alerts as of the last tick.
func (e *Engine) ActiveAlerts() []models.Alert {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	return append([]models.Alert(nil), e.activeAlerts...)
}

// ModelTrained reports whether the anomaly model was trained as of the last tick.
func (e *Engine) ModelTrained() bool {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	return e.trained
}

// StatePayload builds a payload from the current store contents and the
// alert state of the last tick. The API and new WebSocket clients use it
// outside the tick loop.
func (e *Engine) StatePayload(eventType string) *models.StatePayload {
	payload := models.NewStatePayload(eventType, e.store.Snapshot(), time.Now())

	e.statusMu.RLock()
	payload.ActiveAlerts = append([]models.Alert(nil), e.activeAlerts...)
	payload.MLStatus = &models.MLStatus{Trained: e.trained}
	e.statusMu.RUnlock()

	return payload
}

// Publish sends an out-of-band state update, e.g. after a registration.
func (e *Engine) Publish(eventType string) {
	e.sink.Publish(e.StatePayload(eventType))
}

// riskLevelCounts buckets units by ClassifyRisk band.
func riskLevelCounts(units []models.Unit) map[string]int {
	counts := make(map[string]int, len(riskLevels))
	for i := range units {
		counts[string(detection.ClassifyRisk(units[i].RiskScore))]++
	}
	return counts
}
