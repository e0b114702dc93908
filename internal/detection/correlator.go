// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

// Package detection turns per-unit anomaly scores into risk scores and
// fleet-wide alerts.
//
// The Correlator owns each unit's anomaly score history and the active
// alert book. Rules run once per tick over the whole fleet snapshot; each
// match is gated by a per-key cooldown before it becomes an alert. Alerts
// stay active until the same key fires again after its cooldown, at which
// point the new alert replaces the old one.
//
// A Correlator is not safe for concurrent use. The simulation engine calls
// it only from the tick goroutine.
package detection

import (
	"time"

	"github.com/tomtom215/fleetwatch/internal/logging"
	"github.com/tomtom215/fleetwatch/internal/metrics"
	"github.com/tomtom215/fleetwatch/internal/models"
	"github.com/tomtom215/fleetwatch/internal/window"
)

// Correlator computes risk and evaluates correlation rules.
type Correlator struct {
	cfg     Config
	rules   []Rule
	history map[string]*window.Ring[float64]
	book    *alertBook
	now     func() time.Time
}

// NewCorrelator creates a Correlator with the cluster, immobility and
// high-risk rules registered in that order.
func NewCorrelator(cfg Config) *Correlator {
	if cfg.ScoreHistorySize < 1 {
		cfg.ScoreHistorySize = 1
	}
	c := &Correlator{
		cfg:     cfg,
		history: make(map[string]*window.Ring[float64]),
		book:    newAlertBook(cfg.Cooldown),
		now:     time.Now,
	}
	c.RegisterRule(NewClusterRule(cfg.ClusterRadiusMeters))
	c.RegisterRule(NewImmobileRule())
	c.RegisterRule(NewHighRiskRule())
	return c
}

// SetClock replaces the wall clock used for cooldowns and alert timestamps.
func (c *Correlator) SetClock(now func() time.Time) {
	c.now = now
}

// RegisterRule appends a rule. Rules run in registration order.
func (c *Correlator) RegisterRule(rule Rule) {
	c.rules = append(c.rules, rule)
	logging.Debug().Str("rule", string(rule.Type())).Msg("registered correlation rule")
}

// Evaluate runs every rule over units and returns the alerts issued this
// call. Matches whose key is cooling down are dropped silently.
func (c *Correlator) Evaluate(units []models.Unit) []models.Alert {
	if len(units) == 0 {
		return nil
	}

	fleet := &Fleet{Units: units, ScoreHistoryLen: c.ScoreHistoryLen}
	now := c.now()

	var fired []models.Alert
	for _, rule := range c.rules {
		findings := rule.Evaluate(fleet)
		for i := range findings {
			f := &findings[i]
			alert, ok := c.book.issue(f, now)
			if !ok {
				metrics.RecordAlertSuppressed(string(f.Key.Rule))
				continue
			}
			metrics.RecordAlertFired(string(alert.Rule), string(alert.Severity))
			logging.Info().
				Str("alert_id", alert.ID).
				Str("key", f.Key.String()).
				Str("severity", string(alert.Severity)).
				Strs("units", alert.AffectedUnits).
				Msg("alert fired")
			fired = append(fired, alert)
		}
	}
	metrics.ActiveAlerts.Set(float64(len(c.book.active)))
	return fired
}

// ActiveAlerts returns every active alert, oldest first.
func (c *Correlator) ActiveAlerts() []models.Alert {
	return c.book.list()
}

// ActiveAlert returns the current alert for key, if any.
func (c *Correlator) ActiveAlert(key AlertKey) (models.Alert, bool) {
	return c.book.get(key)
}

// ScoreHistoryLen returns the number of anomaly scores recorded for a unit.
func (c *Correlator) ScoreHistoryLen(unitID string) int {
	if h, ok := c.history[unitID]; ok {
		return h.Len()
	}
	return 0
}

func (c *Correlator) scoreHistory(unitID string) *window.Ring[float64] {
	h, ok := c.history[unitID]
	if !ok {
		h = window.New[float64](c.cfg.ScoreHistorySize)
		c.history[unitID] = h
	}
	return h
}
