// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

// Package anomaly scores units for behavioral anomalies.
//
// The Scorer has two phases. While collecting, every observation adds a
// feature vector to the baseline pool and scores are 0. When the pool
// reaches MinBaselineSamples an isolation forest is fit once, and from then
// on each observation is scored against it. The model is never refit.
//
// A Scorer is not safe for concurrent use. The simulation engine confines it
// to the tick goroutine.
package anomaly

import (
	"math"

	"github.com/tomtom215/fleetwatch/internal/logging"
	"github.com/tomtom215/fleetwatch/internal/models"
	"github.com/tomtom215/fleetwatch/internal/window"
)

// Config controls the Scorer.
type Config struct {
	MinBaselineSamples int
	HistorySize        int
	Forest             ForestConfig
}

// DefaultConfig returns a baseline of 30 samples and a 200-sample history.
func DefaultConfig() Config {
	return Config{
		MinBaselineSamples: 30,
		HistorySize:        200,
		Forest:             DefaultForestConfig(),
	}
}

// Scorer extracts features per unit and scores them against the baseline model.
type Scorer struct {
	cfg       Config
	history   map[string]*window.Ring[sample]
	positions map[string]models.Position
	baseline  [][]float64
	forest    *Forest
}

// NewScorer creates a Scorer in the collecting phase.
func NewScorer(cfg Config) *Scorer {
	if cfg.MinBaselineSamples < 2 {
		cfg.MinBaselineSamples = 2
	}
	if cfg.HistorySize < 1 {
		cfg.HistorySize = 1
	}
	return &Scorer{
		cfg:       cfg,
		history:   make(map[string]*window.Ring[sample]),
		positions: make(map[string]models.Position),
	}
}

// RecordBaseline observes u without scoring it.
func (s *Scorer) RecordBaseline(u *models.Unit) {
	s.observe(u)
}

// Score observes u and returns its anomaly score in [0, 1]. It returns 0
// until the model has been trained, including on the observation that
// completes the baseline.
func (s *Scorer) Score(u *models.Unit) float64 {
	trained := s.forest != nil
	features := s.observe(u)
	if !trained {
		return 0
	}
	raw := s.forest.Decision(features[:])
	return round4(clamp01(0.5 - raw))
}

// Trained reports whether the model has been fit.
func (s *Scorer) Trained() bool {
	return s.forest != nil
}

// BaselineSize returns the number of collected baseline samples.
func (s *Scorer) BaselineSize() int {
	return len(s.baseline)
}

// HistoryLen returns how many samples are held for a unit.
func (s *Scorer) HistoryLen(unitID string) int {
	if h, ok := s.history[unitID]; ok {
		return h.Len()
	}
	return 0
}

// observe updates the position cache, extracts features from the history
// as it was before this call, records the new sample and, while collecting,
// grows the baseline and trains once it is large enough.
func (s *Scorer) observe(u *models.Unit) FeatureVector {
	s.positions[u.ID] = models.Position{Lat: u.Lat, Lon: u.Lon}

	h, ok := s.history[u.ID]
	if !ok {
		h = window.New[sample](s.cfg.HistorySize)
		s.history[u.ID] = h
	}

	features := extractFeatures(u, h, s.positions)
	h.Push(sample{speed: u.SpeedMPS, heading: u.HeadingDeg})

	if s.forest == nil {
		s.baseline = append(s.baseline, features.Slice())
		if len(s.baseline) >= s.cfg.MinBaselineSamples {
			s.train()
		}
	}
	return features
}

func (s *Scorer) train() {
	forest, err := Fit(s.baseline, s.cfg.Forest)
	if err != nil {
		logging.Error().Err(err).Int("samples", len(s.baseline)).Msg("anomaly model training failed")
		return
	}
	s.forest = forest
	logging.Info().
		Int("samples", len(s.baseline)).
		Int("trees", len(forest.trees)).
		Float64("offset", forest.Offset()).
		Msg("anomaly model trained")
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
