// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package anomaly

import (
	"fmt"
	"math"
	"testing"

	"github.com/tomtom215/fleetwatch/internal/models"
	"github.com/tomtom215/fleetwatch/internal/window"
)

// patrol returns three units about 1 km apart moving north in parallel.
func patrol(tick int) []models.Unit {
	units := make([]models.Unit, 3)
	for i := range units {
		speed := 8 + 2*float64(i) + 0.1*float64(tick%3)
		units[i] = models.Unit{
			ID:         fmt.Sprintf("U-%02d", i+1),
			Lat:        0.0001 * float64(tick),
			Lon:        0.009 * float64(i),
			SpeedMPS:   speed,
			HeadingDeg: 0,
			Status:     models.StatusActive,
		}
	}
	return units
}

func TestScorerCollectsThenTrains(t *testing.T) {
	t.Parallel()

	s := NewScorer(DefaultConfig())
	calls := 0
	for tick := 0; tick < 10; tick++ {
		for _, u := range patrol(tick) {
			calls++
			if got := s.Score(&u); got != 0 {
				t.Fatalf("call %d: score = %f while collecting, want 0", calls, got)
			}
			if want := calls >= 30; s.Trained() != want {
				t.Fatalf("call %d: Trained() = %v, want %v", calls, s.Trained(), want)
			}
		}
	}

	if s.BaselineSize() != 30 {
		t.Errorf("BaselineSize() = %d, want 30", s.BaselineSize())
	}

	for tick := 10; tick < 20; tick++ {
		for _, u := range patrol(tick) {
			score := s.Score(&u)
			if score < 0 || score > 1 {
				t.Fatalf("score %f outside [0, 1]", score)
			}
			if score != math.Round(score*1e4)/1e4 {
				t.Fatalf("score %f not rounded to 4 decimals", score)
			}
		}
		if !s.Trained() {
			t.Fatal("model must stay trained")
		}
	}
	if s.BaselineSize() != 30 {
		t.Errorf("baseline grew after training: %d", s.BaselineSize())
	}
}

func TestScorerRecordBaselineTrains(t *testing.T) {
	t.Parallel()

	s := NewScorer(DefaultConfig())
	for i := 0; i < 29; i++ {
		u := models.Unit{ID: "U-01", SpeedMPS: float64(i % 4)}
		s.RecordBaseline(&u)
	}
	if s.Trained() {
		t.Fatal("trained before 30 samples")
	}
	u := models.Unit{ID: "U-02", SpeedMPS: 1}
	s.RecordBaseline(&u)
	if !s.Trained() {
		t.Fatal("expected training at 30 samples")
	}
}

func TestScorerFlagsOutlier(t *testing.T) {
	t.Parallel()

	s := NewScorer(DefaultConfig())
	for tick := 0; tick < 10; tick++ {
		for _, u := range patrol(tick) {
			s.Score(&u)
		}
	}

	typical := patrol(10)[1]
	typicalScore := s.Score(&typical)

	outlier := models.Unit{ID: "U-99", Lat: 0.5, Lon: 0.5, SpeedMPS: 250, Status: models.StatusActive}
	outlierScore := s.Score(&outlier)

	if outlierScore <= typicalScore {
		t.Errorf("outlier score %f should exceed typical score %f", outlierScore, typicalScore)
	}
}

func TestScorerHistoryBounded(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.HistorySize = 5
	s := NewScorer(cfg)
	for i := 0; i < 12; i++ {
		u := models.Unit{ID: "U-01", SpeedMPS: 1}
		s.Score(&u)
	}
	if got := s.HistoryLen("U-01"); got != 5 {
		t.Errorf("HistoryLen() = %d, want 5", got)
	}
	if got := s.HistoryLen("ghost"); got != 0 {
		t.Errorf("HistoryLen(ghost) = %d, want 0", got)
	}
}

func TestExtractFeatures(t *testing.T) {
	t.Parallel()

	h := window.New[sample](200)
	for _, smp := range []sample{{1, 0}, {0, 10}, {0.01, 30}, {0.04, 30}} {
		h.Push(smp)
	}
	positions := map[string]models.Position{
		"U-01": {Lat: 0, Lon: 0},
		"U-02": {Lat: 0, Lon: 0.0009},
		"U-03": {Lat: 1, Lon: 1},
	}
	u := models.Unit{ID: "U-01", SpeedMPS: 2.04}

	v := extractFeatures(&u, h, positions)

	if v[FeatureSpeed] != 2.04 {
		t.Errorf("speed = %f, want 2.04", v[FeatureSpeed])
	}
	if math.Abs(v[FeatureAcceleration]-2.0) > 1e-12 {
		t.Errorf("acceleration = %f, want 2", v[FeatureAcceleration])
	}
	if math.Abs(v[FeatureNearestDistance]-100.075) > 0.01 {
		t.Errorf("nearest distance = %f, want ~100.08", v[FeatureNearestDistance])
	}
	// headings 0,10,30,30 give deltas 10,20,0 with population std-dev 8.165.
	if math.Abs(v[FeatureHeadingContinuity]-8.16497) > 1e-4 {
		t.Errorf("heading continuity = %f, want 8.165", v[FeatureHeadingContinuity])
	}
	if v[FeatureStationaryRun] != 3 {
		t.Errorf("stationary run = %f, want 3", v[FeatureStationaryRun])
	}
}

func TestExtractFeaturesWithoutHistory(t *testing.T) {
	t.Parallel()

	u := models.Unit{ID: "U-01", SpeedMPS: 3}
	v := extractFeatures(&u, window.New[sample](10), map[string]models.Position{"U-01": {}})

	want := FeatureVector{3, 0, maxNeighborDistance, 0, 0}
	if v != want {
		t.Errorf("features = %v, want %v", v, want)
	}
}

func TestHeadingContinuityUsesLastTen(t *testing.T) {
	t.Parallel()

	h := window.New[sample](200)
	h.Push(sample{heading: 180})
	for i := 0; i < 10; i++ {
		h.Push(sample{heading: float64(i * 5)})
	}
	// The 180 heading has scrolled out of the last ten, so all deltas are 5.
	if got := headingContinuity(h.Tail(continuityWindow)); math.Abs(got) > 1e-12 {
		t.Errorf("continuity = %f, want 0", got)
	}
}
