// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package anomaly

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// eulerGamma is the Euler-Mascheroni constant used by the harmonic number
// approximation in averagePathLength.
const eulerGamma = 0.5772156649015329

// ErrInsufficientSamples is returned by Fit when fewer than two samples are given.
var ErrInsufficientSamples = errors.New("isolation forest needs at least two samples")

// ForestConfig controls isolation forest training.
type ForestConfig struct {
	// Trees is the ensemble size.
	Trees int

	// SampleSize caps the per-tree sub-sample (psi = min(SampleSize, n)).
	SampleSize int

	// Contamination is the expected outlier fraction; it places the
	// decision threshold at that quantile of the training scores.
	Contamination float64

	// Seed makes training reproducible.
	Seed uint64
}

// DefaultForestConfig returns 100 trees, sub-sample 256, contamination 0.1, seed 42.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Trees:         100,
		SampleSize:    256,
		Contamination: 0.1,
		Seed:          42,
	}
}

type isoNode struct {
	feature int
	split   float64
	left    *isoNode
	right   *isoNode
	size    int
	leaf    bool
}

// Forest is a trained isolation forest. It is immutable after Fit.
type Forest struct {
	trees  []*isoNode
	psi    int
	norm   float64
	offset float64
	dims   int
}

// Fit trains a forest on samples. Every sample must have the same length.
func Fit(samples [][]float64, cfg ForestConfig) (*Forest, error) {
	if len(samples) < 2 {
		return nil, ErrInsufficientSamples
	}
	dims := len(samples[0])
	for i, s := range samples {
		if len(s) != dims {
			return nil, fmt.Errorf("sample %d has %d features, want %d", i, len(s), dims)
		}
	}
	if cfg.Trees < 1 {
		cfg.Trees = 1
	}
	if cfg.SampleSize < 2 {
		cfg.SampleSize = 2
	}

	psi := cfg.SampleSize
	if len(samples) < psi {
		psi = len(samples)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(psi))))

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	f := &Forest{
		trees: make([]*isoNode, cfg.Trees),
		psi:   psi,
		norm:  averagePathLength(psi),
		dims:  dims,
	}
	for i := range f.trees {
		f.trees[i] = buildNode(rng, subsample(rng, samples, psi), 0, maxDepth)
	}

	// The decision threshold sits at the contamination quantile of the
	// training scores, so roughly that fraction of the baseline is negative.
	scores := make([]float64, len(samples))
	for i, s := range samples {
		scores[i] = f.ScoreSamples(s)
	}
	sort.Float64s(scores)
	f.offset = percentile(scores, cfg.Contamination)

	return f, nil
}

// percentile interpolates linearly between the closest ranks of sorted at
// position p*(n-1), matching numpy's default percentile method.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	if lo < 0 {
		return sorted[0]
	}
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// ScoreSamples returns the negated anomaly score -2^(-E[h(x)]/c(psi)).
// Values close to -1 are anomalous, values near -0.5 are normal.
func (f *Forest) ScoreSamples(x []float64) float64 {
	var total float64
	for _, tree := range f.trees {
		total += pathLength(tree, x, 0)
	}
	mean := total / float64(len(f.trees))
	return -math.Pow(2, -mean/f.norm)
}

// Decision returns ScoreSamples(x) minus the contamination offset.
// Negative values mark outliers.
func (f *Forest) Decision(x []float64) float64 {
	return f.ScoreSamples(x) - f.offset
}

// Offset returns the decision threshold learned during Fit.
func (f *Forest) Offset() float64 {
	return f.offset
}

// Dims returns the feature count the forest was trained on.
func (f *Forest) Dims() int {
	return f.dims
}

// subsample draws psi samples without replacement.
func subsample(rng *rand.Rand, samples [][]float64, psi int) [][]float64 {
	idx := rng.Perm(len(samples))[:psi]
	out := make([][]float64, psi)
	for i, j := range idx {
		out[i] = samples[j]
	}
	return out
}

func buildNode(rng *rand.Rand, data [][]float64, depth, maxDepth int) *isoNode {
	if len(data) <= 1 || depth >= maxDepth {
		return &isoNode{leaf: true, size: len(data)}
	}

	// Only features that still vary inside this node can split it.
	dims := len(data[0])
	candidates := make([]int, 0, dims)
	lows := make([]float64, dims)
	highs := make([]float64, dims)
	for d := 0; d < dims; d++ {
		lo, hi := data[0][d], data[0][d]
		for _, row := range data[1:] {
			if row[d] < lo {
				lo = row[d]
			}
			if row[d] > hi {
				hi = row[d]
			}
		}
		lows[d], highs[d] = lo, hi
		if hi > lo {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return &isoNode{leaf: true, size: len(data)}
	}

	feature := candidates[rng.IntN(len(candidates))]
	lo, hi := lows[feature], highs[feature]
	split := lo + rng.Float64()*(hi-lo)
	for split <= lo {
		split = lo + rng.Float64()*(hi-lo)
	}

	var left, right [][]float64
	for _, row := range data {
		if row[feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	return &isoNode{
		feature: feature,
		split:   split,
		left:    buildNode(rng, left, depth+1, maxDepth),
		right:   buildNode(rng, right, depth+1, maxDepth),
		size:    len(data),
	}
}

func pathLength(node *isoNode, x []float64, depth int) float64 {
	for !node.leaf {
		if x[node.feature] < node.split {
			node = node.left
		} else {
			node = node.right
		}
		depth++
	}
	return float64(depth) + averagePathLength(node.size)
}

// averagePathLength is c(n), the expected path length of an unsuccessful
// search in a binary search tree of n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		fn := float64(n)
		return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
	}
}
