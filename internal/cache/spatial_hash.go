// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package cache

import (
	"math"
	"sync"

	"github.com/tomtom215/fleetwatch/internal/geo"
)

// metersPerDegree is the great-circle length of one degree of latitude.
const metersPerDegree = 2 * math.Pi * geo.EarthRadiusMeters / 360

// SpatialHashGrid divides the globe into cells for fast proximity queries.
//
// Time Complexity:
//   - Insert: O(1)
//   - Query nearby: O(k) where k = entries in the inspected cells
//   - Remove: O(cell size)
type SpatialHashGrid struct {
	mu       sync.RWMutex
	cells    map[CellKey]*Cell
	cellSize float64 // degrees of latitude per row
	lonCell  float64 // degrees of longitude per column; divides 360 exactly
	columns  int     // cells per latitude band
	entries  map[string]*SpatialEntry
}

// CellKey represents a grid cell coordinate.
type CellKey struct {
	X, Y int
}

// Cell contains all entries in a grid cell.
type Cell struct {
	entries []*SpatialEntry
}

// SpatialEntry is one indexed point.
type SpatialEntry struct {
	ID      string
	Lat     float64
	Lon     float64
	cellKey CellKey
}

// NewSpatialHashGrid creates a grid whose cells are cellSizeMeters tall.
// A cell size equal to the usual query radius keeps most queries to a 3x3
// block. Non-positive sizes default to 1 km.
func NewSpatialHashGrid(cellSizeMeters float64) *SpatialHashGrid {
	if cellSizeMeters <= 0 {
		cellSizeMeters = 1000
	}
	cellSizeDeg := math.Min(cellSizeMeters/metersPerDegree, 360)
	columns := int(math.Ceil(360 / cellSizeDeg))

	return &SpatialHashGrid{
		cells:    make(map[CellKey]*Cell),
		cellSize: cellSizeDeg,
		lonCell:  360 / float64(columns),
		columns:  columns,
		entries:  make(map[string]*SpatialEntry),
	}
}

// getCellKey returns the cell for a coordinate. Longitude is normalized so
// 180 and -180 share a column.
func (g *SpatialHashGrid) getCellKey(lat, lon float64) CellKey {
	lon = geo.NormalizeLongitude(lon)
	return CellKey{
		X: g.column(int(math.Floor((lon + 180) / g.lonCell))),
		Y: int(math.Floor(lat / g.cellSize)),
	}
}

// column wraps a column index into [0, columns).
func (g *SpatialHashGrid) column(x int) int {
	x %= g.columns
	if x < 0 {
		x += g.columns
	}
	return x
}

// Insert adds or moves an entry.
func (g *SpatialHashGrid) Insert(id string, lat, lon float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.entries[id]; ok {
		g.removeFromCellUnlocked(existing)
	}

	entry := &SpatialEntry{
		ID:      id,
		Lat:     lat,
		Lon:     lon,
		cellKey: g.getCellKey(lat, lon),
	}

	cell, exists := g.cells[entry.cellKey]
	if !exists {
		cell = &Cell{entries: make([]*SpatialEntry, 0, 4)}
		g.cells[entry.cellKey] = cell
	}
	cell.entries = append(cell.entries, entry)
	g.entries[id] = entry
}

// Remove removes an entry by ID.
func (g *SpatialHashGrid) Remove(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, exists := g.entries[id]
	if !exists {
		return false
	}

	g.removeFromCellUnlocked(entry)
	delete(g.entries, id)
	return true
}

// removeFromCellUnlocked removes an entry from its cell (caller must hold lock).
func (g *SpatialHashGrid) removeFromCellUnlocked(entry *SpatialEntry) {
	cell, exists := g.cells[entry.cellKey]
	if !exists {
		return
	}

	for i, e := range cell.entries {
		if e.ID == entry.ID {
			cell.entries[i] = cell.entries[len(cell.entries)-1]
			cell.entries = cell.entries[:len(cell.entries)-1]
			break
		}
	}

	if len(cell.entries) == 0 {
		delete(g.cells, entry.cellKey)
	}
}

// Get returns a copy of an entry by ID.
func (g *SpatialHashGrid) Get(id string) (SpatialEntry, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	entry, exists := g.entries[id]
	if !exists {
		return SpatialEntry{}, false
	}
	return *entry, true
}

// QueryNearby returns copies of all entries within radiusMeters of the
// point, in no particular order.
func (g *SpatialHashGrid) QueryNearby(lat, lon, radiusMeters float64) []SpatialEntry {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var results []SpatialEntry
	g.visitCandidates(lat, lon, radiusMeters, func(entry *SpatialEntry) bool {
		if geo.Distance(lat, lon, entry.Lat, entry.Lon) <= radiusMeters {
			results = append(results, *entry)
		}
		return true
	})
	return results
}

// AnyWithin reports whether at least one entry lies within radiusMeters of
// the point. It stops at the first hit.
func (g *SpatialHashGrid) AnyWithin(lat, lon, radiusMeters float64) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	found := false
	g.visitCandidates(lat, lon, radiusMeters, func(entry *SpatialEntry) bool {
		if geo.Distance(lat, lon, entry.Lat, entry.Lon) <= radiusMeters {
			found = true
			return false
		}
		return true
	})
	return found
}

// visitCandidates calls fn for every entry in a cell that may hold points
// within radiusMeters, until fn returns false. Caller must hold the lock.
func (g *SpatialHashGrid) visitCandidates(lat, lon, radiusMeters float64, fn func(*SpatialEntry) bool) {
	if radiusMeters < 0 {
		return
	}

	// Any point within the radius differs in latitude by at most this much.
	latSpan := radiusMeters / metersPerDegree
	minY := int(math.Floor((lat - latSpan) / g.cellSize))
	maxY := int(math.Floor((lat + latSpan) / g.cellSize))

	lonSpan, bounded := longitudeSpan(lat, latSpan)
	if !bounded || 2*lonSpan/g.lonCell+2 >= float64(g.columns) {
		// Whole latitude band.
		for key, cell := range g.cells {
			if key.Y < minY || key.Y > maxY {
				continue
			}
			for _, entry := range cell.entries {
				if !fn(entry) {
					return
				}
			}
		}
		return
	}

	lon = geo.NormalizeLongitude(lon)
	minX := int(math.Floor((lon + 180 - lonSpan) / g.lonCell))
	maxX := int(math.Floor((lon + 180 + lonSpan) / g.lonCell))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			cell, exists := g.cells[CellKey{X: g.column(x), Y: y}]
			if !exists {
				continue
			}
			for _, entry := range cell.entries {
				if !fn(entry) {
					return
				}
			}
		}
	}
}

// longitudeSpan bounds the longitude difference of points within latSpan
// degrees of arc from a point at lat. It reports false when the circle
// reaches a pole, where every longitude is in range.
func longitudeSpan(lat, latSpan float64) (float64, bool) {
	maxAbsLat := math.Abs(lat) + latSpan
	if maxAbsLat >= 90 {
		return 0, false
	}
	ratio := math.Sin(latSpan*math.Pi/180) / math.Cos(maxAbsLat*math.Pi/180)
	if ratio >= 1 {
		return 0, false
	}
	return math.Asin(ratio) * 180 / math.Pi, true
}

// Size returns the total number of entries.
func (g *SpatialHashGrid) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

// NumCells returns the number of non-empty cells.
func (g *SpatialHashGrid) NumCells() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.cells)
}

// Clear removes all entries.
func (g *SpatialHashGrid) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.cells = make(map[CellKey]*Cell)
	g.entries = make(map[string]*SpatialEntry)
}
