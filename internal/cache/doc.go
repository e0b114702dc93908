// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

/*
Package cache provides in-memory index structures for hot paths.

SpatialHashGrid buckets points into fixed-size latitude/longitude cells so
radius queries only inspect nearby cells. The threat correlator uses it to
find cluster neighbours without comparing every pair of units.

Queries are exact: cells only prune candidates, and every candidate is
confirmed with the great-circle distance from internal/geo. Columns wrap at
the antimeridian, and a query whose circle reaches a pole scans every column
in its latitude band.
*/
package cache
