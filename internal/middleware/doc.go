// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

/*
Package middleware provides chi-compatible HTTP middleware shared by the API.

  - RequestID: X-Request-ID propagation plus request and correlation ids in
    the request context, picked up by logging.Ctx
  - PrometheusMetrics: request count, latency histogram and in-flight gauge,
    labelled by chi route pattern

Both have the func(http.Handler) http.Handler shape and are installed with
r.Use in internal/api.
*/
package middleware
