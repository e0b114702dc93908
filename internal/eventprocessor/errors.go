// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package eventprocessor

import "errors"

// ErrNilPublisher is returned when an exporter is created without a publisher.
var ErrNilPublisher = errors.New("publisher cannot be nil")

// ErrInvalidConfig is returned when configuration is invalid.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrExporterClosed is returned by Export after Close.
var ErrExporterClosed = errors.New("alert exporter is closed")
