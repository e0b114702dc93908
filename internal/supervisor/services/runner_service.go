// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package services

import "context"

// ContextRunner is a component whose loop runs until its context ends,
// such as the simulation engine or the websocket hub.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// RunnerService adapts a ContextRunner to suture.Service.
type RunnerService struct {
	run  func(ctx context.Context) error
	name string
}

// NewSimulationService supervises the simulation tick loop.
func NewSimulationService(engine ContextRunner) *RunnerService {
	return &RunnerService{run: engine.RunWithContext, name: "simulation-engine"}
}

// NewWebSocketHubService supervises the websocket hub.
func NewWebSocketHubService(hub ContextRunner) *RunnerService {
	return &RunnerService{run: hub.RunWithContext, name: "websocket-hub"}
}

// AlertExportRunner drains the alert export queue until ctx ends.
type AlertExportRunner interface {
	Run(ctx context.Context) error
}

// NewAlertExportService supervises the NATS alert exporter.
func NewAlertExportService(exporter AlertExportRunner) *RunnerService {
	return &RunnerService{run: exporter.Run, name: "alert-exporter"}
}

// NewOutboxRetryService supervises the alert outbox retry loop.
func NewOutboxRetryService(loop AlertExportRunner) *RunnerService {
	return &RunnerService{run: loop.Run, name: "alert-outbox-retry"}
}

// JournalCleanupRunner enforces journal retention until ctx ends.
type JournalCleanupRunner interface {
	RunCleanup(ctx context.Context) error
}

// NewJournalCleanupService supervises activity journal retention cleanup.
func NewJournalCleanupService(journal JournalCleanupRunner) *RunnerService {
	return &RunnerService{run: journal.RunCleanup, name: "journal-cleanup"}
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	return s.run(ctx)
}

func (s *RunnerService) String() string {
	return s.name
}
