// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/fleetwatch/internal/anomaly"
	"github.com/tomtom215/fleetwatch/internal/api"
	"github.com/tomtom215/fleetwatch/internal/audit"
	"github.com/tomtom215/fleetwatch/internal/config"
	"github.com/tomtom215/fleetwatch/internal/detection"
	"github.com/tomtom215/fleetwatch/internal/logging"
	"github.com/tomtom215/fleetwatch/internal/models"
	"github.com/tomtom215/fleetwatch/internal/simulation"
	"github.com/tomtom215/fleetwatch/internal/store"
	"github.com/tomtom215/fleetwatch/internal/supervisor"
	"github.com/tomtom215/fleetwatch/internal/supervisor/services"
	ws "github.com/tomtom215/fleetwatch/internal/websocket"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Dur("tick_interval", cfg.Simulation.TickInterval).
		Int("min_baseline_samples", cfg.Anomaly.MinBaselineSamples).
		Dur("alert_cooldown", cfg.Threat.AlertCooldown).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Bool("audit_enabled", cfg.Audit.Enabled).
		Msg("Starting Fleetwatch with supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	unitStore := store.NewMemoryStore()
	scorer := anomaly.NewScorer(anomalyConfig(&cfg.Anomaly))
	correlator := detection.NewCorrelator(detection.Config{
		Cooldown:            cfg.Threat.AlertCooldown,
		ClusterRadiusMeters: cfg.Threat.ClusterRadiusM,
		ScoreHistorySize:    cfg.Threat.ScoreHistorySize,
	})

	wsHub := ws.NewHub()

	alertExport, err := InitAlertExport(&cfg.NATS)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize NATS alert export")
	}

	sinks := simulation.FanOut{wsHub}
	if exporter := alertExport.Exporter(); exporter != nil {
		sinks = append(sinks, exporter)
	}

	var journal *audit.Logger
	if cfg.Audit.Enabled {
		journal = audit.NewLogger(audit.NewMemoryStore(cfg.Audit.MaxEvents), auditConfig(&cfg.Audit))
		defer journal.Close()
		sinks = append(sinks, journal)
	}

	engine := simulation.NewEngine(unitStore, sinks, scorer, correlator, simulation.Config{
		TickInterval: cfg.Simulation.TickInterval,
	})
	wsHub.SetInitialPayload(func() *models.StatePayload {
		return engine.StatePayload(models.EventStateInit)
	})

	handler := api.NewHandler(unitStore, engine, wsHub)
	if journal != nil {
		handler.SetJournal(journal)
	}
	router := api.NewRouter(handler, api.NewChiMiddlewareFromConfig(cfg.Security))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	tree.AddSimulationService(services.NewSimulationService(engine))
	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))
	alertExport.AddToSupervisor(tree)
	if journal != nil {
		tree.AddMessagingService(services.NewJournalCleanupService(journal))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	alertExport.Shutdown(shutdownCtx)

	logging.Info().Msg("Application stopped gracefully")
}

// anomalyConfig maps the anomaly config section onto the scorer config.
func anomalyConfig(c *config.AnomalyConfig) anomaly.Config {
	return anomaly.Config{
		MinBaselineSamples: c.MinBaselineSamples,
		HistorySize:        c.HistorySize,
		Forest: anomaly.ForestConfig{
			Trees:         c.Trees,
			SampleSize:    c.SampleSize,
			Contamination: c.Contamination,
			Seed:          c.Seed,
		},
	}
}

// auditConfig maps the audit config section onto the journal config.
func auditConfig(c *config.AuditConfig) *audit.Config {
	return &audit.Config{
		Enabled:         c.Enabled,
		MinSeverity:     audit.Severity(c.MinSeverity),
		Retention:       c.Retention,
		CleanupInterval: c.CleanupInterval,
		BufferSize:      c.BufferSize,
		LogToStdout:     c.LogToStdout,
	}
}
