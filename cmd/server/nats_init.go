// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tomtom215/fleetwatch/internal/config"
	"github.com/tomtom215/fleetwatch/internal/eventprocessor"
	"github.com/tomtom215/fleetwatch/internal/logging"
	"github.com/tomtom215/fleetwatch/internal/supervisor"
	"github.com/tomtom215/fleetwatch/internal/supervisor/services"
	"github.com/tomtom215/fleetwatch/internal/wal"
)

// AlertExportComponents holds the NATS alert export pipeline for lifecycle
// management.
type AlertExportComponents struct {
	server   *eventprocessor.EmbeddedServer
	exporter *eventprocessor.AlertExporter
	outbox   *wal.BadgerWAL
	retry    *wal.RetryLoop

	mu     sync.Mutex
	closed bool
}

// InitAlertExport builds the NATS alert export pipeline when NATS is enabled.
// It returns nil, nil when disabled.
func InitAlertExport(cfg *config.NATSConfig) (*AlertExportComponents, error) {
	if !cfg.Enabled {
		logging.Info().Msg("NATS alert export disabled (NATS_ENABLED=false)")
		return nil, nil
	}

	components := &AlertExportComponents{}

	natsURL := cfg.URL
	if cfg.EmbeddedServer {
		serverCfg := eventprocessor.DefaultServerConfig()
		serverCfg.Port = cfg.EmbeddedPort

		server, err := eventprocessor.NewEmbeddedServer(serverCfg)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		components.server = server
		natsURL = server.ClientURL()
		logging.Info().Str("url", natsURL).Msg("Embedded NATS server started")
	} else {
		logging.Info().Str("url", natsURL).Msg("Using external NATS server")
	}

	publisher, err := eventprocessor.NewNATSPublisher(eventprocessor.DefaultPublisherConfig(natsURL), nil)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}

	exporterCfg := eventprocessor.DefaultExporterConfig()
	exporterCfg.Subject = cfg.Subject
	exporterCfg.QueueSize = cfg.QueueSize
	exporterCfg.Breaker.FailureThreshold = cfg.BreakerThreshold
	exporterCfg.Breaker.Timeout = cfg.BreakerTimeout

	exporter, err := eventprocessor.NewAlertExporter(publisher, exporterCfg)
	if err != nil {
		_ = publisher.Close()
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create alert exporter: %w", err)
	}
	components.exporter = exporter

	if cfg.Outbox.Enabled {
		if err := components.initOutbox(&cfg.Outbox); err != nil {
			components.Shutdown(context.Background())
			return nil, err
		}
	}

	logging.Info().
		Str("subject", exporterCfg.Subject).
		Int("queue_size", exporterCfg.QueueSize).
		Bool("outbox", components.outbox != nil).
		Msg("NATS alert export initialized")
	return components, nil
}

// initOutbox opens the durable outbox and attaches it to the exporter.
// Alerts pending from a previous run are retried once the retry loop runs.
func (c *AlertExportComponents) initOutbox(cfg *config.OutboxConfig) error {
	walCfg := wal.DefaultConfig()
	walCfg.Path = cfg.Path
	walCfg.SyncWrites = cfg.SyncWrites
	walCfg.RetryInterval = cfg.RetryInterval
	walCfg.MaxRetries = cfg.MaxRetries
	walCfg.EntryTTL = cfg.EntryTTL

	outbox, err := wal.Open(&walCfg)
	if err != nil {
		return fmt.Errorf("open alert outbox: %w", err)
	}
	c.outbox = outbox
	c.exporter.SetOutbox(outbox)

	exporter := c.exporter
	c.retry = wal.NewRetryLoop(outbox, wal.PublisherFunc(func(_ context.Context, entry *wal.Entry) error {
		return exporter.PublishOutboxEntry(entry.Payload)
	}))

	if stats := outbox.Stats(); stats.PendingCount > 0 {
		logging.Info().Int64("pending", stats.PendingCount).Msg("Alert outbox has alerts from a previous run")
	}
	return nil
}

// Exporter returns the alert exporter, or nil for nil components.
func (c *AlertExportComponents) Exporter() *eventprocessor.AlertExporter {
	if c == nil {
		return nil
	}
	return c.exporter
}

// AddToSupervisor registers the exporter's drain loop in the messaging layer.
// It is a no-op for nil components.
func (c *AlertExportComponents) AddToSupervisor(tree *supervisor.SupervisorTree) {
	if c == nil || c.exporter == nil {
		return
	}
	tree.AddMessagingService(services.NewAlertExportService(c.exporter))
	if c.retry != nil {
		tree.AddMessagingService(services.NewOutboxRetryService(c.retry))
	}
	logging.Info().Bool("outbox", c.retry != nil).Msg("Alert exporter added to supervisor tree (messaging layer)")
}

// Shutdown closes the exporter, the outbox and then the embedded server. Safe to call
// more than once and on nil components.
func (c *AlertExportComponents) Shutdown(ctx context.Context) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true

	var errs []error
	if c.exporter != nil {
		if err := c.exporter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close exporter: %w", err))
		}
	}
	if c.outbox != nil {
		if err := c.outbox.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close outbox: %w", err))
		}
	}
	if c.server != nil {
		if err := c.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown embedded NATS: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		logging.Warn().Err(err).Msg("Alert export shutdown incomplete")
		return
	}
	logging.Info().Msg("Alert export shut down")
}
