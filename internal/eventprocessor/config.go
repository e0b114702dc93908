// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package eventprocessor

import (
	"fmt"
	"time"
)

// DefaultAlertSubject is the NATS subject alerts are published on.
const DefaultAlertSubject = "fleet.alerts"

// ServerConfig holds embedded NATS server configuration. JetStream is never
// enabled; alerts are fire-and-forget.
type ServerConfig struct {
	Host string
	// Port -1 picks a random free port.
	Port       int
	MaxPayload int32
}

// DefaultServerConfig returns defaults for the embedded NATS server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:       "127.0.0.1",
		Port:       4222,
		MaxPayload: 1 << 20,
	}
}

// PublisherConfig holds NATS publisher configuration.
type PublisherConfig struct {
	URL             string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int
}

// DefaultPublisherConfig returns defaults for a core NATS publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:             url,
		MaxReconnects:   -1, // Unlimited
		ReconnectWait:   2 * time.Second,
		ReconnectBuffer: 1 << 20,
	}
}

// Validate checks the publisher configuration.
func (c PublisherConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: nats url is required", ErrInvalidConfig)
	}
	return nil
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Consecutive failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// ExporterConfig configures the AlertExporter.
type ExporterConfig struct {
	Subject string

	// QueueSize bounds alerts waiting to be exported.
	QueueSize int

	Breaker CircuitBreakerConfig
}

// DefaultExporterConfig returns defaults for the alert exporter.
func DefaultExporterConfig() ExporterConfig {
	return ExporterConfig{
		Subject:   DefaultAlertSubject,
		QueueSize: 256,
		Breaker:   DefaultCircuitBreakerConfig("alert-export"),
	}
}
