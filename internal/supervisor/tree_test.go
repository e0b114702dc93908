// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

// mockService runs until canceled, after failing the first failures starts.
type mockService struct {
	name     string
	failures int32
	starts   atomic.Int32
}

func (m *mockService) Serve(ctx context.Context) error {
	if m.starts.Add(1) <= m.failures {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockService) String() string { return m.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func waitStarts(t *testing.T, svc *mockService, n int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for svc.starts.Load() < n {
		if time.Now().After(deadline) {
			t.Fatalf("%s started %d times, want at least %d", svc.name, svc.starts.Load(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewSupervisorTreeDefaults(t *testing.T) {
	t.Parallel()

	tree, err := NewSupervisorTree(testLogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("NewSupervisorTree() error = %v", err)
	}
	if tree.Root() == nil {
		t.Fatal("Root() = nil")
	}
	if tree.config != DefaultTreeConfig() {
		t.Errorf("config = %+v, want defaults %+v", tree.config, DefaultTreeConfig())
	}
}

func TestSupervisorTreeStartsEveryLayer(t *testing.T) {
	t.Parallel()

	tree, _ := NewSupervisorTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})
	sim := &mockService{name: "sim"}
	hub := &mockService{name: "hub"}
	api := &mockService{name: "api"}
	tree.AddSimulationService(sim)
	tree.AddMessagingService(hub)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	for _, svc := range []*mockService{sim, hub, api} {
		waitStarts(t, svc, 1)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not shut down in time")
	}

	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport() error = %v", err)
	}
	if len(report) != 0 {
		t.Errorf("unstopped services: %v", report)
	}
}

func TestSupervisorTreeRestartsFailingService(t *testing.T) {
	t.Parallel()

	tree, _ := NewSupervisorTree(testLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})
	exporter := &mockService{name: "exporter", failures: 2}
	sim := &mockService{name: "sim"}
	tree.AddMessagingService(exporter)
	tree.AddSimulationService(sim)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = tree.Serve(ctx) }()

	waitStarts(t, exporter, 3)
	waitStarts(t, sim, 1)
	if sim.starts.Load() != 1 {
		t.Errorf("simulation restarted %d times after messaging failures", sim.starts.Load()-1)
	}
}

func TestSupervisorTreeAddUnknownLayerPanics(t *testing.T) {
	t.Parallel()

	tree, _ := NewSupervisorTree(testLogger(), TreeConfig{})
	defer func() {
		if recover() == nil {
			t.Error("Add with an unknown layer did not panic")
		}
	}()
	tree.Add(Layer("storage-layer"), &mockService{name: "x"})
}
