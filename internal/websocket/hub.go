// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fleetwatch/internal/logging"
	"github.com/tomtom215/fleetwatch/internal/metrics"
	"github.com/tomtom215/fleetwatch/internal/models"
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Inbound control message types.
const (
	MessageTypePing = "ping"
	MessageTypePong = "pong"
)

// Drop reasons recorded in metrics.
const (
	dropHubBacklog = "hub_backlog"
	dropSlowClient = "slow_client"
	dropEncode     = "encode_error"
)

// InitialPayloadFunc builds the state_init payload for a new client.
type InitialPayloadFunc func() *models.StatePayload

// Hub maintains the set of active clients and fans state payloads out to them.
// It implements simulation.Broadcaster.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	Register   chan *Client
	Unregister chan *Client
	initial    InitialPayloadFunc
	mu         sync.RWMutex
}

// NewHub creates a Hub. Run it with RunWithContext.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// SetInitialPayload installs the provider used to greet new clients.
// Must be called before the hub is started.
func (h *Hub) SetInitialPayload(fn InitialPayloadFunc) {
	h.initial = fn
}

// RunWithContext runs the hub until ctx is canceled, then closes every client.
//
// Client lifecycle events are drained before broadcasts so a client that
// registered before a payload was published always receives it.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case frame := <-h.broadcast:
			h.broadcastToClients(frame)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(count))
	logging.Info().Uint64("client_id", client.id).Int("total_clients", count).Msg("websocket client connected")

	if h.initial == nil {
		return
	}
	frame, err := encode(h.initial())
	if err != nil {
		metrics.WSMessagesDropped.WithLabelValues(dropEncode).Inc()
		logging.Warn().Err(err).Msg("failed to encode initial state")
		return
	}
	select {
	case client.send <- frame:
		metrics.WSMessagesSent.Inc()
	default:
		metrics.WSMessagesDropped.WithLabelValues(dropSlowClient).Inc()
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(count))
	logging.Info().Uint64("client_id", client.id).Int("total_clients", count).Msg("websocket client disconnected")
}

func (h *Hub) shutdown(ctx context.Context) {
	count := h.GetClientCount()
	h.closeAllClients()

	reason := ShutdownReasonContextCanceled
	if ctx.Err() == context.DeadlineExceeded {
		reason = ShutdownReasonContextDeadline
	}
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(reason)).
		Int("clients_closed", count).
		Msg("websocket hub stopped")
}

// sortedClients must be called with mu held.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// broadcastToClients queues frame on every client. A client whose buffer is
// full is disconnected rather than allowed to stall the others.
func (h *Hub) broadcastToClients(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var dropped []*Client
	for _, client := range h.sortedClients() {
		select {
		case client.send <- frame:
			metrics.WSMessagesSent.Inc()
		default:
			dropped = append(dropped, client)
		}
	}

	for _, client := range dropped {
		close(client.send)
		delete(h.clients, client)
		metrics.WSMessagesDropped.WithLabelValues(dropSlowClient).Inc()
		logging.Warn().Uint64("client_id", client.id).Msg("dropping slow websocket client")
	}
	if len(dropped) > 0 {
		metrics.WSConnections.Set(float64(len(h.clients)))
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.sortedClients() {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WSConnections.Set(0)
}

// Publish encodes payload once and queues it for every client. It never
// blocks; when the hub is backlogged the payload is dropped.
func (h *Hub) Publish(payload *models.StatePayload) {
	frame, err := encode(payload)
	if err != nil {
		metrics.WSMessagesDropped.WithLabelValues(dropEncode).Inc()
		logging.Warn().Err(err).Msg("failed to encode state payload")
		return
	}

	select {
	case h.broadcast <- frame:
	default:
		metrics.WSMessagesDropped.WithLabelValues(dropHubBacklog).Inc()
		logging.Warn().Str("type", payload.Type).Msg("broadcast channel full, dropping state payload")
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encode(payload *models.StatePayload) ([]byte, error) {
	return json.Marshal(payload)
}
