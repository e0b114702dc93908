// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

/*
Package websocket pushes fleet state to browser clients.

The Hub implements simulation.Broadcaster: every state payload published by
the tick loop or the API is JSON-encoded once and queued on each connected
client. A client that cannot keep up is disconnected instead of slowing the
others down, and the drop is counted in websocket_messages_dropped_total.

Each Client runs two goroutines:
  - readPump answers {"type":"ping"} with {"type":"pong"} and detects disconnects
  - writePump drains the send buffer and sends protocol-level pings

New clients receive a state_init payload from the provider installed with
SetInitialPayload before any state_update.

Usage:

	hub := websocket.NewHub()
	hub.SetInitialPayload(func() *models.StatePayload {
	    return engine.StatePayload(models.EventStateInit)
	})
	tree.AddMessagingService(services.NewWebSocketHubService(hub))

	conn, _ := upgrader.Upgrade(w, r, nil)
	client := websocket.NewClient(hub, conn)
	hub.Register <- client
	client.Start()
*/
package websocket
