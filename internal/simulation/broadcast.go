// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package simulation

import (
	"fmt"

	"github.com/tomtom215/fleetwatch/internal/logging"
	"github.com/tomtom215/fleetwatch/internal/models"
)

// Broadcaster receives state payloads. Publish must not block on slow
// consumers and must not report transport failures back to the caller.
type Broadcaster interface {
	Publish(payload *models.StatePayload)
}

// FanOut publishes each payload to every broadcaster in order. A panic in
// one broadcaster is logged and does not stop delivery to the others.
type FanOut []Broadcaster

// Publish implements Broadcaster.
func (f FanOut) Publish(payload *models.StatePayload) {
	for i, b := range f {
		publishIsolated(i, b, payload)
	}
}

func publishIsolated(index int, b Broadcaster, payload *models.StatePayload) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Int("broadcaster", index).
				Str("type", fmt.Sprintf("%T", b)).
				Interface("panic", r).
				Msg("broadcaster panicked, payload dropped for this subscriber")
		}
	}()
	b.Publish(payload)
}

// BroadcasterFunc adapts a function to Broadcaster.
type BroadcasterFunc func(payload *models.StatePayload)

// Publish implements Broadcaster.
func (f BroadcasterFunc) Publish(payload *models.StatePayload) {
	f(payload)
}
