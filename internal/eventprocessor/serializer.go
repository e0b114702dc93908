// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package eventprocessor

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/fleetwatch/internal/models"
)

// Metadata keys set on exported alert messages.
const (
	MetadataRule     = "rule"
	MetadataSeverity = "severity"
)

// AlertMessage wraps an alert in a watermill message keyed by the alert id.
func AlertMessage(alert *models.Alert) (*message.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return nil, fmt.Errorf("marshal alert %s: %w", alert.ID, err)
	}

	msg := message.NewMessage(alert.ID, data)
	msg.Metadata.Set(MetadataRule, string(alert.Rule))
	msg.Metadata.Set(MetadataSeverity, string(alert.Severity))
	msg.Metadata.Set(natsgo.MsgIdHdr, alert.ID)
	return msg, nil
}

// DecodeAlert reads an alert back from a message payload.
func DecodeAlert(msg *message.Message) (models.Alert, error) {
	var alert models.Alert
	if err := json.Unmarshal(msg.Payload, &alert); err != nil {
		return models.Alert{}, fmt.Errorf("unmarshal alert %s: %w", msg.UUID, err)
	}
	return alert, nil
}
