// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

/*
Package wal is a BadgerDB-backed outbox for alert export.

An alert is written to the outbox before it is published to NATS and
confirmed once the publish succeeds. Whatever is still pending when the
broker is down, or when the process stops, is retried by RetryLoop:

	Write -> pending:<id> --publish ok--> Confirm -> confirmed:<id> --Compact--> gone
	                      \--publish failed--> UpdateAttempt (retried with backoff)

Delivery is at least once. A crash between a successful publish and Confirm
re-publishes the alert; consumers deduplicate on alert_id.

Retry policy:
  - attempt n waits RetryBackoff * 2^n (capped at five minutes) after the
    previous attempt, or after creation for the first retry
  - entries older than EntryTTL or with MaxRetries failed attempts are dropped
  - confirmed entries are removed by Compact after ConfirmedRetention

Keys are "pending:<uuid>" and "confirmed:<uuid>"; values are JSON Entry
records whose Payload holds the event as JSON.
*/
package wal
