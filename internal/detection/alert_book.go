// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package detection

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/fleetwatch/internal/models"
)

// alertBook holds the active alert and last emission time per key.
type alertBook struct {
	cooldown time.Duration
	active   map[AlertKey]models.Alert
	lastSent map[AlertKey]time.Time
}

func newAlertBook(cooldown time.Duration) *alertBook {
	return &alertBook{
		cooldown: cooldown,
		active:   make(map[AlertKey]models.Alert),
		lastSent: make(map[AlertKey]time.Time),
	}
}

// issue returns a new alert for f, or false when the key is still cooling
// down. An issued alert replaces any earlier alert with the same key.
func (b *alertBook) issue(f *Finding, now time.Time) (models.Alert, bool) {
	if last, ok := b.lastSent[f.Key]; ok && now.Sub(last) < b.cooldown {
		return models.Alert{}, false
	}

	alert := models.Alert{
		ID:            uuid.NewString(),
		Rule:          f.Key.Rule,
		Severity:      f.Severity,
		Message:       f.Message,
		AffectedUnits: append([]string(nil), f.Units...),
		CreatedAt:     now.UTC(),
	}
	b.active[f.Key] = alert
	b.lastSent[f.Key] = now
	return alert, true
}

// list returns the active alerts ordered by creation time, then key.
func (b *alertBook) list() []models.Alert {
	type keyed struct {
		key   string
		alert models.Alert
	}
	entries := make([]keyed, 0, len(b.active))
	for k, a := range b.active {
		entries = append(entries, keyed{key: string(k.Rule) + "/" + k.Subject, alert: a})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].alert.CreatedAt.Equal(entries[j].alert.CreatedAt) {
			return entries[i].alert.CreatedAt.Before(entries[j].alert.CreatedAt)
		}
		return entries[i].key < entries[j].key
	})

	out := make([]models.Alert, len(entries))
	for i := range entries {
		out[i] = entries[i].alert
	}
	return out
}

func (b *alertBook) get(key AlertKey) (models.Alert, bool) {
	a, ok := b.active[key]
	return a, ok
}
