// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/fleetwatch/internal/audit"
	"github.com/tomtom215/fleetwatch/internal/logging"
	"github.com/tomtom215/fleetwatch/internal/models"
	"github.com/tomtom215/fleetwatch/internal/store"
	ws "github.com/tomtom215/fleetwatch/internal/websocket"
)

// Simulation is the part of the simulation engine the API reads from and
// notifies.
type Simulation interface {
	ActiveAlerts() []models.Alert
	ModelTrained() bool
	Publish(eventType string)
}

// Journal records unit changes and answers activity queries.
type Journal interface {
	LogUnitChange(r *http.Request, eventType audit.EventType, unitID, description string, details map[string]string)
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
}

// Handler serves the fleet REST API and the WebSocket endpoint.
type Handler struct {
	store     *store.MemoryStore
	sim       Simulation
	wsHub     *ws.Hub
	journal   Journal
	origins   *ChiMiddleware
	startTime time.Time
}

// NewHandler creates the handler set. wsHub may be nil, in which case the
// WebSocket endpoint answers 503.
func NewHandler(st *store.MemoryStore, sim Simulation, wsHub *ws.Hub) *Handler {
	return &Handler{
		store:     st,
		sim:       sim,
		wsHub:     wsHub,
		startTime: time.Now(),
	}
}

// SetJournal enables activity journaling and the audit endpoint.
func (h *Handler) SetJournal(j Journal) {
	h.journal = j
}

// recordChange journals a unit change when a journal is configured.
func (h *Handler) recordChange(r *http.Request, eventType audit.EventType, unitID, description string, details map[string]string) {
	if h.journal != nil {
		h.journal.LogUnitChange(r, eventType, unitID, description, details)
	}
}

// unitPath carries the {id} path parameter through validation.
type unitPath struct {
	UnitID string `json:"id" validate:"required,min=3,max=64,unit_id"`
}

// Health reports liveness and a fleet summary.
//
// @Summary Health check
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.HealthStatus}
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	clients := 0
	if h.wsHub != nil {
		clients = h.wsHub.GetClientCount()
	}

	respondData(w, http.StatusOK, models.HealthStatus{
		Status:       "healthy",
		UnitCount:    h.store.Count(),
		ModelTrained: h.sim.ModelTrained(),
		Clients:      clients,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
	}, start)
}

// Units lists every unit ordered by id.
//
// @Summary List units
// @Tags Units
// @Produce json
// @Success 200 {object} models.APIResponse{data=[]models.PublicUnit}
// @Router /units [get]
func (h *Handler) Units(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondData(w, http.StatusOK, models.PublicUnits(h.store.Snapshot()), start)
}

// Unit returns one unit.
//
// @Summary Get unit
// @Tags Units
// @Produce json
// @Param id path string true "Unit id"
// @Success 200 {object} models.APIResponse{data=models.PublicUnit}
// @Failure 404 {object} models.APIResponse
// @Router /units/{id} [get]
func (h *Handler) Unit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, ok := h.unitID(w, r)
	if !ok {
		return
	}

	unit, err := h.store.Get(id)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondData(w, http.StatusOK, unit.Public(), start)
}

// RegisterUnit creates or replaces a unit and pushes a state update.
//
// @Summary Register unit
// @Tags Units
// @Accept json
// @Produce json
// @Param unit body models.RegisterUnitRequest true "Unit"
// @Success 201 {object} models.APIResponse{data=models.PublicUnit}
// @Failure 400 {object} models.APIResponse
// @Router /units [post]
func (h *Handler) RegisterUnit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.RegisterUnitRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	unit := h.store.Register(&req)
	logging.Ctx(r.Context()).Info().
		Str("unit_id", unit.ID).
		Str("label", unit.Label).
		Msg("Unit registered")
	h.recordChange(r, audit.EventTypeUnitRegistered, unit.ID, "Unit registered", map[string]string{"label": unit.Label})

	h.sim.Publish(models.EventStateUpdate)
	respondData(w, http.StatusCreated, unit.Public(), start)
}

// Telemetry applies a partial update to a unit and pushes a state update.
//
// @Summary Update telemetry
// @Tags Units
// @Accept json
// @Produce json
// @Param update body models.TelemetryUpdateRequest true "Partial update"
// @Success 200 {object} models.APIResponse{data=models.PublicUnit}
// @Failure 400 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /telemetry [post]
func (h *Handler) Telemetry(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.TelemetryUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	unit, err := h.store.Update(&req)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	logging.Ctx(r.Context()).Debug().Str("unit_id", unit.ID).Msg("Telemetry applied")
	h.recordChange(r, audit.EventTypeUnitTelemetry, unit.ID, "Telemetry applied", nil)

	h.sim.Publish(models.EventStateUpdate)
	respondData(w, http.StatusOK, unit.Public(), start)
}

// UpdateStatus changes a unit's lifecycle status.
//
// @Summary Set unit status
// @Tags Units
// @Accept json
// @Produce json
// @Param id path string true "Unit id"
// @Param status body models.StatusUpdateRequest true "Status"
// @Success 200 {object} models.APIResponse{data=models.PublicUnit}
// @Failure 404 {object} models.APIResponse
// @Router /units/{id}/status [put]
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, ok := h.unitID(w, r)
	if !ok {
		return
	}

	var req models.StatusUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	unit, err := h.store.SetStatus(id, req.Status)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	logging.Ctx(r.Context()).Info().
		Str("unit_id", unit.ID).
		Str("status", string(unit.Status)).
		Msg("Unit status changed")
	h.recordChange(r, audit.EventTypeUnitStatusChanged, unit.ID, "Unit status changed", map[string]string{"status": string(unit.Status)})

	h.sim.Publish(models.EventStateUpdate)
	respondData(w, http.StatusOK, unit.Public(), start)
}

// RemoveUnit deletes a unit.
//
// @Summary Remove unit
// @Tags Units
// @Param id path string true "Unit id"
// @Success 204
// @Failure 404 {object} models.APIResponse
// @Router /units/{id} [delete]
func (h *Handler) RemoveUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.unitID(w, r)
	if !ok {
		return
	}

	if err := h.store.Remove(id); err != nil {
		h.respondStoreError(w, err)
		return
	}
	logging.Ctx(r.Context()).Info().Str("unit_id", id).Msg("Unit removed")
	h.recordChange(r, audit.EventTypeUnitRemoved, id, "Unit removed", nil)

	h.sim.Publish(models.EventStateUpdate)
	w.WriteHeader(http.StatusNoContent)
}

// Alerts returns the alerts active as of the last tick.
//
// @Summary Active alerts
// @Tags Alerts
// @Produce json
// @Success 200 {object} models.APIResponse{data=[]models.Alert}
// @Router /alerts [get]
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	alerts := h.sim.ActiveAlerts()
	if alerts == nil {
		alerts = []models.Alert{}
	}
	respondData(w, http.StatusOK, alerts, start)
}

// auditQuery holds the parsed query string of the audit endpoint.
type auditQuery struct {
	UnitID string `json:"unit_id" validate:"omitempty,min=3,max=64,unit_id"`
	Type   string `json:"type" validate:"omitempty,oneof=unit.registered unit.telemetry unit.status_changed unit.removed alert.fired"`
	Limit  int    `json:"limit" validate:"min=1,max=1000"`
}

// Audit lists journal events, newest first.
//
// @Summary Activity journal
// @Tags Alerts
// @Produce json
// @Param unit_id query string false "Only events concerning this unit"
// @Param type query string false "Event type"
// @Param since query string false "RFC 3339 lower bound"
// @Param limit query int false "Maximum events (1-1000, default 100)"
// @Success 200 {object} models.APIResponse{data=[]audit.Event}
// @Failure 400 {object} models.APIResponse
// @Failure 503 {object} models.APIResponse
// @Router /audit [get]
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.journal == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Activity journal disabled", nil)
		return
	}

	params := r.URL.Query()
	q := auditQuery{
		UnitID: params.Get("unit_id"),
		Type:   params.Get("type"),
		Limit:  audit.DefaultQueryFilter().Limit,
	}
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "limit must be an integer", nil)
			return
		}
		q.Limit = limit
	}
	if apiErr := validateRequest(&q); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	filter := audit.QueryFilter{UnitID: q.UnitID, Limit: q.Limit}
	if q.Type != "" {
		filter.Types = []audit.EventType{audit.EventType(q.Type)}
	}
	if raw := params.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "since must be an RFC 3339 timestamp", nil)
			return
		}
		filter.StartTime = &since
	}

	events, err := h.journal.Query(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to query activity journal", err)
		return
	}
	respondData(w, http.StatusOK, events, start)
}

// WebSocket upgrades the connection and registers the client with the hub,
// which greets it with a state_init payload.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "WebSocket service unavailable", nil)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	h.wsHub.Register <- client
	client.Start()
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates the Origin header against the CORS allow
// list. Requests without Origin come from non-browser clients and are only
// accepted when every origin is allowed.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	if h.origins == nil {
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		if h.origins.AllowsAnyOrigin() {
			return true
		}
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if h.origins.AllowsOrigin(origin) {
		return true
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// unitID extracts and validates the {id} path parameter.
func (h *Handler) unitID(w http.ResponseWriter, r *http.Request) (string, bool) {
	p := unitPath{UnitID: chi.URLParam(r, "id")}
	if apiErr := validateRequest(&p); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return "", false
	}
	return p.UnitID, true
}

func (h *Handler) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Unit not found", nil)
		return
	}
	respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", err)
}
