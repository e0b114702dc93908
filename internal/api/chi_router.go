// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/fleetwatch/internal/middleware"
)

// Router binds the handler set to a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil middleware factory uses the defaults.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	handler.origins = mw
	return &Router{handler: handler, chiMiddleware: mw}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Applied to every route, in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)

		r.Get("/health", router.handler.Health)
		r.Get("/alerts", router.handler.Alerts)
		r.Get("/audit", router.handler.Audit)
		r.Post("/telemetry", router.handler.Telemetry)
		r.Get("/ws", router.handler.WebSocket)

		r.Route("/units", func(r chi.Router) {
			r.With(chimiddleware.Compress(5, "application/json")).Get("/", router.handler.Units)
			r.Post("/", router.handler.RegisterUnit)
			r.Get("/{id}", router.handler.Unit)
			r.Delete("/{id}", router.handler.RemoveUnit)
			r.Put("/{id}/status", router.handler.UpdateStatus)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
