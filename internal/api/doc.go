// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

/*
Package api exposes the fleet over HTTP using the chi router.

Routes:

	GET    /api/v1/health              liveness, unit count, model phase
	GET    /api/v1/units               all units ordered by id
	POST   /api/v1/units               register (or replace) a unit
	GET    /api/v1/units/{id}          one unit
	DELETE /api/v1/units/{id}          remove a unit
	PUT    /api/v1/units/{id}/status   change lifecycle status
	POST   /api/v1/telemetry           partial telemetry update
	GET    /api/v1/alerts              alerts active as of the last tick
	GET    /api/v1/audit               activity journal (unit changes, fired alerts)
	GET    /api/v1/ws                  WebSocket state stream
	GET    /metrics                    Prometheus exposition

Every JSON response uses the models.APIResponse envelope. Request bodies are
validated with go-playground/validator through internal/validation; failures
return 400 with code VALIDATION_ERROR. Unknown unit ids return 404 NOT_FOUND.

Writes that change the unit table push a state_update payload through the
simulation engine immediately rather than waiting for the next tick.

Middleware, outermost first: request id and logging context, real IP, panic
recovery, CORS (go-chi/cors), then on /api/v1 per-IP rate limiting
(go-chi/httprate), security headers and Prometheus request metrics.
*/
package api
