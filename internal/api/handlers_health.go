// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package api

import (
	"context"
	"net/http"
	"time"
)

// readinessTimeout bounds the store ping of a readiness probe.
const readinessTimeout = 2 * time.Second

// breakerOpen is the state name reported by an open circuit breaker.
const breakerOpen = "open"

// LivenessStatus is the body of /api/health/live.
type LivenessStatus struct {
	Alive  bool    `json:"alive"`
	Uptime float64 `json:"uptimeSeconds"`
}

// ReadinessStatus is the body (or error details) of /api/health/ready.
type ReadinessStatus struct {
	Ready         bool   `json:"ready"`
	UserStore     string `json:"userStore"`
	MangaDex      string `json:"mangadex"`
	QueueLength   int    `json:"queueLength"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

// HealthLive handles liveness probe requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
//
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} APIResponse{data=LivenessStatus}
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(LivenessStatus{
		Alive:  true,
		Uptime: time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style)
// Returns 200 OK only if the user store answers and the MangaDex circuit
// breaker is not open.
//
// @Summary Readiness probe
// @Tags Health
// @Produce json
// @Success 200 {object} APIResponse{data=ReadinessStatus}
// @Failure 503 {object} APIResponse "Not ready"
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	status := ReadinessStatus{
		UserStore:     "ok",
		MangaDex:      "unknown",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		err := h.store.Ping(ctx)
		cancel()
		if err != nil {
			status.UserStore = "unavailable"
		}
	}
	if h.breaker != nil {
		status.MangaDex = h.breaker.State()
	}
	if h.queue != nil {
		status.QueueLength = h.queue.Len()
	}

	status.Ready = status.UserStore == "ok" && status.MangaDex != breakerOpen
	if !status.Ready {
		rw.ServiceUnavailable("Service is not ready", status)
		return
	}
	rw.Success(status)
}
