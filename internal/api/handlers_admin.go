// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/mangashelf/internal/logging"
	"github.com/tomtom215/mangashelf/internal/middleware"
)

// CacheStatsView is the JSON form of cache.Stats.
type CacheStatsView struct {
	Backend     string     `json:"backend"`
	Hits        int64      `json:"hits"`
	Misses      int64      `json:"misses"`
	Evictions   int64      `json:"evictions"`
	TotalKeys   int64      `json:"totalKeys"`
	HitRate     float64    `json:"hitRate"`
	LastCleanup *time.Time `json:"lastCleanup,omitempty"`
}

// UpstreamStatsView describes the MangaDex request path.
type UpstreamStatsView struct {
	Breaker     string `json:"breaker"`
	QueueLength int    `json:"queueLength"`
	MinDelayMs  int64  `json:"minDelayMs"`
}

// AdminStats is the body of GET /api/admin/stats.
type AdminStats struct {
	Cache         CacheStatsView             `json:"cache"`
	Upstream      UpstreamStatsView          `json:"upstream"`
	Endpoints     []middleware.EndpointStats `json:"endpoints"`
	UptimeSeconds int64                      `json:"uptimeSeconds"`
}

// AdminStats reports cache, upstream and per-route latency statistics.
//
// @Summary Runtime statistics
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse{data=AdminStats}
// @Failure 401 {object} APIResponse
// @Failure 403 {object} APIResponse
// @Router /admin/stats [get]
func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats := AdminStats{
		Cache:         h.cacheStats(),
		Upstream:      UpstreamStatsView{Breaker: "disabled"},
		Endpoints:     []middleware.EndpointStats{},
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}
	if h.breaker != nil {
		stats.Upstream.Breaker = h.breaker.State()
	}
	if h.queue != nil {
		stats.Upstream.QueueLength = h.queue.Len()
		stats.Upstream.MinDelayMs = h.queue.MinDelay().Milliseconds()
	}
	if h.perfMon != nil {
		stats.Endpoints = h.perfMon.GetStats()
	}

	NewResponseWriter(w, r).Success(stats)
}

// ClearCache drops every cached MangaDex response.
//
// @Summary Clear the response cache
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse{data=MessageResponse}
// @Router /admin/cache [delete]
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		h.cache.Clear()
		logging.Ctx(r.Context()).Info().Msg("Response cache cleared")
	}
	NewResponseWriter(w, r).Success(MessageResponse{Message: "Cache cleared"})
}

func (h *Handler) cacheStats() CacheStatsView {
	view := CacheStatsView{Backend: h.config.Cache.Backend}
	if h.cache == nil {
		return view
	}
	s := h.cache.GetStats()
	view.Hits = s.Hits
	view.Misses = s.Misses
	view.Evictions = s.Evictions
	view.TotalKeys = s.TotalKeys
	view.HitRate = h.cache.HitRate()
	if !s.LastCleanup.IsZero() {
		last := s.LastCleanup
		view.LastCleanup = &last
	}
	return view
}
