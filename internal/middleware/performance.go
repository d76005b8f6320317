// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package middleware

import (
	"net/http"
	"sort"
	"sync"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tomtom215/mangashelf/internal/logging"
)

// Defaults for NewPerformanceMonitor.
const (
	DefaultPerformanceWindow = 1000
	DefaultSlowThreshold     = time.Second
)

// RequestMetrics tracks performance metrics for API requests
type RequestMetrics struct {
	Route      string
	Method     string
	DurationMS int64
	StatusCode int
	Timestamp  time.Time
}

// EndpointStats contains aggregated statistics for an endpoint
type EndpointStats struct {
	Endpoint     string  `json:"endpoint"`
	RequestCount int64   `json:"requestCount"`
	ErrorCount   int64   `json:"errorCount"`
	AvgDuration  float64 `json:"avgMs"`
	P50Duration  int64   `json:"p50Ms"`
	P95Duration  int64   `json:"p95Ms"`
	P99Duration  int64   `json:"p99Ms"`
	MinDuration  int64   `json:"minMs"`
	MaxDuration  int64   `json:"maxMs"`
}

// PerformanceMonitor keeps the most recent requests in a ring buffer.
type PerformanceMonitor struct {
	mu   sync.RWMutex
	ring []RequestMetrics
	next int
	full bool
	slow time.Duration
	now  func() time.Time
}

// NewPerformanceMonitor keeps the last window requests and warns about
// requests slower than slow. Non-positive arguments select the defaults.
func NewPerformanceMonitor(window int, slow time.Duration) *PerformanceMonitor {
	if window <= 0 {
		window = DefaultPerformanceWindow
	}
	if slow <= 0 {
		slow = DefaultSlowThreshold
	}
	return &PerformanceMonitor{
		ring: make([]RequestMetrics, window),
		slow: slow,
		now:  time.Now,
	}
}

// RecordRequest adds a request metric
func (pm *PerformanceMonitor) RecordRequest(metric *RequestMetrics) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.ring[pm.next] = *metric
	pm.next = (pm.next + 1) % len(pm.ring)
	if pm.next == 0 {
		pm.full = true
	}
}

// Len is the number of samples currently held.
func (pm *PerformanceMonitor) Len() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	if pm.full {
		return len(pm.ring)
	}
	return pm.next
}

// GetStats aggregates the window per "METHOD route", busiest first.
func (pm *PerformanceMonitor) GetStats() []EndpointStats {
	pm.mu.RLock()
	samples := pm.ring[:pm.next]
	if pm.full {
		samples = pm.ring
	}
	durations := make(map[string][]int64)
	failures := make(map[string]int64)
	for _, m := range samples {
		key := m.Method + " " + m.Route
		durations[key] = append(durations[key], m.DurationMS)
		if m.StatusCode >= http.StatusInternalServerError {
			failures[key]++
		}
	}
	pm.mu.RUnlock()

	stats := make([]EndpointStats, 0, len(durations))
	for endpoint, sorted := range durations {
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, d := range sorted {
			sum += d
		}

		stats = append(stats, EndpointStats{
			Endpoint:     endpoint,
			RequestCount: int64(len(sorted)),
			ErrorCount:   failures[endpoint],
			AvgDuration:  float64(sum) / float64(len(sorted)),
			P50Duration:  percentile(sorted, 0.50),
			P95Duration:  percentile(sorted, 0.95),
			P99Duration:  percentile(sorted, 0.99),
			MinDuration:  sorted[0],
			MaxDuration:  sorted[len(sorted)-1],
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].RequestCount != stats[j].RequestCount {
			return stats[i].RequestCount > stats[j].RequestCount
		}
		return stats[i].Endpoint < stats[j].Endpoint
	})
	return stats
}

// Middleware creates an HTTP middleware for performance monitoring
func (pm *PerformanceMonitor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		route := RoutePattern(r)
		pm.RecordRequest(&RequestMetrics{
			Route:      route,
			Method:     r.Method,
			DurationMS: elapsed.Milliseconds(),
			StatusCode: statusOf(ww.Status()),
			Timestamp:  pm.now(),
		})

		if elapsed > pm.slow {
			logging.Ctx(r.Context()).Warn().
				Str("method", r.Method).
				Str("route", route).
				Dur("duration", elapsed).
				Msg("Slow request detected")
		}
	})
}

// percentile calculates the percentile value from a sorted slice
func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	index := int(float64(len(sorted)-1) * p)
	return sorted[index]
}
