// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

/*
Package middleware provides the infrastructure HTTP middleware used by the
API router.

Key Components:

  - RequestID: accepts or generates X-Request-ID and seeds the logging context
  - PrometheusMetrics: request counters and latency histograms labelled by
    route pattern
  - PerformanceMonitor: rolling latency window with percentiles, served by
    the admin stats endpoint

All middleware use the chi signature func(http.Handler) http.Handler:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(perf.Middleware)
	r.Use(chimiddleware.Compress(5, "application/json"))

Route labels come from chi's route context, so metrics and stats are keyed
by "/api/manga/{id}" rather than by every distinct manga id. Requests that
match no route are labelled "unmatched".

See Also:

  - internal/api: router and handlers
  - internal/metrics: Prometheus collectors
*/
package middleware
