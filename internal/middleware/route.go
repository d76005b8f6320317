// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// UnmatchedRoute labels requests that no route handled.
const UnmatchedRoute = "unmatched"

// RoutePattern returns the chi pattern that served r. It is only complete
// after the handler chain has run.
func RoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return UnmatchedRoute
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return UnmatchedRoute
}

// statusOf normalises a WrapResponseWriter status; handlers that never call
// WriteHeader answered 200.
func statusOf(status int) int {
	if status == 0 {
		return http.StatusOK
	}
	return status
}
