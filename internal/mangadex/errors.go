// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package mangadex

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tomtom215/mangashelf/internal/limiter"
)

// ErrBreakerOpen is returned while the MangaDex circuit breaker rejects calls.
var ErrBreakerOpen = errors.New("mangadex: circuit breaker open")

// ErrResponseTooLarge is returned for a successful answer over the body cap.
var ErrResponseTooLarge = errors.New("mangadex: response too large")

// UpstreamError is what Gateway returns when a MangaDex call fails.
// Status is the upstream HTTP status, or 0 when no response arrived.
type UpstreamError struct {
	Path   string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("failed to call upstream %s (status %d): %v", e.Path, e.Status, e.Err)
	}
	return fmt.Sprintf("failed to call upstream %s: %v", e.Path, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// HTTPStatus is the status a controller should answer with.
func (e *UpstreamError) HTTPStatus() int {
	switch {
	case e.Status == http.StatusNotFound:
		return http.StatusNotFound
	case errors.Is(e.Err, ErrBreakerOpen), errors.Is(e.Err, limiter.ErrQueueStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NotFound reports whether err is an upstream 404.
func NotFound(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Status == http.StatusNotFound
}

func wrapUpstream(path string, err error) *UpstreamError {
	ue := &UpstreamError{Path: path, Err: err}
	var se *StatusError
	if errors.As(err, &se) {
		ue.Status = se.Status
	}
	return ue
}
