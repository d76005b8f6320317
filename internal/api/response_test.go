// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tomtom215/mangashelf/internal/auth"
	"github.com/tomtom215/mangashelf/internal/limiter"
	"github.com/tomtom215/mangashelf/internal/mangadex"
	"github.com/tomtom215/mangashelf/internal/middleware"
	"github.com/tomtom215/mangashelf/internal/validation"
)

func failWith(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Fail(err)
	}))
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestResponseWriter_Fail(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation",
			err:        validation.NewFieldError("limit", "max", 500, "limit must be at most 100"),
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "auth error keeps status and code",
			err:        fmt.Errorf("login: %w", auth.ErrEmailNotVerified),
			wantStatus: http.StatusForbidden,
			wantCode:   auth.CodeEmailNotVerified,
		},
		{
			name:       "upstream not found",
			err:        &mangadex.UpstreamError{Path: "/manga/x", Status: http.StatusNotFound, Err: errors.New("not found")},
			wantStatus: http.StatusNotFound,
			wantCode:   ErrCodeUpstreamNotFound,
		},
		{
			name:       "upstream server error",
			err:        &mangadex.UpstreamError{Path: "/manga", Status: http.StatusBadGateway, Err: errors.New("bad gateway")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrCodeUpstreamFailed,
		},
		{
			name:       "breaker open",
			err:        &mangadex.UpstreamError{Path: "/manga", Err: mangadex.ErrBreakerOpen},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   ErrCodeServiceUnavailable,
		},
		{
			name:       "queue stopped",
			err:        &mangadex.UpstreamError{Path: "/manga", Err: limiter.ErrQueueStopped},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   ErrCodeServiceUnavailable,
		},
		{
			name:       "unknown error",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrCodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := wantError(t, failWith(t, tt.err), tt.wantStatus, tt.wantCode)
			if env.Error.RequestID == "" {
				t.Error("error.request_id missing")
			}
		})
	}
}

func TestResponseWriter_FailHidesInternalDetail(t *testing.T) {
	env := wantError(t, failWith(t, errors.New("dial tcp 10.0.0.5:27017: refused")), http.StatusInternalServerError, ErrCodeInternalError)
	if env.Error.Message != "Internal server error" {
		t.Errorf("message = %q", env.Error.Message)
	}
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		total, count, offset, limit int
		wantMore                    bool
	}{
		{total: 50, count: 12, offset: 0, limit: 12, wantMore: true},
		{total: 50, count: 2, offset: 48, limit: 12, wantMore: false},
		{total: 0, count: 0, offset: 0, limit: 12, wantMore: false},
	}

	for _, tt := range tests {
		p := NewPagination(tt.total, tt.count, tt.offset, tt.limit)
		if p.HasMore != tt.wantMore {
			t.Errorf("NewPagination(%d, %d, %d, %d).HasMore = %v, want %v", tt.total, tt.count, tt.offset, tt.limit, p.HasMore, tt.wantMore)
		}
	}
}
