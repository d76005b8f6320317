// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package metrics

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/manga/{id}", "200"))

	RecordAPIRequest("GET", "/api/manga/{id}", "200", 25*time.Millisecond)

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/manga/{id}", "200"))
	if after-before != 1 {
		t.Errorf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests) - before; got != 2 {
		t.Errorf("expected 2 active requests, got %v", got)
	}

	TrackActiveRequest(false)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests) - before; got != 0 {
		t.Errorf("expected 0 active requests, got %v", got)
	}
}

func TestRecordLimiterTask(t *testing.T) {
	tests := []struct {
		outcome string
	}{
		{"success"},
		{"error"},
		{"panic"},
		{"cancelled"},
		{"stopped"},
	}

	for _, tt := range tests {
		t.Run(tt.outcome, func(t *testing.T) {
			before := testutil.ToFloat64(LimiterTasks.WithLabelValues(tt.outcome))
			RecordLimiterTask(tt.outcome, 10*time.Millisecond)
			after := testutil.ToFloat64(LimiterTasks.WithLabelValues(tt.outcome))
			if after-before != 1 {
				t.Errorf("expected %s counter +1, got %v", tt.outcome, after-before)
			}
		})
	}
}

func TestRecordUpstreamCall(t *testing.T) {
	tests := []struct {
		name   string
		status int
		label  string
	}{
		{"ok", 200, "200"},
		{"not found", 404, "404"},
		{"transport error", 0, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := UpstreamRequests.WithLabelValues("/manga", tt.label)
			before := testutil.ToFloat64(c)
			RecordUpstreamCall("/manga", tt.status, 100*time.Millisecond)
			if got := testutil.ToFloat64(c) - before; got != 1 {
				t.Errorf("expected +1 for label %s, got %v", tt.label, got)
			}
		})
	}
}

func TestRecordAuthEvent(t *testing.T) {
	ok := AuthEvents.WithLabelValues("login", "success")
	fail := AuthEvents.WithLabelValues("login", "failure")
	okBefore, failBefore := testutil.ToFloat64(ok), testutil.ToFloat64(fail)

	RecordAuthEvent("login", true)
	RecordAuthEvent("login", false)
	RecordAuthEvent("login", false)

	if got := testutil.ToFloat64(ok) - okBefore; got != 1 {
		t.Errorf("success delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(fail) - failBefore; got != 2 {
		t.Errorf("failure delta = %v, want 2", got)
	}
}

func TestRecordStoreOperation(t *testing.T) {
	errCounter := UserStoreOperations.WithLabelValues("badger", "get_by_email", "error")
	before := testutil.ToFloat64(errCounter)

	RecordStoreOperation("badger", "get_by_email", errors.New("boom"))
	RecordStoreOperation("badger", "get_by_email", nil)

	if got := testutil.ToFloat64(errCounter) - before; got != 1 {
		t.Errorf("error delta = %v, want 1", got)
	}
}

func TestRecordRateLimitHit(t *testing.T) {
	c := APIRateLimitHits.WithLabelValues("/api/auth/login")
	before := testutil.ToFloat64(c)

	RecordRateLimitHit("/api/auth/login")

	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("delta = %v, want 1", got)
	}
}

func TestSetAppInfo(t *testing.T) {
	SetAppInfo("1.2.3")

	if got := testutil.ToFloat64(AppInfo.WithLabelValues("1.2.3", runtime.Version())); got != 1 {
		t.Errorf("app_info = %v, want 1", got)
	}
}
