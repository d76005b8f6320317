// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/mangashelf/internal/metrics"
)

func TestPrometheusMetrics_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/metrics-test/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/metrics-test/items/{id}", "201")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics-test/items/"+id, nil))
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d", rec.Code)
		}
	}

	if got := testutil.ToFloat64(counter) - before; got != 3 {
		t.Errorf("counter delta = %v, want 3", got)
	}
}

func TestPrometheusMetrics_ImplicitOKAndUnmatched(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/metrics-test/plain", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	ok := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/metrics-test/plain", "200")
	missing := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, UnmatchedRoute, "404")
	okBefore, missingBefore := testutil.ToFloat64(ok), testutil.ToFloat64(missing)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics-test/plain", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics-test/nowhere", nil))

	if got := testutil.ToFloat64(ok) - okBefore; got != 1 {
		t.Errorf("200 delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(missing) - missingBefore; got != 1 {
		t.Errorf("unmatched delta = %v, want 1", got)
	}
}

func TestRoutePattern_NoRouteContext(t *testing.T) {
	if got := RoutePattern(httptest.NewRequest(http.MethodGet, "/x", nil)); got != UnmatchedRoute {
		t.Errorf("RoutePattern() = %q, want %q", got, UnmatchedRoute)
	}
}
