// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package testinfra

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"
)

// CapturedRequest is one request received by FakeMangaDex.
type CapturedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	At     time.Time
}

// FakeMangaDex is an httptest server standing in for the MangaDex API.
// Unregistered paths answer 404 with a MangaDex-style error body.
type FakeMangaDex struct {
	Server *httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	captures []CapturedRequest
}

// NewFakeMangaDex starts a fake server and closes it when the test ends.
func NewFakeMangaDex(t *testing.T) *FakeMangaDex {
	t.Helper()

	f := &FakeMangaDex{routes: make(map[string]http.HandlerFunc)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

func (f *FakeMangaDex) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.captures = append(f.captures, CapturedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		At:     time.Now(),
	})
	handler, ok := f.routes[r.URL.Path]
	f.mu.Unlock()

	if !ok {
		WriteMangaDexError(w, http.StatusNotFound, "not_found_http_exception", "No route found for "+r.URL.Path)
		return
	}
	handler(w, r)
}

// URL returns the server base URL.
func (f *FakeMangaDex) URL() string {
	return f.Server.URL
}

// Handle registers h for an exact path such as "/manga/{uuid}".
func (f *FakeMangaDex) Handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	f.routes[path] = h
	f.mu.Unlock()
}

// HandleJSON registers a fixed JSON response for path.
func (f *FakeMangaDex) HandleJSON(path string, status int, body string) {
	f.Handle(path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	})
}

// Requests returns a copy of all captured requests in arrival order.
func (f *FakeMangaDex) Requests() []CapturedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]CapturedRequest, len(f.captures))
	copy(out, f.captures)
	return out
}

// RequestCount returns how many requests hit path.
func (f *FakeMangaDex) RequestCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.captures {
		if c.Path == path {
			n++
		}
	}
	return n
}

// Reset clears captured requests.
func (f *FakeMangaDex) Reset() {
	f.mu.Lock()
	f.captures = nil
	f.mu.Unlock()
}

// WriteMangaDexError writes an error body in MangaDex's format.
func WriteMangaDexError(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"result":"error","errors":[{"id":"00000000-0000-0000-0000-000000000000","status":%d,"title":%q,"detail":%q}]}`,
		status, title, detail)
}
