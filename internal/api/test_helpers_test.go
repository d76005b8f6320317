// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/mangashelf/internal/auth"
	"github.com/tomtom215/mangashelf/internal/cache"
	"github.com/tomtom215/mangashelf/internal/config"
	"github.com/tomtom215/mangashelf/internal/email"
	"github.com/tomtom215/mangashelf/internal/limiter"
	"github.com/tomtom215/mangashelf/internal/mangadex"
	"github.com/tomtom215/mangashelf/internal/middleware"
	"github.com/tomtom215/mangashelf/internal/testinfra"
	"github.com/tomtom215/mangashelf/internal/users"
)

const (
	testJWTSecret  = "api-test-secret-with-at-least-32-characters"
	testPassword   = "Tr0ub4dor&3-manga"
	testUploadsURL = "https://uploads.example.org"
)

// testServer is a fully wired router in front of a fake MangaDex.
type testServer struct {
	router   http.Handler
	upstream *testinfra.FakeMangaDex
	cache    *cache.Cache
	store    *users.BadgerStore
	mailer   *email.MemorySender
	tokens   *auth.JWTManager
	perf     *middleware.PerformanceMonitor
}

func testConfig(upstreamURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Environment: config.EnvDevelopment},
		MangaDex: config.MangaDexConfig{
			APIURL:          upstreamURL,
			UploadsURL:      testUploadsURL,
			UserAgent:       "mangashelf-test",
			Timeout:         5 * time.Second,
			DefaultLanguage: "vi",
		},
		Cache: config.CacheConfig{Backend: config.CacheBackendMemory, TTL: 5 * time.Minute},
		Security: config.SecurityConfig{
			RateLimitDisabled: true,
			CORSOrigins:       []string{"http://localhost:3000"},
		},
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, nil)
}

// newTestServerWith builds a server; mutate may adjust the config first.
func newTestServerWith(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()

	upstream := testinfra.NewFakeMangaDex(t)
	cfg := testConfig(upstream.URL())
	if mutate != nil {
		mutate(cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	queue := limiter.NewQueue(0)
	go func() { _ = queue.Serve(ctx) }()

	c := cache.New(cfg.Cache.TTL)
	t.Cleanup(func() { _ = c.Close() })

	breaker := mangadex.NewBreakerClient(mangadex.NewClient(&cfg.MangaDex))
	gateway := mangadex.NewGateway(breaker, queue, c)

	db, err := users.OpenBadger("", true)
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	store := users.NewBadgerStore(db)

	tokens, err := auth.NewJWTManager(testJWTSecret, 15*time.Minute)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	mailer := email.NewMemorySender()
	svc := auth.NewService(auth.Options{BcryptCost: bcrypt.MinCost, ResendInterval: time.Minute}, store, auth.NewMemorySessionStore(), mailer, tokens, nil)

	perf := middleware.NewPerformanceMonitor(100, time.Minute)
	handler := NewHandler(Deps{
		Config:   cfg,
		Gateway:  gateway,
		Reshaper: mangadex.NewReshaper(cfg.MangaDex.UploadsURL),
		Auth:     svc,
		Cache:    c,
		Queue:    queue,
		Breaker:  breaker,
		Store:    store,
		Perf:     perf,
	})
	router := NewRouter(handler, NewChiMiddleware(ChiMiddlewareConfigFrom(&cfg.Security)))

	return &testServer{
		router:   router.Setup(),
		upstream: upstream,
		cache:    c,
		store:    store,
		mailer:   mailer,
		tokens:   tokens,
		perf:     perf,
	}
}

// testEnvelope mirrors APIResponse with the payload left undecoded.
type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

type testRequest struct {
	method  string
	path    string
	body    interface{}
	bearer  string
	cookies []*http.Cookie
}

func (s *testServer) do(t *testing.T, req testRequest) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	switch b := req.body.(type) {
	case nil:
		body = bytes.NewReader(nil)
	case string:
		body = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	r := httptest.NewRequest(req.method, req.path, body)
	r.RemoteAddr = "192.0.2.10:41234"
	if req.body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if req.bearer != "" {
		r.Header.Set("Authorization", "Bearer "+req.bearer)
	}
	for _, c := range req.cookies {
		r.AddCookie(c)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	return w
}

func (s *testServer) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, testRequest{method: http.MethodGet, path: path})
}

func (s *testServer) post(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, testRequest{method: http.MethodPost, path: path, body: body})
}

// decode checks the status and parses the envelope, decoding data into out
// when out is non-nil.
func decode(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, out interface{}) testEnvelope {
	t.Helper()

	if w.Code != wantStatus {
		t.Fatalf("status = %d, want %d; body = %s", w.Code, wantStatus, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("Content-Type = %q, want application/json", ct)
	}

	var env testEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v; body = %s", err, w.Body.String())
	}
	if env.Meta == nil || env.Meta.RequestID == "" {
		t.Errorf("meta.requestId missing: %s", w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decode data: %v; data = %s", err, env.Data)
		}
	}
	return env
}

// wantError checks for a failure envelope with the given status and code.
func wantError(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantCode string) testEnvelope {
	t.Helper()

	env := decode(t, w, wantStatus, nil)
	if env.Success {
		t.Fatalf("success = true, want false")
	}
	if env.Error == nil {
		t.Fatalf("error object missing: %s", w.Body.String())
	}
	if env.Error.Code != wantCode {
		t.Errorf("error.code = %q, want %q (message %q)", env.Error.Code, wantCode, env.Error.Message)
	}
	return env
}

// cookie returns the named Set-Cookie from w.
func cookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// createUser stores an account directly, bypassing signup.
func (s *testServer) createUser(t *testing.T, username string, role users.Role, verified bool) *users.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	u := &users.User{
		ID:              "u-" + username,
		Username:        username,
		Email:           username + "@example.com",
		PasswordHash:    string(hash),
		Role:            role,
		IsEmailVerified: verified,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// accessToken issues a token for u.
func (s *testServer) accessToken(t *testing.T, u *users.User) string {
	t.Helper()

	token, _, err := s.tokens.GenerateToken(u)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return token
}
