// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/mangashelf/internal/email"
	"github.com/tomtom215/mangashelf/internal/users"
)

const (
	testSecret   = "test-secret-key-with-at-least-32-characters"
	testPassword = "Tr0ub4dor&3-manga"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	svc      *Service
	store    users.Store
	sessions *MemorySessionStore
	mailer   *email.MemorySender
	clock    *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := users.OpenBadger("", true)
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	clock := newFakeClock()
	tokens, err := NewJWTManager(testSecret, 15*time.Minute)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	tokens.now = clock.Now

	sessions := NewMemorySessionStore()
	sessions.now = clock.Now

	env := &testEnv{
		store:    users.NewBadgerStore(db),
		sessions: sessions,
		mailer:   email.NewMemorySender(),
		clock:    clock,
	}
	env.svc = NewService(Options{
		RefreshTTL:     7 * 24 * time.Hour,
		OTPTTL:         10 * time.Minute,
		ResetTokenTTL:  10 * time.Minute,
		ResendInterval: time.Minute,
		BcryptCost:     bcrypt.MinCost,
	}, env.store, env.sessions, env.mailer, tokens, nil)
	env.svc.now = clock.Now
	env.svc.throttle.now = clock.Now
	return env
}

// signup creates an unverified account and returns the mailed code.
func (e *testEnv) signup(t *testing.T, username, addr string) string {
	t.Helper()
	res, err := e.svc.Signup(context.Background(), SignupInput{
		Username: username,
		Email:    addr,
		Password: testPassword,
	}, RequestInfo{IP: "127.0.0.1"})
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if !res.EmailSent {
		t.Fatal("Signup() EmailSent = false, want true")
	}
	msg, ok := e.mailer.Last(users.NormalizeEmail(addr))
	if !ok {
		t.Fatalf("no verification mail for %s", addr)
	}
	return msg.Secret
}

// verified creates a verified account and returns its login result.
func (e *testEnv) verified(t *testing.T, username, addr string) *AuthResult {
	t.Helper()
	code := e.signup(t, username, addr)
	res, err := e.svc.VerifyEmail(context.Background(), addr, code, RequestInfo{})
	if err != nil {
		t.Fatalf("VerifyEmail() error = %v", err)
	}
	return res
}

func assertAuthError(t *testing.T, err error, want *Error) {
	t.Helper()
	if err == nil {
		t.Fatalf("error = nil, want %s", want.Code)
	}
	e := AsError(err)
	if e.Code != want.Code || e.Status != want.Status {
		t.Fatalf("error = %s (%d %s), want %d %s", err, e.Status, e.Code, want.Status, want.Code)
	}
}
