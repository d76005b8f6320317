// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/mangashelf/internal/users"
)

// sessionStores returns each SessionStore implementation sharing clock.
func sessionStores(t *testing.T, clock *fakeClock) map[string]SessionStore {
	t.Helper()

	memory := NewMemorySessionStore()
	memory.now = clock.Now

	db, err := users.OpenBadger("", true)
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	badgerStore := NewBadgerSessionStore(db)
	badgerStore.now = clock.Now

	return map[string]SessionStore{"memory": memory, "badger": badgerStore}
}

func newTestSession(id, userID string, now time.Time, ttl time.Duration) *Session {
	return &Session{ID: id, UserID: userID, CreatedAt: now, ExpiresAt: now.Add(ttl)}
}

func TestSessionStore_CreateAndTake(t *testing.T) {
	for name, store := range sessionStores(t, newFakeClock()) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			session := newTestSession("s1", "user-1", now, time.Hour)
			session.UserAgent = "agent"

			if err := store.Create(ctx, session); err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			got, err := store.Take(ctx, "s1")
			if err != nil {
				t.Fatalf("Take() error = %v", err)
			}
			if got.UserID != "user-1" || got.UserAgent != "agent" {
				t.Errorf("Take() = %+v", got)
			}
			if _, err := store.Take(ctx, "s1"); !errors.Is(err, ErrSessionNotFound) {
				t.Errorf("second Take() error = %v, want %v", err, ErrSessionNotFound)
			}
			if _, err := store.Take(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
				t.Errorf("Take(missing) error = %v, want %v", err, ErrSessionNotFound)
			}
		})
	}
}

func TestSessionStore_TakeExpired(t *testing.T) {
	clock := newFakeClock()
	stores := sessionStores(t, clock)
	ctx := context.Background()
	for name, store := range stores {
		if err := store.Create(ctx, newTestSession("s1", "user-1", clock.Now(), time.Hour)); err != nil {
			t.Fatalf("%s: Create() error = %v", name, err)
		}
	}
	clock.Advance(time.Hour)

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Take(ctx, "s1"); !errors.Is(err, ErrSessionExpired) {
				t.Errorf("Take() error = %v, want %v", err, ErrSessionExpired)
			}
			if _, err := store.Take(ctx, "s1"); !errors.Is(err, ErrSessionNotFound) {
				t.Errorf("Take() after expiry error = %v, want %v", err, ErrSessionNotFound)
			}
		})
	}
}

func TestSessionStore_DeleteByUserID(t *testing.T) {
	for name, store := range sessionStores(t, newFakeClock()) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			for _, id := range []string{"a", "b", "c"} {
				if err := store.Create(ctx, newTestSession(id, "user-1", now, time.Hour)); err != nil {
					t.Fatalf("Create() error = %v", err)
				}
			}
			if err := store.Create(ctx, newTestSession("other", "user-2", now, time.Hour)); err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			n, err := store.DeleteByUserID(ctx, "user-1")
			if err != nil {
				t.Fatalf("DeleteByUserID() error = %v", err)
			}
			if n != 3 {
				t.Errorf("DeleteByUserID() = %d, want 3", n)
			}
			if _, err := store.Take(ctx, "a"); !errors.Is(err, ErrSessionNotFound) {
				t.Errorf("Take(a) error = %v, want not found", err)
			}
			if _, err := store.Take(ctx, "other"); err != nil {
				t.Errorf("other user's session was removed: %v", err)
			}

			n, _ = store.DeleteByUserID(ctx, "user-1")
			if n != 0 {
				t.Errorf("second DeleteByUserID() = %d, want 0", n)
			}
		})
	}
}

func TestSessionStore_CleanupExpired(t *testing.T) {
	clock := newFakeClock()
	stores := sessionStores(t, clock)
	ctx := context.Background()

	for name, store := range stores {
		if err := store.Create(ctx, newTestSession("short", "user-1", clock.Now(), time.Minute)); err != nil {
			t.Fatalf("%s: Create() error = %v", name, err)
		}
		if err := store.Create(ctx, newTestSession("long", "user-1", clock.Now(), time.Hour)); err != nil {
			t.Fatalf("%s: Create() error = %v", name, err)
		}
	}

	// Badger's own TTL runs on the wall clock, so the short session is still
	// present there and only the fake clock considers it expired.
	clock.Advance(2 * time.Minute)

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			n, err := store.CleanupExpired(ctx)
			if err != nil {
				t.Fatalf("CleanupExpired() error = %v", err)
			}
			if n != 1 {
				t.Errorf("CleanupExpired() = %d, want 1", n)
			}
			if _, err := store.Take(ctx, "short"); !errors.Is(err, ErrSessionNotFound) {
				t.Errorf("Take(short) error = %v, want not found", err)
			}
			if _, err := store.Take(ctx, "long"); err != nil {
				t.Errorf("Take(long) error = %v", err)
			}
		})
	}
}

func TestBadgerSessionStore_RejectsExpiredCreate(t *testing.T) {
	clock := newFakeClock()
	store := sessionStores(t, clock)["badger"]
	err := store.Create(context.Background(), newTestSession("old", "user-1", clock.Now().Add(-2*time.Hour), time.Hour))
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Create(expired) error = %v, want %v", err, ErrSessionExpired)
	}
}

func TestSessionStore_ConcurrentTake(t *testing.T) {
	for name, store := range sessionStores(t, newFakeClock()) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			if err := store.Create(ctx, newTestSession("shared", "user-1", now, time.Hour)); err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			var wins atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := store.Take(ctx, "shared"); err == nil {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()

			if got := wins.Load(); got != 1 {
				t.Errorf("successful Take() calls = %d, want 1", got)
			}
		})
	}
}

func TestNewSessionStore(t *testing.T) {
	store, err := NewSessionStore("memory", nil)
	if err != nil {
		t.Fatalf("NewSessionStore(memory) error = %v", err)
	}
	if _, ok := store.(*MemorySessionStore); !ok {
		t.Errorf("NewSessionStore(memory) = %T", store)
	}

	if _, err := NewSessionStore("badger", nil); err == nil {
		t.Error("NewSessionStore(badger, nil) error = nil, want error")
	}

	db, err := users.OpenBadger("", true)
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	defer db.Close()
	store, err = NewSessionStore("badger", db)
	if err != nil {
		t.Fatalf("NewSessionStore(badger) error = %v", err)
	}
	if _, ok := store.(*BadgerSessionStore); !ok {
		t.Errorf("NewSessionStore(badger) = %T", store)
	}

	if _, err := NewSessionStore("redis", nil); err == nil {
		t.Error("NewSessionStore(redis) error = nil, want error")
	}
}

func TestSessionSweeper(t *testing.T) {
	clock := newFakeClock()
	store := NewMemorySessionStore()
	store.now = clock.Now
	_ = store.Create(context.Background(), newTestSession("s1", "user-1", clock.Now(), time.Minute))
	clock.Advance(time.Hour)

	sweeper := NewSessionSweeper(store, 10*time.Millisecond)
	if sweeper.String() != "session-sweeper" {
		t.Errorf("String() = %q", sweeper.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for store.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if store.Len() != 0 {
		t.Error("sweeper did not remove the expired session")
	}
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}

	if NewSessionSweeper(store, 0).interval != DefaultSweepInterval {
		t.Error("zero interval should select DefaultSweepInterval")
	}
}
