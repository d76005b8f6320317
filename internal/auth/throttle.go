// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// throttlePruneSize is the number of tracked keys above which idle entries
// are dropped.
const throttlePruneSize = 1024

// Throttle allows one event per interval for each key. It backs the
// verification code resend limit.
type Throttle struct {
	mu       sync.Mutex
	limiters map[string]*throttleEntry
	interval time.Duration
	now      func() time.Time
}

type throttleEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewThrottle creates a throttle. A non-positive interval disables it.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		limiters: make(map[string]*throttleEntry),
		interval: interval,
		now:      time.Now,
	}
}

// Allow reports whether an event for key may happen now and records it.
func (t *Throttle) Allow(key string) bool {
	if t.interval <= 0 {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	entry, ok := t.limiters[key]
	if !ok {
		if len(t.limiters) >= throttlePruneSize {
			t.prune(now)
		}
		entry = &throttleEntry{limiter: rate.NewLimiter(rate.Every(t.interval), 1)}
		t.limiters[key] = entry
	}
	entry.lastAccess = now
	return entry.limiter.AllowN(now, 1)
}

// prune drops keys whose limiter has fully refilled. Caller holds mu.
func (t *Throttle) prune(now time.Time) {
	threshold := now.Add(-t.interval)
	for key, entry := range t.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(t.limiters, key)
		}
	}
}

// Len returns the number of tracked keys.
func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.limiters)
}
