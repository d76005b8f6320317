// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/mangashelf/internal/config"
	"github.com/tomtom215/mangashelf/internal/logging"
)

// NewSessionStore returns the session store selected by kind. The badger
// store requires an open database.
func NewSessionStore(kind string, db *badger.DB) (SessionStore, error) {
	switch kind {
	case "", config.SessionStoreMemory:
		return NewMemorySessionStore(), nil
	case config.SessionStoreBadger:
		if db == nil {
			return nil, fmt.Errorf("session store %q requires an open BadgerDB", kind)
		}
		return NewBadgerSessionStore(db), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", kind)
	}
}

// DefaultSweepInterval is how often SessionSweeper removes expired sessions.
const DefaultSweepInterval = 5 * time.Minute

// SessionSweeper periodically removes expired sessions. It implements
// suture.Service.
type SessionSweeper struct {
	store    SessionStore
	interval time.Duration
}

// NewSessionSweeper creates a sweeper. A non-positive interval selects
// DefaultSweepInterval.
func NewSessionSweeper(store SessionStore, interval time.Duration) *SessionSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &SessionSweeper{store: store, interval: interval}
}

// Serve runs until ctx is cancelled.
func (s *SessionSweeper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := s.store.CleanupExpired(ctx)
			if err != nil {
				logging.Warn().Err(err).Msg("Session cleanup failed")
				continue
			}
			if n > 0 {
				logging.Debug().Int("removed", n).Msg("Expired sessions removed")
			}
		}
	}
}

func (s *SessionSweeper) String() string {
	return "session-sweeper"
}
