// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Session-related errors
var (
	// ErrSessionNotFound is returned when a session is not found in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when trying to use an expired session.
	ErrSessionExpired = errors.New("session expired")
)

// Session is a refresh session. ID is the SHA-256 hash of the refresh token
// held by the client; the token itself is never stored.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	UserAgent string    `json:"user_agent,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
}

// IsExpired returns true if the session has expired at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionStore defines the interface for session storage backends.
type SessionStore interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// Take removes a session and returns it. Only one caller can take a
	// given session. Returns ErrSessionNotFound if absent and
	// ErrSessionExpired if it existed but had expired.
	Take(ctx context.Context, id string) (*Session, error)

	// DeleteByUserID removes all sessions for a user and returns the count.
	DeleteByUserID(ctx context.Context, userID string) (int, error)

	// CleanupExpired removes all expired sessions and returns the count.
	CleanupExpired(ctx context.Context) (int, error)
}

// MemorySessionStore is an in-memory SessionStore. Sessions are lost on
// restart; use BadgerSessionStore to keep them.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	byUser   map[string]map[string]struct{}
	now      func() time.Time
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]Session),
		byUser:   make(map[string]map[string]struct{}),
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Create(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.sessions[session.ID]; ok {
		s.unlinkLocked(old)
	}
	s.sessions[session.ID] = *session
	ids := s.byUser[session.UserID]
	if ids == nil {
		ids = make(map[string]struct{})
		s.byUser[session.UserID] = ids
	}
	ids[session.ID] = struct{}{}
	return nil
}

// Take removes and returns the session with the given ID.
func (s *MemorySessionStore) Take(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.unlinkLocked(session)

	if session.IsExpired(s.now()) {
		return nil, ErrSessionExpired
	}
	return &session, nil
}

func (s *MemorySessionStore) DeleteByUserID(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byUser[userID]
	for id := range ids {
		delete(s.sessions, id)
	}
	delete(s.byUser, userID)
	return len(ids), nil
}

func (s *MemorySessionStore) CleanupExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for _, session := range s.sessions {
		if session.IsExpired(now) {
			s.unlinkLocked(session)
			count++
		}
	}
	return count, nil
}

// unlinkLocked drops session from both maps. Caller holds mu.
func (s *MemorySessionStore) unlinkLocked(session Session) {
	delete(s.sessions, session.ID)
	if ids := s.byUser[session.UserID]; ids != nil {
		delete(ids, session.ID)
		if len(ids) == 0 {
			delete(s.byUser, session.UserID)
		}
	}
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
