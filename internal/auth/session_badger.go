// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/mangashelf/internal/metrics"
)

// Session storage key prefixes
const (
	sessionKeyPrefix     = "session:"
	sessionUserKeyPrefix = "session_user:"
)

const backendBadgerSessions = "badger_sessions"

// BadgerSessionStore implements SessionStore on BadgerDB. Each session is
// written with a native TTL so Badger drops it even if cleanup never runs.
type BadgerSessionStore struct {
	db  *badger.DB
	now func() time.Time
}

// NewBadgerSessionStore creates a session store on an open database.
func NewBadgerSessionStore(db *badger.DB) *BadgerSessionStore {
	return &BadgerSessionStore{db: db, now: time.Now}
}

func sessionUserKey(userID, id string) []byte {
	return []byte(sessionUserKeyPrefix + userID + ":" + id)
}

// Create stores a new session.
func (s *BadgerSessionStore) Create(ctx context.Context, session *Session) (err error) {
	defer func() { metrics.RecordStoreOperation(backendBadgerSessions, "create", err) }()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return ErrSessionExpired
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.SetEntry(badger.NewEntry([]byte(sessionKeyPrefix+session.ID), data).WithTTL(ttl)); err != nil {
			return fmt.Errorf("set session: %w", err)
		}
		// User-to-session mapping for revocation
		entry := badger.NewEntry(sessionUserKey(session.UserID, session.ID), []byte(session.ID)).WithTTL(ttl)
		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("set user mapping: %w", err)
		}
		return nil
	})
}

// Take removes and returns a session in one transaction. A concurrent Take
// of the same session fails with a conflict and reports ErrSessionNotFound.
func (s *BadgerSessionStore) Take(ctx context.Context, id string) (*Session, error) {
	var session Session
	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(sessionKeyPrefix + id)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		}); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}

		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if err := txn.Delete(sessionUserKey(session.UserID, id)); err != nil {
			return fmt.Errorf("delete user mapping: %w", err)
		}
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		err = ErrSessionNotFound
	}
	metrics.RecordStoreOperation(backendBadgerSessions, "take", ignoreSessionMiss(err))
	if err != nil {
		return nil, err
	}

	if session.IsExpired(s.now()) {
		return nil, ErrSessionExpired
	}
	return &session, nil
}

// DeleteByUserID removes all sessions for a user.
func (s *BadgerSessionStore) DeleteByUserID(ctx context.Context, userID string) (count int, err error) {
	defer func() { metrics.RecordStoreOperation(backendBadgerSessions, "delete_by_user", err) }()

	err = s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		prefix := []byte(sessionUserKeyPrefix + userID + ":")
		opts.Prefix = prefix

		var ids []string
		it := txn.NewIterator(opts)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				ids = append(ids, string(val))
				return nil
			})
			if err != nil {
				it.Close()
				return err
			}
		}
		it.Close()

		for _, id := range ids {
			if err := txn.Delete([]byte(sessionKeyPrefix + id)); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
			if err := txn.Delete(sessionUserKey(userID, id)); err != nil {
				return fmt.Errorf("delete user mapping: %w", err)
			}
		}
		count = len(ids)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}
	return count, nil
}

// CleanupExpired removes sessions that expired but are still present.
// Badger TTLs normally remove them first; this catches clock skew between
// the stored ExpiresAt and the entry TTL.
func (s *BadgerSessionStore) CleanupExpired(ctx context.Context) (int, error) {
	now := s.now()
	var expired []Session

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte(sessionKeyPrefix)
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var session Session
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &session)
			})
			if err != nil {
				continue
			}
			if session.IsExpired(now) {
				expired = append(expired, session)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan sessions: %w", err)
	}

	count := 0
	for _, session := range expired {
		err := s.db.Update(func(txn *badger.Txn) error {
			if err := txn.Delete([]byte(sessionKeyPrefix + session.ID)); err != nil {
				return err
			}
			return txn.Delete(sessionUserKey(session.UserID, session.ID))
		})
		if err != nil {
			continue
		}
		count++
	}
	return count, nil
}

func ignoreSessionMiss(err error) error {
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	return err
}
