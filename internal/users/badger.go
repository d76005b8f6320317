// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/mangashelf/internal/metrics"
)

// Key prefixes for BadgerDB storage
const (
	userKeyPrefix      = "user:"
	userEmailKeyPrefix = "user_email:"
	userNameKeyPrefix  = "user_name:"
	userResetKeyPrefix = "user_reset:"
)

const backendBadger = "badger"

// OpenBadger opens the embedded database shared by the user and session
// stores. An in-memory database ignores path.
func OpenBadger(path string, inMemory bool) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return db, nil
}

// BadgerStore keeps users as JSON documents with secondary index keys for
// email, username and reset token. Uniqueness is checked inside the write
// transaction, so Badger's conflict detection rejects racing signups.
type BadgerStore struct {
	db  *badger.DB
	now func() time.Time
}

// NewBadgerStore creates a store on an open database. The caller owns db.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db, now: time.Now}
}

func (s *BadgerStore) Create(ctx context.Context, u *User) (err error) {
	defer func() { record(backendBadger, "create", err) }()

	u.Email = NormalizeEmail(u.Email)
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if exists(txn, userEmailKeyPrefix+u.Email) {
			return ErrDuplicateEmail
		}
		if exists(txn, userNameKeyPrefix+usernameKey(u.Username)) {
			return ErrDuplicateUsername
		}
		if exists(txn, userKeyPrefix+u.ID) {
			return fmt.Errorf("user id %s already exists", u.ID)
		}

		if err := txn.Set([]byte(userKeyPrefix+u.ID), data); err != nil {
			return fmt.Errorf("set user: %w", err)
		}
		if err := txn.Set([]byte(userEmailKeyPrefix+u.Email), []byte(u.ID)); err != nil {
			return fmt.Errorf("set email index: %w", err)
		}
		if err := txn.Set([]byte(userNameKeyPrefix+usernameKey(u.Username)), []byte(u.ID)); err != nil {
			return fmt.Errorf("set username index: %w", err)
		}
		if u.ResetPasswordToken != "" {
			if err := txn.Set([]byte(userResetKeyPrefix+u.ResetPasswordToken), []byte(u.ID)); err != nil {
				return fmt.Errorf("set reset index: %w", err)
			}
		}
		return nil
	})
}

func (s *BadgerStore) GetByID(ctx context.Context, id string) (u *User, err error) {
	defer func() { record(backendBadger, "get_by_id", err) }()

	err = s.db.View(func(txn *badger.Txn) error {
		var getErr error
		u, getErr = getUser(txn, id)
		return getErr
	})
	return u, err
}

func (s *BadgerStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := s.getByIndex(userEmailKeyPrefix + NormalizeEmail(email))
	record(backendBadger, "get_by_email", err)
	return u, err
}

func (s *BadgerStore) GetByResetToken(ctx context.Context, tokenHash string) (*User, error) {
	if tokenHash == "" {
		return nil, ErrNotFound
	}
	u, err := s.getByIndex(userResetKeyPrefix + tokenHash)
	if err == nil && u.ResetPasswordToken != tokenHash {
		err, u = ErrNotFound, nil
	}
	record(backendBadger, "get_by_reset_token", err)
	return u, err
}

func (s *BadgerStore) Update(ctx context.Context, u *User) (err error) {
	defer func() { record(backendBadger, "update", err) }()

	u.Email = NormalizeEmail(u.Email)
	u.UpdatedAt = s.now()
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		old, err := getUser(txn, u.ID)
		if err != nil {
			return err
		}

		if old.Email != u.Email {
			if exists(txn, userEmailKeyPrefix+u.Email) {
				return ErrDuplicateEmail
			}
			if err := swapIndex(txn, userEmailKeyPrefix, old.Email, u.Email, u.ID); err != nil {
				return err
			}
		}
		if oldKey, newKey := usernameKey(old.Username), usernameKey(u.Username); oldKey != newKey {
			if exists(txn, userNameKeyPrefix+newKey) {
				return ErrDuplicateUsername
			}
			if err := swapIndex(txn, userNameKeyPrefix, oldKey, newKey, u.ID); err != nil {
				return err
			}
		}
		if old.ResetPasswordToken != u.ResetPasswordToken {
			if err := swapIndex(txn, userResetKeyPrefix, old.ResetPasswordToken, u.ResetPasswordToken, u.ID); err != nil {
				return err
			}
		}

		return txn.Set([]byte(userKeyPrefix+u.ID), data)
	})
}

// Ping reports whether the database is open.
func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger db is closed")
	}
	return nil
}

func (s *BadgerStore) getByIndex(indexKey string) (*User, error) {
	var u *User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(indexKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get index: %w", err)
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("read index: %w", err)
		}
		u, err = getUser(txn, string(id))
		return err
	})
	return u, err
}

func getUser(txn *badger.Txn, id string) (*User, error) {
	item, err := txn.Get([]byte(userKeyPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	var u User
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &u)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

// swapIndex moves an index entry from oldVal to newVal; empty values are
// not indexed.
func swapIndex(txn *badger.Txn, prefix, oldVal, newVal, id string) error {
	if oldVal != "" {
		if err := txn.Delete([]byte(prefix + oldVal)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete index %s: %w", prefix, err)
		}
	}
	if newVal != "" {
		if err := txn.Set([]byte(prefix+newVal), []byte(id)); err != nil {
			return fmt.Errorf("set index %s: %w", prefix, err)
		}
	}
	return nil
}

func exists(txn *badger.Txn, key string) bool {
	_, err := txn.Get([]byte(key))
	return err == nil
}

// record counts a store call. Misses and uniqueness violations are answers,
// not backend failures.
func record(backend, op string, err error) {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrDuplicateUsername) {
		err = nil
	}
	metrics.RecordStoreOperation(backend, op, err)
}
