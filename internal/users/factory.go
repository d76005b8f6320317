// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/mangashelf/internal/config"
)

// NewStore builds the configured backend. db is required for the badger
// driver and ignored otherwise.
func NewStore(ctx context.Context, cfg *config.DatabaseConfig, db *badger.DB) (Store, error) {
	switch cfg.Driver {
	case "", config.DatabaseDriverBadger:
		if db == nil {
			return nil, errors.New("badger user store requires an open database")
		}
		return NewBadgerStore(db), nil
	case config.DatabaseDriverMongo:
		return NewMongoStore(ctx, MongoConfig{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDatabase,
			ConnectTimeout: cfg.ConnectTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
