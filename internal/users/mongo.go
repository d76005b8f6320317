// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"
)

const (
	backendMongo    = "mongo"
	usersCollection = "users"

	emailIndex    = "email_unique"
	usernameIndex = "username_unique"
	resetIndex    = "reset_token"
)

// mongoUser adds the case-folded username used by the unique index.
type mongoUser struct {
	User        `bson:",inline"`
	UsernameKey string `bson:"usernameKey"`
}

// MongoStore keeps users in the "users" collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// MongoConfig holds connection settings.
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// NewMongoStore connects, verifies the connection and ensures indexes.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	clientOpts := mongoopts.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(usersCollection),
		now:    time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: mongoopts.Index().SetName(emailIndex).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "usernameKey", Value: 1}},
			Options: mongoopts.Index().SetName(usernameIndex).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "resetPasswordToken", Value: 1}},
			Options: mongoopts.Index().SetName(resetIndex).SetSparse(true),
		},
	}
	if _, err := s.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Create(ctx context.Context, u *User) (err error) {
	defer func() { record(backendMongo, "create", err) }()

	u.Email = NormalizeEmail(u.Email)
	_, err = s.coll.InsertOne(ctx, toMongo(u))
	return translateWriteError(err)
}

func (s *MongoStore) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := s.findOne(ctx, bson.M{"_id": id})
	record(backendMongo, "get_by_id", err)
	return u, err
}

func (s *MongoStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := s.findOne(ctx, bson.M{"email": NormalizeEmail(email)})
	record(backendMongo, "get_by_email", err)
	return u, err
}

func (s *MongoStore) GetByResetToken(ctx context.Context, tokenHash string) (*User, error) {
	if tokenHash == "" {
		return nil, ErrNotFound
	}
	u, err := s.findOne(ctx, bson.M{"resetPasswordToken": tokenHash})
	record(backendMongo, "get_by_reset_token", err)
	return u, err
}

func (s *MongoStore) Update(ctx context.Context, u *User) (err error) {
	defer func() { record(backendMongo, "update", err) }()

	u.Email = NormalizeEmail(u.Email)
	u.UpdatedAt = s.now()
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": u.ID}, toMongo(u))
	if err != nil {
		return translateWriteError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var doc mongoUser
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &doc.User, nil
}

func toMongo(u *User) mongoUser {
	return mongoUser{User: *u, UsernameKey: usernameKey(u.Username)}
}

// translateWriteError maps unique index violations to the store errors.
func translateWriteError(err error) error {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, emailIndex):
		return ErrDuplicateEmail
	case strings.Contains(msg, usernameIndex):
		return ErrDuplicateUsername
	default:
		return fmt.Errorf("duplicate key: %w", err)
	}
}
