// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

// Package users stores account documents.
//
// Store has two implementations: BadgerStore (embedded, default) and
// MongoStore. Both enforce unique email and username and index the hashed
// password reset token. Emails are compared case-insensitively.
package users

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Store errors.
var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUsername = errors.New("username already taken")
)

// Role is the authorization level of an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the persisted account document.
//
// EmailVerificationOTP and ResetPasswordToken hold hashes, never the code or
// token that was sent.
type User struct {
	ID           string `json:"id" bson:"_id"`
	Username     string `json:"username" bson:"username"`
	Email        string `json:"email" bson:"email"`
	PasswordHash string `json:"passwordHash" bson:"passwordHash"`

	EmailVerificationOTP     string    `json:"emailVerificationOTP,omitempty" bson:"emailVerificationOTP,omitempty"`
	EmailVerificationExpires time.Time `json:"emailVerificationExpires,omitempty" bson:"emailVerificationExpires,omitempty"`
	IsEmailVerified          bool      `json:"isEmailVerified" bson:"isEmailVerified"`

	ResetPasswordToken  string    `json:"resetPasswordToken,omitempty" bson:"resetPasswordToken,omitempty"`
	ResetPasswordExpire time.Time `json:"resetPasswordExpire,omitempty" bson:"resetPasswordExpire,omitempty"`

	Role      Role      `json:"role" bson:"role"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// ClearVerification drops the pending email code.
func (u *User) ClearVerification() {
	u.EmailVerificationOTP = ""
	u.EmailVerificationExpires = time.Time{}
}

// ClearReset drops the pending password reset token.
func (u *User) ClearReset() {
	u.ResetPasswordToken = ""
	u.ResetPasswordExpire = time.Time{}
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Clone returns a copy safe to mutate.
func (u *User) Clone() *User {
	c := *u
	return &c
}

// Store persists users.
type Store interface {
	// Create inserts u. It returns ErrDuplicateEmail or ErrDuplicateUsername
	// without writing anything when either is taken.
	Create(ctx context.Context, u *User) error

	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByResetToken looks a user up by the hashed reset token.
	GetByResetToken(ctx context.Context, tokenHash string) (*User, error)

	// Update replaces the stored document and its index entries.
	Update(ctx context.Context, u *User) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func usernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
