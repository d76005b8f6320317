// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/mangashelf/internal/users"
)

func testUser() *users.User {
	return &users.User{ID: "user-1", Username: "reader", Email: "reader@example.com", Role: users.RoleUser}
}

func TestNewJWTManager(t *testing.T) {
	if _, err := NewJWTManager("", time.Hour); err == nil {
		t.Error("NewJWTManager(\"\") error = nil, want error")
	}
	if _, err := NewJWTManager(testSecret, 0); err == nil {
		t.Error("NewJWTManager(ttl=0) error = nil, want error")
	}
	m, err := NewJWTManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	if m.TTL() != time.Hour {
		t.Errorf("TTL() = %v, want 1h", m.TTL())
	}
}

func TestJWTManager_RoundTrip(t *testing.T) {
	m, _ := NewJWTManager(testSecret, time.Hour)
	clock := newFakeClock()
	m.now = clock.Now

	token, expires, err := m.GenerateToken(testUser())
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if !expires.Equal(clock.Now().Add(time.Hour)) {
		t.Errorf("expires = %v, want now+1h", expires)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID() != "user-1" || claims.Username != "reader" || claims.Role != users.RoleUser {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Issuer != tokenIssuer || claims.ID == "" {
		t.Errorf("issuer = %q, jti = %q", claims.Issuer, claims.ID)
	}

	other, _, _ := m.GenerateToken(testUser())
	if other == token {
		t.Error("tokens issued in the same second should differ")
	}
}

func TestJWTManager_Rejects(t *testing.T) {
	m, _ := NewJWTManager(testSecret, time.Hour)
	clock := newFakeClock()
	m.now = clock.Now
	token, _, _ := m.GenerateToken(testUser())

	t.Run("expired", func(t *testing.T) {
		late, _ := NewJWTManager(testSecret, time.Hour)
		late.now = func() time.Time { return clock.Now().Add(time.Hour + time.Minute) }
		if _, err := late.ValidateToken(token); err == nil {
			t.Error("expired token accepted")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, _ := NewJWTManager("another-secret-key-with-32-characters!!", time.Hour)
		other.now = clock.Now
		if _, err := other.ValidateToken(token); err == nil {
			t.Error("token signed with another secret accepted")
		}
	})

	t.Run("tampered", func(t *testing.T) {
		parts := strings.Split(token, ".")
		parts[1] = parts[1][:len(parts[1])-2] + "xx"
		if _, err := m.ValidateToken(strings.Join(parts, ".")); err == nil {
			t.Error("tampered token accepted")
		}
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := &Claims{
			Username: "reader",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-1",
				Issuer:    tokenIssuer,
				ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
			},
		}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatalf("SignedString() error = %v", err)
		}
		if _, err := m.ValidateToken(unsigned); err == nil {
			t.Error("unsigned token accepted")
		}
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-1",
				Issuer:    "someone-else",
				ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
			},
		}
		signed, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		if _, err := m.ValidateToken(signed); err == nil {
			t.Error("token from another issuer accepted")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := m.ValidateToken("not-a-token"); err == nil {
			t.Error("garbage accepted")
		}
	})
}
