// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordPolicy_Check(t *testing.T) {
	policy := PasswordPolicy{MinEntropy: 40}

	tests := []struct {
		name     string
		password string
		ok       bool
	}{
		{"strong", testPassword, true},
		{"passphrase", "correct horse battery staple", true},
		{"too short", "Ab1!xyz", false},
		{"repeated", "aaaaaaaaaaaa", false},
		{"too long", strings.Repeat("Zq9#", 18) + "x", false},
		{"max length", strings.Repeat("Zq9#", 18), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Check(tt.password)
			if tt.ok && err != nil {
				t.Errorf("Check() error = %v, want nil", err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatal("Check() error = nil, want validation error")
				}
				if e := AsError(err); e.Code != CodeValidation || e.Status != http.StatusBadRequest {
					t.Errorf("Check() error = %d %s, want 400 %s", e.Status, e.Code, CodeValidation)
				}
			}
		})
	}
}

func TestHasher(t *testing.T) {
	h := hasher{cost: bcrypt.MinCost}
	hash, err := h.hash("123456")
	if err != nil {
		t.Fatalf("hash() error = %v", err)
	}
	if !h.matches(hash, "123456") {
		t.Error("matches() = false for the hashed value")
	}
	if h.matches(hash, "123457") {
		t.Error("matches() = true for a different value")
	}
	if h.matches("", "") {
		t.Error("matches() with an empty hash must be false")
	}
}

func TestGenerateOTP(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := generateOTP()
		if err != nil {
			t.Fatalf("generateOTP() error = %v", err)
		}
		if !validOTPFormat(code) {
			t.Fatalf("generateOTP() = %q, want six digits", code)
		}
		seen[code] = true
	}
	if len(seen) < 190 {
		t.Errorf("only %d distinct codes in 200 draws", len(seen))
	}
}

func TestValidOTPFormat(t *testing.T) {
	tests := map[string]bool{
		"012345":  true,
		"12345":   false,
		"1234567": false,
		"12a456":  false,
		"":        false,
		" 12345":  false,
	}
	for code, want := range tests {
		if got := validOTPFormat(code); got != want {
			t.Errorf("validOTPFormat(%q) = %v, want %v", code, got, want)
		}
	}
}

func TestNewTokenAndHash(t *testing.T) {
	a, err := newToken(32)
	if err != nil {
		t.Fatalf("newToken() error = %v", err)
	}
	b, _ := newToken(32)
	if len(a) != 64 || a == b {
		t.Errorf("newToken() = %q, %q; want distinct 64 char tokens", a, b)
	}
	if hashToken(a) == a || len(hashToken(a)) != 64 {
		t.Error("hashToken() should return a 64 char SHA-256 digest")
	}
	if hashToken(a) != hashToken(a) {
		t.Error("hashToken() is not deterministic")
	}
}

func TestThrottle(t *testing.T) {
	clock := newFakeClock()
	th := NewThrottle(time.Minute)
	th.now = clock.Now

	if !th.Allow("a@example.com") {
		t.Fatal("first Allow() = false")
	}
	if th.Allow("a@example.com") {
		t.Error("second Allow() within the interval = true")
	}
	if !th.Allow("b@example.com") {
		t.Error("keys must be throttled independently")
	}

	clock.Advance(61 * time.Second)
	if !th.Allow("a@example.com") {
		t.Error("Allow() after the interval = false")
	}

	if !NewThrottle(0).Allow("x") || !NewThrottle(0).Allow("x") {
		t.Error("a zero interval disables the throttle")
	}
}

func TestThrottle_Prunes(t *testing.T) {
	clock := newFakeClock()
	th := NewThrottle(time.Minute)
	th.now = clock.Now

	for i := 0; i < throttlePruneSize; i++ {
		th.Allow(fmt.Sprintf("user-%d@example.com", i))
	}
	clock.Advance(2 * time.Minute)
	th.Allow("fresh@example.com")

	if got := th.Len(); got != 1 {
		t.Errorf("Len() after prune = %d, want 1", got)
	}
}

func TestError(t *testing.T) {
	cause := errors.New("smtp down")
	err := withCause(ErrEmailDelivery, cause)

	if !errors.Is(err, ErrEmailDelivery) {
		t.Error("wrapped copy should match its sentinel")
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped copy should unwrap to its cause")
	}
	if errors.Is(ErrInvalidToken, ErrMissingToken) {
		t.Error("distinct failures with the same code must not match")
	}
	if !strings.Contains(err.Error(), "smtp down") {
		t.Errorf("Error() = %q, want cause included", err.Error())
	}

	wrapped := fmt.Errorf("handler: %w", ErrOTPInvalid)
	if AsError(wrapped) != ErrOTPInvalid {
		t.Error("AsError() should find a wrapped *Error")
	}
	if e := AsError(errors.New("boom")); e.Status != http.StatusInternalServerError || e.Code != CodeInternal {
		t.Errorf("AsError(plain) = %d %s, want 500 %s", e.Status, e.Code, CodeInternal)
	}
	if AsError(nil) != nil {
		t.Error("AsError(nil) should be nil")
	}
}
