// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"

	passwordvalidator "github.com/wagslane/go-password-validator"
	"golang.org/x/crypto/bcrypt"
)

// Password length limits. bcrypt ignores input past 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// DefaultMinPasswordEntropy is the minimum password entropy in bits.
const DefaultMinPasswordEntropy = 40

const (
	otpDigits        = 6
	refreshTokenSize = 32
	resetTokenSize   = 32
)

var otpRange = big.NewInt(1_000_000)

// PasswordPolicy checks new passwords.
type PasswordPolicy struct {
	MinEntropy float64
}

// Check returns a validation error when password is too short, too long or
// too easy to guess.
func (p PasswordPolicy) Check(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ValidationError(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > MaxPasswordLength {
		return ValidationError(fmt.Sprintf("password must be at most %d bytes", MaxPasswordLength))
	}
	minEntropy := p.MinEntropy
	if minEntropy <= 0 {
		minEntropy = DefaultMinPasswordEntropy
	}
	if err := passwordvalidator.Validate(password, minEntropy); err != nil {
		return ValidationError("password is not strong enough: " + err.Error())
	}
	return nil
}

// hasher hashes passwords and verification codes with bcrypt.
type hasher struct {
	cost int
}

func (h hasher) hash(secret string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(b), nil
}

func (h hasher) matches(hash, secret string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// generateOTP returns a uniformly random six digit code.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpRange)
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// validOTPFormat reports whether code looks like a verification code.
func validOTPFormat(code string) bool {
	if len(code) != otpDigits {
		return false
	}
	return strings.Trim(code, "0123456789") == ""
}

// newToken returns size random bytes, hex encoded.
func newToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// hashToken returns the SHA-256 of a bearer secret, hex encoded. High
// entropy tokens do not need a slow hash.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
