// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package logging

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Account audit event names.
const (
	EventSignup            = "signup"
	EventEmailVerified     = "email_verified"
	EventVerifyFailed      = "email_verify_failed"
	EventOTPResent         = "otp_resent"
	EventLoginSuccess      = "login_success"
	EventLoginFailed       = "login_failed"
	EventTokenRefresh      = "token_refresh"
	EventLogout            = "logout"
	EventPasswordResetSent = "password_reset_requested"
	EventPasswordReset     = "password_reset"
)

// AuditEvent is one account lifecycle event. Identifying fields are masked
// before they reach the log stream.
type AuditEvent struct {
	Event     string
	UserID    string
	Email     string
	IPAddress string
	UserAgent string
	Success   bool
	Error     string
	Details   map[string]string
}

// AuditLogger writes account events under component=auth.
type AuditLogger struct {
	logger zerolog.Logger
}

// NewAuditLogger creates an audit logger on top of the global logger.
func NewAuditLogger() *AuditLogger {
	return &AuditLogger{logger: With().Str("component", "auth").Logger()}
}

// NewAuditLoggerWithLogger creates an audit logger on top of logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewAuditLoggerWithLogger(logger zerolog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger.With().Str("component", "auth").Logger()}
}

// Log writes a single audit event. Failed events are logged at warn.
func (l *AuditLogger) Log(event *AuditEvent) {
	var e *zerolog.Event
	if event.Success {
		e = l.logger.Info().Str("status", "success")
	} else {
		e = l.logger.Warn().Str("status", "failed")
	}
	e = e.Str("event", event.Event)

	if event.UserID != "" {
		e = e.Str("user_id", SanitizeUserID(event.UserID))
	}
	if event.Email != "" {
		e = e.Str("email", SanitizeEmail(event.Email))
	}
	if event.IPAddress != "" {
		e = e.Str("ip", event.IPAddress)
	}
	if event.UserAgent != "" {
		e = e.Str("user_agent", truncateString(event.UserAgent, 100))
	}
	if event.Error != "" && !event.Success {
		e = e.Str("error", SanitizeError(event.Error))
	}
	for k, v := range event.Details {
		e = e.Str(k, SanitizeValue(k, v))
	}

	e.Msg("")
}

// Signup records a new account.
func (l *AuditLogger) Signup(userID, email, ip string, emailSent bool) {
	l.Log(&AuditEvent{
		Event:     EventSignup,
		UserID:    userID,
		Email:     email,
		IPAddress: ip,
		Success:   true,
		Details:   map[string]string{"email_sent": strconv.FormatBool(emailSent)},
	})
}

// EmailVerified records a successful OTP check.
func (l *AuditLogger) EmailVerified(userID, ip string) {
	l.Log(&AuditEvent{Event: EventEmailVerified, UserID: userID, IPAddress: ip, Success: true})
}

// VerifyFailed records a rejected OTP.
func (l *AuditLogger) VerifyFailed(email, ip, reason string) {
	l.Log(&AuditEvent{Event: EventVerifyFailed, Email: email, IPAddress: ip, Error: reason})
}

// OTPResent records a replacement verification code.
func (l *AuditLogger) OTPResent(userID, ip string, sent bool) {
	l.Log(&AuditEvent{Event: EventOTPResent, UserID: userID, IPAddress: ip, Success: sent})
}

// LoginSuccess records a successful login.
func (l *AuditLogger) LoginSuccess(userID, ip, userAgent string) {
	l.Log(&AuditEvent{
		Event:     EventLoginSuccess,
		UserID:    userID,
		IPAddress: ip,
		UserAgent: userAgent,
		Success:   true,
	})
}

// LoginFailed records a rejected login.
func (l *AuditLogger) LoginFailed(email, ip, userAgent, reason string) {
	l.Log(&AuditEvent{
		Event:     EventLoginFailed,
		Email:     email,
		IPAddress: ip,
		UserAgent: userAgent,
		Error:     reason,
	})
}

// TokenRefresh records a refresh attempt.
func (l *AuditLogger) TokenRefresh(userID string, success bool, reason string) {
	l.Log(&AuditEvent{Event: EventTokenRefresh, UserID: userID, Success: success, Error: reason})
}

// Logout records a logout.
func (l *AuditLogger) Logout(userID, ip string) {
	l.Log(&AuditEvent{Event: EventLogout, UserID: userID, IPAddress: ip, Success: true})
}

// PasswordResetRequested records a forgot-password request.
func (l *AuditLogger) PasswordResetRequested(email, ip string, sent bool) {
	l.Log(&AuditEvent{
		Event:     EventPasswordResetSent,
		Email:     email,
		IPAddress: ip,
		Success:   sent,
		Error:     map[bool]string{false: "delivery failed"}[sent],
	})
}

// PasswordReset records a completed password reset and the sessions it revoked.
func (l *AuditLogger) PasswordReset(userID, ip string, sessionsRevoked int) {
	l.Log(&AuditEvent{
		Event:     EventPasswordReset,
		UserID:    userID,
		IPAddress: ip,
		Success:   true,
		Details:   map[string]string{"sessions_revoked": strconv.Itoa(sessionsRevoked)},
	})
}

// SanitizeToken masks a token, showing only the first and last 4 characters.
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeUserID masks a user ID.
//
//	"0f8e4c2a-1b3d" -> "0f8e...1b3d"
func SanitizeUserID(userID string) string {
	if userID == "" {
		return ""
	}
	if len(userID) <= 8 {
		return "***"
	}
	return userID[:4] + "..." + userID[len(userID)-4:]
}

// SanitizeEmail masks the local part of an email address.
//
//	"reader@example.com" -> "re***@example.com"
func SanitizeEmail(email string) string {
	if email == "" {
		return ""
	}
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	local, domain := email[:at], email[at:]
	if len(local) <= 2 {
		return "***" + domain
	}
	return local[:2] + "***" + domain
}

var sensitiveErrorWords = []string{
	"password", "secret", "token", "otp", "bearer", "authorization", "cookie",
}

// SanitizeError replaces error text that mentions credentials with a
// generic message and truncates the rest.
func SanitizeError(err string) string {
	lower := strings.ToLower(err)
	for _, w := range sensitiveErrorWords {
		if strings.Contains(lower, w) {
			return "authentication error"
		}
	}
	return truncateString(err, 200)
}

var sensitiveKeys = map[string]bool{
	"access_token":  true,
	"refresh_token": true,
	"token":         true,
	"reset_token":   true,
	"otp":           true,
	"password":      true,
	"secret":        true,
	"authorization": true,
	"cookie":        true,
}

// SanitizeValue masks value when key names a credential or value looks like an email.
func SanitizeValue(key, value string) string {
	if sensitiveKeys[strings.ToLower(key)] {
		return SanitizeToken(value)
	}
	if strings.Contains(value, "@") && strings.Contains(value, ".") {
		return SanitizeEmail(value)
	}
	return value
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
