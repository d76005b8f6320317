// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package auth

import (
	"errors"
	"net/http"
)

// Error codes returned to API clients.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeDuplicateEmail     = "DUPLICATE_EMAIL"
	CodeDuplicateUsername  = "DUPLICATE_USERNAME"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeAlreadyVerified    = "ALREADY_VERIFIED"
	CodeOTPExpired         = "OTP_EXPIRED"
	CodeOTPInvalid         = "OTP_INVALID"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeEmailNotVerified   = "EMAIL_NOT_VERIFIED"
	CodeInvalidResetToken  = "INVALID_RESET_TOKEN"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeEmailDelivery      = "EMAIL_DELIVERY_FAILED"
	CodeInternal           = "INTERNAL_ERROR"
)

// Error is an authentication failure that carries the HTTP status and a
// stable code for the client.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the same failure, so copies made by withCause
// still match their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

var (
	ErrInvalidCredentials = &Error{Status: http.StatusUnauthorized, Code: CodeInvalidCredentials, Message: "invalid email or password"}
	ErrEmailNotVerified   = &Error{Status: http.StatusForbidden, Code: CodeEmailNotVerified, Message: "email address has not been verified"}
	ErrUserNotFound       = &Error{Status: http.StatusNotFound, Code: CodeUserNotFound, Message: "no account with that email"}
	ErrAlreadyVerified    = &Error{Status: http.StatusBadRequest, Code: CodeAlreadyVerified, Message: "email address is already verified"}
	ErrOTPExpired         = &Error{Status: http.StatusBadRequest, Code: CodeOTPExpired, Message: "verification code has expired, request a new one"}
	ErrOTPInvalid         = &Error{Status: http.StatusBadRequest, Code: CodeOTPInvalid, Message: "verification code is incorrect"}
	ErrResendTooSoon      = &Error{Status: http.StatusTooManyRequests, Code: CodeTooManyRequests, Message: "a code was sent recently, try again later"}
	ErrInvalidResetToken  = &Error{Status: http.StatusBadRequest, Code: CodeInvalidResetToken, Message: "reset link is invalid or has expired"}
	ErrInvalidSession     = &Error{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "refresh token is invalid or has expired"}
	ErrInvalidToken       = &Error{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "access token is invalid or has expired"}
	ErrMissingToken       = &Error{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "authentication required"}
	ErrForbidden          = &Error{Status: http.StatusForbidden, Code: CodeForbidden, Message: "insufficient permissions"}
	ErrEmailDelivery      = &Error{Status: http.StatusInternalServerError, Code: CodeEmailDelivery, Message: "email could not be sent, try again later"}
)

// ValidationError reports unacceptable input.
func ValidationError(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeValidation, Message: message}
}

func internalError(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "internal error", Err: err}
}

// withCause returns a copy of sentinel that wraps err.
func withCause(sentinel *Error, err error) *Error {
	e := *sentinel
	e.Err = err
	return &e
}

// AsError extracts an *Error from err. Unknown errors become internal errors.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return internalError(err)
}

var errInvalidHeader = errors.New("authorization header is not a bearer token")
