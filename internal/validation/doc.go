// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the go-playground/validator library to provide a thread-safe
// singleton validator instance with domain validators and user-friendly error
// messages. Field names in messages are taken from the json or query tag, so
// clients see the names they sent.
//
// # Quick Start
//
//	type LoginRequest struct {
//	    Email    string `json:"email" validate:"required,email"`
//	    Password string `json:"password" validate:"required"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    // respond 400 with apiErr.Code, apiErr.Message, apiErr.Details
//	}
//
// # Custom Validators
//
//   - lang: a MangaDex language code such as "vi", "en" or "pt-br"
//   - username: 1 to 30 letters, digits, '.', '_' or '-'
//   - otp: exactly six digits
//
// Struct level rules registered here:
//
//   - Page: limit + offset may not exceed MaxWindow, the deepest result
//     MangaDex serves for a list query
//
// # Error Format
//
// Validation failures convert to APIError with code VALIDATION_ERROR. A
// single failure carries field, tag and value in Details; several failures
// are joined into one message and listed under Details["fields"].
package validation
