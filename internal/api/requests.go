// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mangashelf/internal/validation"
)

// maxBodyBytes bounds JSON request bodies; account payloads are tiny.
const maxBodyBytes = 64 << 10

// MangaListRequest is the query of the search, popular and latest routes.
type MangaListRequest struct {
	validation.Page
	Language      string   `query:"language" validate:"lang"`
	Title         string   `query:"title" validate:"max=200"`
	Order         string   `query:"order" validate:"omitempty,oneof=latest popular newest relevance rating title"`
	ContentRating []string `query:"contentRating" validate:"dive,oneof=safe suggestive erotica pornographic"`
}

// FeedRequest is the query of the chapter feed route.
type FeedRequest struct {
	validation.Page
	Language string `query:"language" validate:"lang"`
	Order    string `query:"order" validate:"oneof=asc desc"`
}

// LanguageRequest carries the display language of single-entity routes.
type LanguageRequest struct {
	Language string `query:"language" validate:"lang"`
}

// IDRequest validates a MangaDex id taken from the path.
type IDRequest struct {
	ID string `json:"id" validate:"required,uuid"`
}

// SignupRequest is the body of POST /api/auth/signup.
type SignupRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// VerifyEmailRequest is the body of POST /api/auth/verify-email.
type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,otp"`
}

// EmailRequest is the body of resend-otp and forgot-password.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

// ResetPasswordRequest is the body of POST /api/auth/reset-password/{token}.
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// getIntParam reads an integer query parameter. A missing value yields
// defaultValue; a malformed one is a validation error.
func getIntParam(r *http.Request, key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, validation.NewFieldError(key, "integer", value, key+" must be an integer")
	}
	return n, nil
}

// getBoolParam reads a boolean query parameter ("true", "1", "false", ...).
func getBoolParam(r *http.Request, key string, defaultValue bool) (bool, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, validation.NewFieldError(key, "boolean", value, key+" must be true or false")
	}
	return b, nil
}

// getStringParam returns the trimmed query value or defaultValue.
func getStringParam(r *http.Request, key, defaultValue string) string {
	if value := strings.TrimSpace(r.URL.Query().Get(key)); value != "" {
		return value
	}
	return defaultValue
}

// getListParam accepts both repeated keys (contentRating[]=a&contentRating[]=b)
// and a comma-separated value (contentRating=a,b).
func getListParam(r *http.Request, key string, defaultValue []string) []string {
	q := r.URL.Query()
	raw := append(q[key+"[]"], q[key]...)
	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// readPage parses limit and offset. Range and window checks happen in
// ValidateStruct.
func readPage(r *http.Request, defaultLimit int) (validation.Page, error) {
	limit, err := getIntParam(r, "limit", defaultLimit)
	if err != nil {
		return validation.Page{}, err
	}
	offset, err := getIntParam(r, "offset", 0)
	if err != nil {
		return validation.Page{}, err
	}
	return validation.Page{Limit: limit, Offset: offset}, nil
}

// validate runs struct validation and returns a plain error so callers can
// hand it to ResponseWriter.Fail.
func validate(v interface{}) error {
	if verr := validation.ValidateStruct(v); verr != nil {
		return verr
	}
	return nil
}

// decodeJSON decodes a bounded JSON body into dst, rejecting unknown fields
// and trailing data, then validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return bodyError(err)
	}
	if dec.More() {
		return bodyError(errors.New("unexpected data after JSON object"))
	}
	return validate(dst)
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	var msg string
	switch {
	case errors.Is(err, io.EOF):
		msg = "request body is required"
	case errors.As(err, &tooLarge):
		msg = fmt.Sprintf("request body must not exceed %d bytes", tooLarge.Limit)
	default:
		msg = "request body must be a JSON object: " + err.Error()
	}
	return validation.NewFieldError("body", "json", nil, msg)
}
