// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type fieldsKey struct{}

// requestFields are the identifiers Ctx stamps on every line of a request.
// Each setter copies, so a context never sees fields added further down the chain.
type requestFields struct {
	requestID     string
	correlationID string
	userID        string
}

func fieldsFrom(ctx context.Context) requestFields {
	f, _ := ctx.Value(fieldsKey{}).(requestFields)
	return f
}

func withFields(ctx context.Context, update func(*requestFields)) context.Context {
	f := fieldsFrom(ctx)
	update(&f)
	return context.WithValue(ctx, fieldsKey{}, f)
}

// GenerateCorrelationID returns the first 8 characters of a UUID.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// GenerateRequestID returns a full UUID.
func GenerateRequestID() string {
	return uuid.New().String()
}

// ContextWithNewCorrelationID returns a context with a freshly generated
// correlation ID. Queued upstream calls log under it.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	id := GenerateCorrelationID()
	return withFields(ctx, func(f *requestFields) { f.correlationID = id })
}

// CorrelationIDFromContext returns the correlation ID, or "" if absent.
func CorrelationIDFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).correlationID
}

// ContextWithRequestID returns a new context carrying the HTTP request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withFields(ctx, func(f *requestFields) { f.requestID = id })
}

// RequestIDFromContext returns the request ID, or "" if absent.
func RequestIDFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).requestID
}

// ContextWithUserID tags the context with the authenticated account.
func ContextWithUserID(ctx context.Context, id string) context.Context {
	return withFields(ctx, func(f *requestFields) { f.userID = id })
}

// UserIDFromContext returns the authenticated account ID, or "" if absent.
func UserIDFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).userID
}

// Ctx returns the global logger with request_id, correlation_id and user_id
// attached when present.
//
//	logging.Ctx(ctx).Info().Msg("Processing request")
func Ctx(ctx context.Context) *zerolog.Logger {
	f := fieldsFrom(ctx)
	if f == (requestFields{}) {
		l := Logger()
		return &l
	}

	lc := With()
	if f.requestID != "" {
		lc = lc.Str("request_id", f.requestID)
	}
	if f.correlationID != "" {
		lc = lc.Str("correlation_id", f.correlationID)
	}
	if f.userID != "" {
		lc = lc.Str("user_id", f.userID)
	}
	l := lc.Logger()
	return &l
}
