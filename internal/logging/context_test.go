// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestGenerateIDs(t *testing.T) {
	t.Parallel()

	if id := GenerateCorrelationID(); len(id) != 8 {
		t.Errorf("expected 8 character correlation ID, got %q", id)
	}
	a, b := GenerateRequestID(), GenerateRequestID()
	if len(a) != 36 {
		t.Errorf("expected UUID request ID, got %q", a)
	}
	if a == b {
		t.Error("expected unique request IDs")
	}
}

func TestRequestFieldsContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}

	withReq := ContextWithRequestID(ctx, "req-123")
	withUser := ContextWithUserID(withReq, "user-1")
	withCorr := ContextWithNewCorrelationID(withUser)

	if got := RequestIDFromContext(withCorr); got != "req-123" {
		t.Errorf("expected req-123, got %q", got)
	}
	if got := UserIDFromContext(withCorr); got != "user-1" {
		t.Errorf("expected user-1, got %q", got)
	}
	if got := CorrelationIDFromContext(withCorr); len(got) != 8 {
		t.Errorf("expected generated correlation ID, got %q", got)
	}

	// Parents are not affected by fields added to children.
	if got := UserIDFromContext(withReq); got != "" {
		t.Errorf("parent context gained user ID %q", got)
	}
	if got := CorrelationIDFromContext(withUser); got != "" {
		t.Errorf("parent context gained correlation ID %q", got)
	}
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer
	original := Logger()
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { SetLogger(original) })

	ctx := ContextWithRequestID(context.Background(), "req-abc")
	ctx = ContextWithUserID(ctx, "user-42")
	ctx = ContextWithNewCorrelationID(ctx)

	Ctx(ctx).Info().Msg("tagged")

	output := buf.String()
	for _, want := range []string{`"request_id":"req-abc"`, `"user_id":"user-42"`, `"correlation_id":"`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s, got: %s", want, output)
		}
	}
}

func TestCtx_NoFields(t *testing.T) {
	var buf bytes.Buffer
	original := Logger()
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { SetLogger(original) })

	Ctx(context.Background()).Info().Msg("plain")

	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("expected no request fields, got: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "plain") {
		t.Errorf("expected message, got: %s", buf.String())
	}
}
