// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/tomtom215/mangashelf/internal/logging"
	"github.com/tomtom215/mangashelf/internal/users"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// ContextWithClaims returns a copy of ctx carrying claims.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext returns the claims stored by Middleware.Authenticate.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok && claims != nil
}

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware enforces Bearer access tokens.
type Middleware struct {
	tokens  *JWTManager
	onError ErrorWriter
}

// NewMiddleware creates the middleware. onError renders rejections; nil
// falls back to plain text responses.
func NewMiddleware(tokens *JWTManager, onError ErrorWriter) *Middleware {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, err error) {
			e := AsError(err)
			http.Error(w, e.Message, e.Status)
		}
	}
	return &Middleware{tokens: tokens, onError: onError}
}

// Authenticate rejects requests without a valid access token.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := BearerToken(r)
		if err != nil {
			m.onError(w, r, err)
			return
		}

		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Access token rejected")
			m.onError(w, r, withCause(ErrInvalidToken, err))
			return
		}

		ctx := ContextWithClaims(r.Context(), claims)
		ctx = logging.ContextWithUserID(ctx, claims.UserID())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects authenticated requests whose role is not role.
// Admins pass every role check.
func (m *Middleware) RequireRole(role users.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ := ClaimsFromContext(r.Context())
			if claims.Role != role && claims.Role != users.RoleAdmin {
				m.onError(w, r, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", withCause(ErrMissingToken, errInvalidHeader)
	}
	return strings.TrimSpace(token), nil
}
