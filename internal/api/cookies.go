// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/mangashelf/internal/config"
)

// RefreshCookieName names the HttpOnly cookie carrying the refresh token.
const RefreshCookieName = "refreshToken"

// refreshCookiePath scopes the cookie to the auth routes that read it.
const refreshCookiePath = "/api/auth"

type cookieSettings struct {
	secure   bool
	sameSite http.SameSite
}

func newCookieSettings(cfg *config.Config) cookieSettings {
	return cookieSettings{
		secure:   cfg.IsProduction(),
		sameSite: http.SameSiteStrictMode,
	}
}

// setRefresh stores token in the refresh cookie until expires.
func (c cookieSettings) setRefresh(w http.ResponseWriter, token string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		Expires:  expires.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite,
	})
}

// clearRefresh deletes the refresh cookie.
func (c cookieSettings) clearRefresh(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite,
	})
}

// refreshToken returns the refresh cookie value, or "" when absent.
func refreshToken(r *http.Request) string {
	c, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
