// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package api

import (
	"encoding/hex"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/mangashelf/internal/auth"
)

// AuthResponse is returned by every route that logs the user in. The
// refresh token travels only in the HttpOnly cookie.
type AuthResponse struct {
	User        auth.UserView `json:"user"`
	AccessToken string        `json:"accessToken"`
	TokenType   string        `json:"tokenType"`
	ExpiresAt   time.Time     `json:"expiresAt"`
}

// SignupResponse is the body of a successful signup.
type SignupResponse struct {
	User      auth.UserView `json:"user"`
	EmailSent bool          `json:"emailSent"`
}

// MessageResponse acknowledges an action that returns no entity.
type MessageResponse struct {
	Message string `json:"message"`
}

// Signup creates an unverified account and mails a verification code.
//
// @Summary Sign up
// @Description Creates an account and emails a 6 digit verification code valid for 10 minutes. emailSent is false when delivery failed; the account is kept and a new code can be requested.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body SignupRequest true "Account"
// @Success 201 {object} APIResponse{data=SignupResponse}
// @Failure 400 {object} APIResponse "Validation error, duplicate email or username"
// @Router /auth/signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.Fail(err)
		return
	}

	res, err := h.auth.Signup(r.Context(), auth.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}, requestInfo(r))
	if err != nil {
		rw.Fail(err)
		return
	}
	rw.Created(SignupResponse{User: res.User, EmailSent: res.EmailSent})
}

// VerifyEmail confirms the verification code and logs the user in.
//
// @Summary Verify email
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body VerifyEmailRequest true "Email and code"
// @Success 200 {object} APIResponse{data=AuthResponse}
// @Failure 400 {object} APIResponse "Already verified, expired or wrong code"
// @Failure 404 {object} APIResponse "Unknown email"
// @Router /auth/verify-email [post]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req VerifyEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.Fail(err)
		return
	}

	res, err := h.auth.VerifyEmail(r.Context(), req.Email, req.OTP, requestInfo(r))
	if err != nil {
		rw.Fail(err)
		return
	}
	h.loggedIn(w, rw, res)
}

// ResendOTP mails a fresh verification code.
//
// @Summary Resend verification code
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body EmailRequest true "Email"
// @Success 200 {object} APIResponse{data=MessageResponse}
// @Failure 429 {object} APIResponse "Requested too soon"
// @Router /auth/resend-otp [post]
func (h *Handler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req EmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.Fail(err)
		return
	}

	if err := h.auth.ResendOTP(r.Context(), req.Email, requestInfo(r)); err != nil {
		rw.Fail(err)
		return
	}
	rw.Success(MessageResponse{Message: "A new verification code has been sent"})
}

// Login authenticates with email and password.
//
// @Summary Log in
// @Description Returns an access token and sets the refreshToken cookie.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Credentials"
// @Success 200 {object} APIResponse{data=AuthResponse}
// @Failure 401 {object} APIResponse "Invalid credentials"
// @Failure 403 {object} APIResponse "Email not verified"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.Fail(err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password, requestInfo(r))
	if err != nil {
		rw.Fail(err)
		return
	}
	h.loggedIn(w, rw, res)
}

// Refresh exchanges the refresh cookie for a new token pair.
//
// @Summary Refresh tokens
// @Description Consumes the refreshToken cookie (single use) and sets a new one.
// @Tags Auth
// @Produce json
// @Success 200 {object} APIResponse{data=AuthResponse}
// @Failure 401 {object} APIResponse "Missing, reused or expired refresh token"
// @Router /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	res, err := h.auth.Refresh(r.Context(), refreshToken(r), requestInfo(r))
	if err != nil {
		h.cookies.clearRefresh(w)
		rw.Fail(err)
		return
	}
	h.loggedIn(w, rw, res)
}

// Logout ends the refresh session and clears the cookie.
//
// @Summary Log out
// @Tags Auth
// @Produce json
// @Success 200 {object} APIResponse{data=MessageResponse}
// @Router /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if err := h.auth.Logout(r.Context(), refreshToken(r), requestInfo(r)); err != nil {
		rw.Fail(err)
		return
	}
	h.cookies.clearRefresh(w)
	rw.Success(MessageResponse{Message: "Logged out"})
}

// ForgotPassword mails a password reset link.
//
// @Summary Forgot password
// @Description Mails a single-use reset link valid for 10 minutes.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body EmailRequest true "Email"
// @Success 200 {object} APIResponse{data=MessageResponse}
// @Failure 404 {object} APIResponse "Unknown email"
// @Failure 500 {object} APIResponse "Email could not be sent"
// @Router /auth/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req EmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.Fail(err)
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), req.Email, requestInfo(r)); err != nil {
		rw.Fail(err)
		return
	}
	rw.Success(MessageResponse{Message: "Password reset email sent"})
}

// ResetPassword sets a new password using the token from the reset link.
//
// @Summary Reset password
// @Description Sets the new password, revokes every refresh session of the account and logs the user in.
// @Tags Auth
// @Accept json
// @Produce json
// @Param token path string true "Reset token from the email link"
// @Param body body ResetPasswordRequest true "New password"
// @Success 200 {object} APIResponse{data=AuthResponse}
// @Failure 400 {object} APIResponse "Invalid or expired token"
// @Router /auth/reset-password/{token} [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	token := chi.URLParam(r, "token")
	if !wellFormedResetToken(token) {
		rw.Fail(auth.ErrInvalidResetToken)
		return
	}

	var req ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.Fail(err)
		return
	}

	res, err := h.auth.ResetPassword(r.Context(), token, req.Password, requestInfo(r))
	if err != nil {
		rw.Fail(err)
		return
	}
	h.loggedIn(w, rw, res)
}

// Me returns the authenticated account.
//
// @Summary Current user
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse{data=auth.UserView}
// @Failure 401 {object} APIResponse "Missing or invalid access token"
// @Router /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		rw.Fail(auth.ErrMissingToken)
		return
	}
	view, err := h.auth.Me(r.Context(), claims.UserID())
	if err != nil {
		rw.Fail(err)
		return
	}
	rw.Success(view)
}

func (h *Handler) loggedIn(w http.ResponseWriter, rw *ResponseWriter, res *auth.AuthResult) {
	h.cookies.setRefresh(w, res.Tokens.RefreshToken, res.Tokens.RefreshExpiresAt)
	rw.Success(AuthResponse{
		User:        res.User,
		AccessToken: res.Tokens.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   res.Tokens.AccessExpiresAt,
	})
}

// requestInfo describes the client for the audit log and session records.
// RealIP has already replaced RemoteAddr when a proxy header was present.
func requestInfo(r *http.Request) auth.RequestInfo {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return auth.RequestInfo{IP: ip, UserAgent: r.UserAgent()}
}

// wellFormedResetToken reports whether token looks like one we issued
// (32 random bytes, hex encoded).
func wellFormedResetToken(token string) bool {
	if len(token) != 64 {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}
