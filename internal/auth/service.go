// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/mangashelf/internal/config"
	"github.com/tomtom215/mangashelf/internal/email"
	"github.com/tomtom215/mangashelf/internal/logging"
	"github.com/tomtom215/mangashelf/internal/metrics"
	"github.com/tomtom215/mangashelf/internal/users"
)

// Options configures a Service.
type Options struct {
	RefreshTTL         time.Duration
	OTPTTL             time.Duration
	ResetTokenTTL      time.Duration
	ResendInterval     time.Duration
	MinPasswordEntropy float64

	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// OptionsFromConfig maps the security settings onto Options.
func OptionsFromConfig(cfg *config.SecurityConfig) Options {
	return Options{
		RefreshTTL:         cfg.RefreshTTL,
		OTPTTL:             cfg.OTPTTL,
		ResetTokenTTL:      cfg.ResetTokenTTL,
		ResendInterval:     cfg.ResendInterval,
		MinPasswordEntropy: cfg.MinPasswordEntropy,
	}
}

func (o *Options) applyDefaults() {
	if o.RefreshTTL <= 0 {
		o.RefreshTTL = 7 * 24 * time.Hour
	}
	if o.OTPTTL <= 0 {
		o.OTPTTL = 10 * time.Minute
	}
	if o.ResetTokenTTL <= 0 {
		o.ResetTokenTTL = 10 * time.Minute
	}
	if o.BcryptCost == 0 {
		o.BcryptCost = bcrypt.DefaultCost
	}
}

// RequestInfo describes the client making an authentication request.
type RequestInfo struct {
	IP        string
	UserAgent string
}

// UserView is the public representation of an account.
type UserView struct {
	ID              string     `json:"id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	Role            users.Role `json:"role"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// ViewOf returns the public view of u.
func ViewOf(u *users.User) UserView {
	return UserView{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		Role:            u.Role,
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       u.CreatedAt,
	}
}

// Tokens are the credentials issued on login.
type Tokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// AuthResult is returned by every operation that logs the user in.
type AuthResult struct {
	User   UserView
	Tokens Tokens
}

// SignupInput is a new account request.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// SignupResult reports the created account and whether the code was mailed.
type SignupResult struct {
	User      UserView
	EmailSent bool
}

// Service implements the account lifecycle: signup, email verification,
// login, refresh, logout and password reset.
type Service struct {
	users    users.Store
	sessions SessionStore
	mailer   email.Sender
	tokens   *JWTManager
	audit    *logging.AuditLogger
	throttle *Throttle
	policy   PasswordPolicy
	hasher   hasher
	opts     Options
	now      func() time.Time

	// dummyHash is compared against when the email is unknown so login
	// takes the same time either way.
	dummyOnce sync.Once
	dummyHash string
}

// NewService wires a Service. audit may be nil.
func NewService(opts Options, store users.Store, sessions SessionStore, mailer email.Sender, tokens *JWTManager, audit *logging.AuditLogger) *Service {
	opts.applyDefaults()
	if audit == nil {
		audit = logging.NewAuditLogger()
	}
	return &Service{
		users:    store,
		sessions: sessions,
		mailer:   mailer,
		tokens:   tokens,
		audit:    audit,
		throttle: NewThrottle(opts.ResendInterval),
		policy:   PasswordPolicy{MinEntropy: opts.MinPasswordEntropy},
		hasher:   hasher{cost: opts.BcryptCost},
		opts:     opts,
		now:      time.Now,
	}
}

// Tokens returns the access token manager.
func (s *Service) Tokens() *JWTManager {
	return s.tokens
}

// Signup creates an unverified account and mails its verification code.
// A delivery failure does not undo the signup; it is reported through
// EmailSent and the client can ask for a new code.
func (s *Service) Signup(ctx context.Context, in SignupInput, info RequestInfo) (res *SignupResult, err error) {
	defer func() { observe("signup", err) }()

	username := strings.TrimSpace(in.Username)
	addr := users.NormalizeEmail(in.Email)
	if username == "" || addr == "" {
		return nil, ValidationError("username and email are required")
	}
	if err := s.policy.Check(in.Password); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.hash(in.Password)
	if err != nil {
		return nil, internalError(err)
	}
	code, codeHash, err := s.newCode()
	if err != nil {
		return nil, internalError(err)
	}

	now := s.now()
	u := &users.User{
		ID:                       uuid.NewString(),
		Username:                 username,
		Email:                    addr,
		PasswordHash:             passwordHash,
		EmailVerificationOTP:     codeHash,
		EmailVerificationExpires: now.Add(s.opts.OTPTTL),
		Role:                     users.RoleUser,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		switch {
		case errors.Is(err, users.ErrDuplicateEmail):
			return nil, &Error{Status: 400, Code: CodeDuplicateEmail, Message: "email is already registered"}
		case errors.Is(err, users.ErrDuplicateUsername):
			return nil, &Error{Status: 400, Code: CodeDuplicateUsername, Message: "username is already taken"}
		}
		return nil, internalError(err)
	}

	// The signup mail counts against the resend limit.
	s.throttle.Allow(addr)

	sent := true
	if err := s.mailer.SendVerificationEmail(ctx, u.Email, u.Username, code, s.opts.OTPTTL); err != nil {
		sent = false
		logging.Ctx(ctx).Warn().Err(err).
			Str("email", logging.SanitizeEmail(u.Email)).
			Msg("Verification email not sent")
	}

	s.audit.Signup(u.ID, u.Email, info.IP, sent)
	return &SignupResult{User: ViewOf(u), EmailSent: sent}, nil
}

// VerifyEmail checks a verification code, marks the account verified and
// logs the user in.
func (s *Service) VerifyEmail(ctx context.Context, addr, code string, info RequestInfo) (res *AuthResult, err error) {
	defer func() { observe("verify_email", err) }()

	u, err := s.lookupByEmail(ctx, addr)
	if err != nil {
		return nil, err
	}
	if u.IsEmailVerified {
		return nil, ErrAlreadyVerified
	}
	if u.EmailVerificationOTP == "" || !s.now().Before(u.EmailVerificationExpires) {
		s.audit.VerifyFailed(u.Email, info.IP, "expired")
		return nil, ErrOTPExpired
	}
	if !validOTPFormat(code) || !s.hasher.matches(u.EmailVerificationOTP, code) {
		s.audit.VerifyFailed(u.Email, info.IP, "mismatch")
		return nil, ErrOTPInvalid
	}

	u.IsEmailVerified = true
	u.ClearVerification()
	if err := s.users.Update(ctx, u); err != nil {
		return nil, internalError(err)
	}
	s.audit.EmailVerified(u.ID, info.IP)

	return s.issue(ctx, u, info)
}

// ResendOTP replaces the pending verification code with a fresh one.
func (s *Service) ResendOTP(ctx context.Context, addr string, info RequestInfo) (err error) {
	defer func() { observe("resend_otp", err) }()

	u, err := s.lookupByEmail(ctx, addr)
	if err != nil {
		return err
	}
	if u.IsEmailVerified {
		return ErrAlreadyVerified
	}
	if !s.throttle.Allow(u.Email) {
		return ErrResendTooSoon
	}

	code, codeHash, err := s.newCode()
	if err != nil {
		return internalError(err)
	}
	u.EmailVerificationOTP = codeHash
	u.EmailVerificationExpires = s.now().Add(s.opts.OTPTTL)
	if err := s.users.Update(ctx, u); err != nil {
		return internalError(err)
	}

	if err := s.mailer.SendVerificationEmail(ctx, u.Email, u.Username, code, s.opts.OTPTTL); err != nil {
		s.audit.OTPResent(u.ID, info.IP, false)
		return withCause(ErrEmailDelivery, err)
	}
	s.audit.OTPResent(u.ID, info.IP, true)
	return nil
}

// Login checks credentials. Unknown emails and wrong passwords fail the
// same way; unverified accounts are refused after the password matches.
func (s *Service) Login(ctx context.Context, addr, password string, info RequestInfo) (res *AuthResult, err error) {
	defer func() { observe("login", err) }()

	u, err := s.users.GetByEmail(ctx, addr)
	if errors.Is(err, users.ErrNotFound) {
		s.hasher.matches(s.dummy(), password)
		s.audit.LoginFailed(addr, info.IP, info.UserAgent, "unknown email")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, internalError(err)
	}
	if !s.hasher.matches(u.PasswordHash, password) {
		s.audit.LoginFailed(u.Email, info.IP, info.UserAgent, "wrong password")
		return nil, ErrInvalidCredentials
	}
	if !u.IsEmailVerified {
		s.audit.LoginFailed(u.Email, info.IP, info.UserAgent, "email not verified")
		return nil, ErrEmailNotVerified
	}

	res, err = s.issue(ctx, u, info)
	if err != nil {
		return nil, err
	}
	s.audit.LoginSuccess(u.ID, info.IP, info.UserAgent)
	return res, nil
}

// Refresh consumes a refresh token and issues a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string, info RequestInfo) (res *AuthResult, err error) {
	defer func() { observe("refresh", err) }()

	if refreshToken == "" {
		return nil, ErrInvalidSession
	}
	session, err := s.sessions.Take(ctx, hashToken(refreshToken))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
			s.audit.TokenRefresh("", false, err.Error())
			return nil, withCause(ErrInvalidSession, err)
		}
		return nil, internalError(err)
	}

	u, err := s.users.GetByID(ctx, session.UserID)
	if errors.Is(err, users.ErrNotFound) {
		s.audit.TokenRefresh(session.UserID, false, "user deleted")
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, internalError(err)
	}

	res, err = s.issue(ctx, u, info)
	if err != nil {
		return nil, err
	}
	s.audit.TokenRefresh(u.ID, true, "")
	return res, nil
}

// Logout ends the session behind refreshToken. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string, info RequestInfo) (err error) {
	defer func() { observe("logout", err) }()

	if refreshToken == "" {
		return nil
	}
	session, err := s.sessions.Take(ctx, hashToken(refreshToken))
	switch {
	case err == nil:
		s.audit.Logout(session.UserID, info.IP)
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionExpired):
	default:
		return internalError(err)
	}
	return nil
}

// ForgotPassword mails a single-use reset link. If the mail cannot be
// delivered the token is withdrawn again.
func (s *Service) ForgotPassword(ctx context.Context, addr string, info RequestInfo) (err error) {
	defer func() { observe("forgot_password", err) }()

	u, err := s.lookupByEmail(ctx, addr)
	if err != nil {
		return err
	}

	token, err := newToken(resetTokenSize)
	if err != nil {
		return internalError(err)
	}
	u.ResetPasswordToken = hashToken(token)
	u.ResetPasswordExpire = s.now().Add(s.opts.ResetTokenTTL)
	if err := s.users.Update(ctx, u); err != nil {
		return internalError(err)
	}

	if err := s.mailer.SendPasswordResetEmail(ctx, u.Email, u.Username, token, s.opts.ResetTokenTTL); err != nil {
		u.ClearReset()
		if uerr := s.users.Update(context.WithoutCancel(ctx), u); uerr != nil {
			logging.Ctx(ctx).Error().Err(uerr).Str("user_id", u.ID).Msg("Failed to withdraw reset token")
		}
		s.audit.PasswordResetRequested(u.Email, info.IP, false)
		return withCause(ErrEmailDelivery, err)
	}

	s.audit.PasswordResetRequested(u.Email, info.IP, true)
	return nil
}

// ResetPassword sets a new password using a reset token, revokes every
// refresh session of the account and logs the user in.
func (s *Service) ResetPassword(ctx context.Context, token, password string, info RequestInfo) (res *AuthResult, err error) {
	defer func() { observe("reset_password", err) }()

	if token == "" {
		return nil, ErrInvalidResetToken
	}
	if err := s.policy.Check(password); err != nil {
		return nil, err
	}

	u, err := s.users.GetByResetToken(ctx, hashToken(token))
	if errors.Is(err, users.ErrNotFound) {
		return nil, ErrInvalidResetToken
	}
	if err != nil {
		return nil, internalError(err)
	}
	if !s.now().Before(u.ResetPasswordExpire) {
		u.ClearReset()
		if uerr := s.users.Update(ctx, u); uerr != nil {
			logging.Ctx(ctx).Warn().Err(uerr).Str("user_id", u.ID).Msg("Failed to clear expired reset token")
		}
		return nil, ErrInvalidResetToken
	}

	passwordHash, err := s.hasher.hash(password)
	if err != nil {
		return nil, internalError(err)
	}
	u.PasswordHash = passwordHash
	u.ClearReset()
	if err := s.users.Update(ctx, u); err != nil {
		return nil, internalError(err)
	}

	revoked, err := s.sessions.DeleteByUserID(ctx, u.ID)
	if err != nil {
		return nil, internalError(err)
	}
	s.audit.PasswordReset(u.ID, info.IP, revoked)

	return s.issue(ctx, u, info)
}

// Me returns the account with the given ID.
func (s *Service) Me(ctx context.Context, userID string) (*UserView, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, users.ErrNotFound) {
		return nil, &Error{Status: 404, Code: CodeUserNotFound, Message: "account no longer exists"}
	}
	if err != nil {
		return nil, internalError(err)
	}
	view := ViewOf(u)
	return &view, nil
}

// issue creates an access token and a refresh session for u.
func (s *Service) issue(ctx context.Context, u *users.User, info RequestInfo) (*AuthResult, error) {
	access, accessExp, err := s.tokens.GenerateToken(u)
	if err != nil {
		return nil, internalError(err)
	}
	refresh, err := newToken(refreshTokenSize)
	if err != nil {
		return nil, internalError(err)
	}

	now := s.now()
	session := &Session{
		ID:        hashToken(refresh),
		UserID:    u.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.RefreshTTL),
		UserAgent: info.UserAgent,
		IPAddress: info.IP,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, internalError(err)
	}

	return &AuthResult{
		User: ViewOf(u),
		Tokens: Tokens{
			AccessToken:      access,
			AccessExpiresAt:  accessExp,
			RefreshToken:     refresh,
			RefreshExpiresAt: session.ExpiresAt,
		},
	}, nil
}

func (s *Service) lookupByEmail(ctx context.Context, addr string) (*users.User, error) {
	u, err := s.users.GetByEmail(ctx, addr)
	if errors.Is(err, users.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, internalError(err)
	}
	return u, nil
}

// newCode returns a verification code and its hash.
func (s *Service) newCode() (code, codeHash string, err error) {
	code, err = generateOTP()
	if err != nil {
		return "", "", err
	}
	codeHash, err = s.hasher.hash(code)
	if err != nil {
		return "", "", err
	}
	return code, codeHash, nil
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.hash("mangashelf-timing-equalizer")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func observe(event string, err error) {
	metrics.RecordAuthEvent(event, err == nil)
}
