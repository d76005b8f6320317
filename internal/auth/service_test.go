// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/mangashelf/internal/users"
)

func TestService_Signup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.Signup(ctx, SignupInput{
		Username: "  reader ",
		Email:    "Reader@Example.com",
		Password: testPassword,
	}, RequestInfo{IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if res.User.Username != "reader" || res.User.Email != "reader@example.com" {
		t.Errorf("User = %+v, want trimmed username and normalized email", res.User)
	}
	if res.User.IsEmailVerified {
		t.Error("new account should not be verified")
	}
	if res.User.Role != users.RoleUser {
		t.Errorf("Role = %q, want %q", res.User.Role, users.RoleUser)
	}

	msg, ok := env.mailer.Last("reader@example.com")
	if !ok {
		t.Fatal("verification mail not sent")
	}
	if msg.Kind != "verification" || len(msg.Secret) != 6 {
		t.Errorf("mail = %+v, want a six digit verification code", msg)
	}
	if msg.ExpiresIn != 10*time.Minute {
		t.Errorf("ExpiresIn = %v, want 10m", msg.ExpiresIn)
	}

	stored, err := env.store.GetByEmail(ctx, "reader@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if stored.EmailVerificationOTP == "" || stored.EmailVerificationOTP == msg.Secret {
		t.Error("verification code must be stored hashed")
	}
	if stored.PasswordHash == testPassword {
		t.Error("password must be stored hashed")
	}
	if want := env.clock.Now().Add(10 * time.Minute); !stored.EmailVerificationExpires.Equal(want) {
		t.Errorf("EmailVerificationExpires = %v, want %v", stored.EmailVerificationExpires, want)
	}
}

func TestService_SignupRejects(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "reader", "reader@example.com")

	tests := []struct {
		name string
		in   SignupInput
		want string
	}{
		{"duplicate email", SignupInput{"other", "READER@example.com", testPassword}, CodeDuplicateEmail},
		{"duplicate username", SignupInput{"Reader", "other@example.com", testPassword}, CodeDuplicateUsername},
		{"short password", SignupInput{"new", "new@example.com", "Ab1!"}, CodeValidation},
		{"weak password", SignupInput{"new", "new@example.com", "aaaaaaaa"}, CodeValidation},
		{"long password", SignupInput{"new", "new@example.com", strings.Repeat("Ab1!", 19)}, CodeValidation},
		{"missing username", SignupInput{" ", "new@example.com", testPassword}, CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Signup(context.Background(), tt.in, RequestInfo{})
			if err == nil {
				t.Fatal("Signup() error = nil")
			}
			e := AsError(err)
			if e.Code != tt.want || e.Status != http.StatusBadRequest {
				t.Errorf("error = %d %s, want 400 %s", e.Status, e.Code, tt.want)
			}
		})
	}
}

func TestService_SignupDuplicateLeavesOriginal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signup(t, "reader", "reader@example.com")

	original, err := env.store.GetByEmail(ctx, "reader@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}

	_, err = env.svc.Signup(ctx, SignupInput{"second", "reader@example.com", testPassword}, RequestInfo{})
	if e := AsError(err); e == nil || e.Code != CodeDuplicateEmail {
		t.Fatalf("Signup(duplicate email) error = %v", err)
	}
	_, err = env.svc.Signup(ctx, SignupInput{"reader", "third@example.com", testPassword}, RequestInfo{})
	if e := AsError(err); e == nil || e.Code != CodeDuplicateUsername {
		t.Fatalf("Signup(duplicate username) error = %v", err)
	}

	stored, err := env.store.GetByEmail(ctx, "reader@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if stored.ID != original.ID || stored.Username != "reader" || stored.PasswordHash != original.PasswordHash {
		t.Errorf("original account changed: %+v", stored)
	}
	if _, err := env.store.GetByEmail(ctx, "third@example.com"); !errors.Is(err, users.ErrNotFound) {
		t.Errorf("GetByEmail(third) error = %v, want ErrNotFound", err)
	}

	// Neither rejected attempt reserved its username or address.
	env.signup(t, "second", "second@example.com")
	env.signup(t, "third", "third@example.com")
}

func TestService_SignupMailFailureKeepsAccount(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.SetErr(errors.New("smtp down"))

	res, err := env.svc.Signup(context.Background(), SignupInput{
		Username: "reader",
		Email:    "reader@example.com",
		Password: testPassword,
	}, RequestInfo{})
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if res.EmailSent {
		t.Error("EmailSent = true, want false")
	}
	if _, err := env.store.GetByEmail(context.Background(), "reader@example.com"); err != nil {
		t.Errorf("account should exist after mail failure: %v", err)
	}
}

func TestService_VerifyEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	code := env.signup(t, "reader", "reader@example.com")

	res, err := env.svc.VerifyEmail(ctx, "reader@example.com", code, RequestInfo{UserAgent: "test"})
	if err != nil {
		t.Fatalf("VerifyEmail() error = %v", err)
	}
	if !res.User.IsEmailVerified {
		t.Error("IsEmailVerified = false after verification")
	}
	if res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Error("verification should log the user in")
	}
	if env.sessions.Len() != 1 {
		t.Errorf("sessions = %d, want 1", env.sessions.Len())
	}

	stored, _ := env.store.GetByEmail(ctx, "reader@example.com")
	if stored.EmailVerificationOTP != "" || !stored.EmailVerificationExpires.IsZero() {
		t.Error("verification code should be cleared")
	}

	_, err = env.svc.VerifyEmail(ctx, "reader@example.com", code, RequestInfo{})
	assertAuthError(t, err, ErrAlreadyVerified)
}

func TestService_VerifyEmailFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	code := env.signup(t, "reader", "reader@example.com")

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	before, err := env.store.GetByEmail(ctx, "reader@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	unchanged := func(step string) {
		t.Helper()
		u, err := env.store.GetByEmail(ctx, "reader@example.com")
		if err != nil {
			t.Fatalf("%s: GetByEmail() error = %v", step, err)
		}
		if u.IsEmailVerified {
			t.Errorf("%s: IsEmailVerified = true", step)
		}
		if u.EmailVerificationOTP != before.EmailVerificationOTP || !u.EmailVerificationExpires.Equal(before.EmailVerificationExpires) {
			t.Errorf("%s: pending code changed", step)
		}
	}

	_, err = env.svc.VerifyEmail(ctx, "nobody@example.com", code, RequestInfo{})
	assertAuthError(t, err, ErrUserNotFound)

	_, err = env.svc.VerifyEmail(ctx, "reader@example.com", wrong, RequestInfo{})
	assertAuthError(t, err, ErrOTPInvalid)
	unchanged("wrong code")

	_, err = env.svc.VerifyEmail(ctx, "reader@example.com", "abc", RequestInfo{})
	assertAuthError(t, err, ErrOTPInvalid)
	unchanged("malformed code")

	env.clock.Advance(10 * time.Minute)
	_, err = env.svc.VerifyEmail(ctx, "reader@example.com", code, RequestInfo{})
	assertAuthError(t, err, ErrOTPExpired)
	unchanged("expired code")

	if env.sessions.Len() != 0 {
		t.Errorf("sessions = %d, want 0 after failed verification", env.sessions.Len())
	}
}

func TestService_ResendOTP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.signup(t, "reader", "reader@example.com")

	// The signup mail counts against the limit.
	err := env.svc.ResendOTP(ctx, "reader@example.com", RequestInfo{})
	assertAuthError(t, err, ErrResendTooSoon)

	env.clock.Advance(time.Minute)
	if err := env.svc.ResendOTP(ctx, "reader@example.com", RequestInfo{}); err != nil {
		t.Fatalf("ResendOTP() error = %v", err)
	}
	msgs := env.mailer.Messages()
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	second := msgs[1].Secret

	if first != second {
		_, err = env.svc.VerifyEmail(ctx, "reader@example.com", first, RequestInfo{})
		assertAuthError(t, err, ErrOTPInvalid)
	}
	if _, err := env.svc.VerifyEmail(ctx, "reader@example.com", second, RequestInfo{}); err != nil {
		t.Fatalf("VerifyEmail(new code) error = %v", err)
	}

	env.clock.Advance(time.Minute)
	err = env.svc.ResendOTP(ctx, "reader@example.com", RequestInfo{})
	assertAuthError(t, err, ErrAlreadyVerified)

	err = env.svc.ResendOTP(ctx, "nobody@example.com", RequestInfo{})
	assertAuthError(t, err, ErrUserNotFound)
}

func TestService_ResendOTPMailFailure(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "reader", "reader@example.com")
	env.clock.Advance(time.Minute)
	env.mailer.SetErr(errors.New("smtp down"))

	err := env.svc.ResendOTP(context.Background(), "reader@example.com", RequestInfo{})
	assertAuthError(t, err, ErrEmailDelivery)
}

func TestService_Login(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.verified(t, "reader", "reader@example.com")

	res, err := env.svc.Login(ctx, "READER@example.com", testPassword, RequestInfo{IP: "10.0.0.2"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	claims, err := env.svc.Tokens().ValidateToken(res.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID() != res.User.ID || claims.Username != "reader" {
		t.Errorf("claims = %+v, want subject %s", claims, res.User.ID)
	}
	if want := env.clock.Now().Add(7 * 24 * time.Hour); !res.Tokens.RefreshExpiresAt.Equal(want) {
		t.Errorf("RefreshExpiresAt = %v, want %v", res.Tokens.RefreshExpiresAt, want)
	}
}

func TestService_LoginFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.verified(t, "reader", "reader@example.com")
	env.signup(t, "pending", "pending@example.com")

	_, err := env.svc.Login(ctx, "reader@example.com", "wrong-password", RequestInfo{})
	assertAuthError(t, err, ErrInvalidCredentials)

	_, err = env.svc.Login(ctx, "nobody@example.com", testPassword, RequestInfo{})
	assertAuthError(t, err, ErrInvalidCredentials)

	_, err = env.svc.Login(ctx, "pending@example.com", testPassword, RequestInfo{})
	assertAuthError(t, err, ErrEmailNotVerified)

	// Wrong password on an unverified account must not reveal its state.
	_, err = env.svc.Login(ctx, "pending@example.com", "wrong-password", RequestInfo{})
	assertAuthError(t, err, ErrInvalidCredentials)
}

func TestService_RefreshRotates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	login := env.verified(t, "reader", "reader@example.com")

	env.clock.Advance(time.Second)
	res, err := env.svc.Refresh(ctx, login.Tokens.RefreshToken, RequestInfo{})
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if res.Tokens.RefreshToken == login.Tokens.RefreshToken {
		t.Error("refresh token was not rotated")
	}
	if res.Tokens.AccessToken == login.Tokens.AccessToken {
		t.Error("access token was not reissued")
	}

	_, err = env.svc.Refresh(ctx, login.Tokens.RefreshToken, RequestInfo{})
	assertAuthError(t, err, ErrInvalidSession)

	_, err = env.svc.Refresh(ctx, "", RequestInfo{})
	assertAuthError(t, err, ErrInvalidSession)

	env.clock.Advance(7 * 24 * time.Hour)
	_, err = env.svc.Refresh(ctx, res.Tokens.RefreshToken, RequestInfo{})
	assertAuthError(t, err, ErrInvalidSession)
}

func TestService_Logout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	login := env.verified(t, "reader", "reader@example.com")

	if err := env.svc.Logout(ctx, login.Tokens.RefreshToken, RequestInfo{}); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if env.sessions.Len() != 0 {
		t.Errorf("sessions = %d, want 0", env.sessions.Len())
	}
	_, err := env.svc.Refresh(ctx, login.Tokens.RefreshToken, RequestInfo{})
	assertAuthError(t, err, ErrInvalidSession)

	if err := env.svc.Logout(ctx, login.Tokens.RefreshToken, RequestInfo{}); err != nil {
		t.Errorf("second Logout() error = %v, want nil", err)
	}
	if err := env.svc.Logout(ctx, "", RequestInfo{}); err != nil {
		t.Errorf("Logout(\"\") error = %v, want nil", err)
	}
}

func TestService_PasswordReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.verified(t, "reader", "reader@example.com")
	if _, err := env.svc.Login(ctx, "reader@example.com", testPassword, RequestInfo{}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if err := env.svc.ForgotPassword(ctx, "reader@example.com", RequestInfo{}); err != nil {
		t.Fatalf("ForgotPassword() error = %v", err)
	}
	msg, ok := env.mailer.Last("reader@example.com")
	if !ok || msg.Kind != "password_reset" {
		t.Fatalf("reset mail = %+v, want password_reset", msg)
	}
	token := msg.Secret
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(token))
	}

	stored, _ := env.store.GetByEmail(ctx, "reader@example.com")
	if stored.ResetPasswordToken != hashToken(token) {
		t.Error("stored reset token should be the SHA-256 of the mailed token")
	}

	const newPassword = "N3w-Passphrase!reading"
	_, err := env.svc.ResetPassword(ctx, token, "aaaaaaaa", RequestInfo{})
	assertAuthError(t, err, ValidationError(""))

	res, err := env.svc.ResetPassword(ctx, token, newPassword, RequestInfo{})
	if err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}
	if res.Tokens.AccessToken == "" {
		t.Error("reset should log the user in")
	}

	// Both earlier sessions are revoked; only the new one remains.
	if env.sessions.Len() != 1 {
		t.Errorf("sessions = %d, want 1", env.sessions.Len())
	}
	_, err = env.svc.Refresh(ctx, first.Tokens.RefreshToken, RequestInfo{})
	assertAuthError(t, err, ErrInvalidSession)

	_, err = env.svc.ResetPassword(ctx, token, newPassword, RequestInfo{})
	assertAuthError(t, err, ErrInvalidResetToken)

	_, err = env.svc.Login(ctx, "reader@example.com", testPassword, RequestInfo{})
	assertAuthError(t, err, ErrInvalidCredentials)
	if _, err := env.svc.Login(ctx, "reader@example.com", newPassword, RequestInfo{}); err != nil {
		t.Errorf("Login(new password) error = %v", err)
	}
}

func TestService_ResetTokenExpires(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.verified(t, "reader", "reader@example.com")

	if err := env.svc.ForgotPassword(ctx, "reader@example.com", RequestInfo{}); err != nil {
		t.Fatalf("ForgotPassword() error = %v", err)
	}
	msg, _ := env.mailer.Last("reader@example.com")

	env.clock.Advance(10 * time.Minute)
	_, err := env.svc.ResetPassword(ctx, msg.Secret, "N3w-Passphrase!reading", RequestInfo{})
	assertAuthError(t, err, ErrInvalidResetToken)

	stored, _ := env.store.GetByEmail(ctx, "reader@example.com")
	if stored.ResetPasswordToken != "" {
		t.Error("expired reset token should be cleared")
	}

	_, err = env.svc.ResetPassword(ctx, "", "N3w-Passphrase!reading", RequestInfo{})
	assertAuthError(t, err, ErrInvalidResetToken)
}

func TestService_ForgotPasswordFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.verified(t, "reader", "reader@example.com")

	err := env.svc.ForgotPassword(ctx, "nobody@example.com", RequestInfo{})
	assertAuthError(t, err, ErrUserNotFound)

	env.mailer.SetErr(errors.New("smtp down"))
	err = env.svc.ForgotPassword(ctx, "reader@example.com", RequestInfo{})
	assertAuthError(t, err, ErrEmailDelivery)

	stored, _ := env.store.GetByEmail(ctx, "reader@example.com")
	if stored.ResetPasswordToken != "" || !stored.ResetPasswordExpire.IsZero() {
		t.Error("reset token should be withdrawn when the mail fails")
	}
}

func TestService_Me(t *testing.T) {
	env := newTestEnv(t)
	login := env.verified(t, "reader", "reader@example.com")

	view, err := env.svc.Me(context.Background(), login.User.ID)
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if view.Email != "reader@example.com" || !view.IsEmailVerified {
		t.Errorf("Me() = %+v", view)
	}

	_, err = env.svc.Me(context.Background(), "missing")
	if e := AsError(err); e == nil || e.Status != http.StatusNotFound {
		t.Errorf("Me(missing) error = %v, want 404", err)
	}
}
