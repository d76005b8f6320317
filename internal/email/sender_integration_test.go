// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

//go:build integration

package email

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/mangashelf/internal/config"
	"github.com/tomtom215/mangashelf/internal/testinfra"
)

func TestSMTPSender_Mailpit(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx := context.Background()
	mailpit, err := testinfra.NewMailpitContainer(ctx)
	if err != nil {
		t.Fatalf("failed to start mailpit: %v", err)
	}
	testinfra.CleanupContainer(t, ctx, mailpit)

	s := NewSMTPSender(&config.EmailConfig{
		SMTPHost:  mailpit.SMTPHost,
		SMTPPort:  mailpit.SMTPPort,
		From:      "Mangashelf <no-reply@mangashelf.local>",
		ClientURL: "http://localhost:3000",
	})

	if err := s.SendVerificationEmail(ctx, "reader@example.com", "reader", "654321", 10*time.Minute); err != nil {
		t.Fatalf("SendVerificationEmail: %v", err)
	}

	var found bool
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) && !found {
		msgs, err := mailpit.Messages(ctx)
		if err != nil {
			t.Fatalf("Messages: %v", err)
		}
		for _, m := range msgs {
			if m.Subject == "Verify your email address" && strings.Contains(m.Snippet, "654321") {
				found = true
			}
		}
		if !found {
			time.Sleep(200 * time.Millisecond)
		}
	}
	if !found {
		t.Error("verification email not delivered to mailpit")
	}
}
