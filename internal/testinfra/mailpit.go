// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultMailpitImage is an SMTP sink with an HTTP API for inspecting mail.
	DefaultMailpitImage = "axllent/mailpit:latest"

	mailpitSMTPPort = "1025/tcp"
	mailpitHTTPPort = "8025/tcp"
)

// MailpitContainer is a running Mailpit SMTP sink.
type MailpitContainer struct {
	testcontainers.Container
	SMTPHost string
	SMTPPort int
	APIURL   string
}

// MailpitMessage is the subset of Mailpit's message summary used in tests.
type MailpitMessage struct {
	ID      string `json:"ID"`
	Subject string `json:"Subject"`
	To      []struct {
		Address string `json:"Address"`
	} `json:"To"`
	Snippet string `json:"Snippet"`
}

// NewMailpitContainer starts Mailpit. SMTP accepts any credentials.
func NewMailpitContainer(ctx context.Context) (*MailpitContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        DefaultMailpitImage,
		ExposedPorts: []string{mailpitSMTPPort, mailpitHTTPPort},
		Env: map[string]string{
			"MP_SMTP_AUTH_ACCEPT_ANY":     "1",
			"MP_SMTP_AUTH_ALLOW_INSECURE": "1",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(mailpitSMTPPort),
			wait.ForHTTP("/api/v1/messages").WithPort(mailpitHTTPPort),
		).WithStartupTimeout(60 * time.Second),
	}

	container, host, err := startContainer(ctx, req)
	if err != nil {
		return nil, err
	}

	smtpPort, err := container.MappedPort(ctx, mailpitSMTPPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped smtp port: %w", err)
	}
	port, err := strconv.Atoi(smtpPort.Port())
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("parse smtp port: %w", err)
	}

	httpPort, err := container.MappedPort(ctx, mailpitHTTPPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped http port: %w", err)
	}

	return &MailpitContainer{
		Container: container,
		SMTPHost:  host,
		SMTPPort:  port,
		APIURL:    fmt.Sprintf("http://%s:%s", host, httpPort.Port()),
	}, nil
}

// Messages lists the messages Mailpit has received, newest first.
func (m *MailpitContainer) Messages(ctx context.Context) ([]MailpitMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.APIURL+"/api/v1/messages", http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Messages []MailpitMessage `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return body.Messages, nil
}
