// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if cfg.Caller {
		t.Error("expected default caller to be false")
	}
	if !cfg.Timestamp {
		t.Error("expected default timestamp to be true")
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Timestamp: true, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Str("manga_id", "abc").Msg("feed requested")

	output := buf.String()
	if !strings.Contains(output, "feed requested") {
		t.Errorf("expected message in output, got: %s", output)
	}
	if !strings.Contains(output, `"level":"info"`) {
		t.Errorf("expected level in output, got: %s", output)
	}
	if !strings.Contains(output, `"manga_id":"abc"`) {
		t.Errorf("expected field in output, got: %s", output)
	}
}

func TestInit_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Debug().Msg("hidden-debug")
	Info().Msg("hidden-info")
	Warn().Msg("shown-warn")
	Err(errors.New("boom")).Msg("shown-error")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("expected debug and info to be filtered, got: %s", output)
	}
	if !strings.Contains(output, "shown-warn") || !strings.Contains(output, "shown-error") {
		t.Errorf("expected warn and error output, got: %s", output)
	}
	if !strings.Contains(output, `"error":"boom"`) {
		t.Errorf("expected error field, got: %s", output)
	}
}

func TestInit_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "console", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Msg("console line")

	output := buf.String()
	if !strings.Contains(output, "console line") {
		t.Errorf("expected message in console output, got: %s", output)
	}
	if strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Errorf("expected non-JSON console output, got: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"disabled", zerolog.Disabled},
		{"DEBUG", zerolog.DebugLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSetLevelString(t *testing.T) {
	original := GetLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(original) })

	SetLevelString("error")
	if GetLevel() != zerolog.ErrorLevel {
		t.Errorf("expected error level, got %v", GetLevel())
	}
}

func TestFormatForEnvironment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, format, env, want string
	}{
		{"explicit wins", "json", "development", "json"},
		{"development defaults to console", "", "development", "console"},
		{"case insensitive", "", "Development", "console"},
		{"production defaults to json", "", "production", "json"},
		{"empty env defaults to json", "", "", "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := FormatForEnvironment(tt.format, tt.env); got != tt.want {
				t.Errorf("FormatForEnvironment(%q, %q) = %q, want %q", tt.format, tt.env, got, tt.want)
			}
		})
	}
}

func TestSetLoggerAndWith(t *testing.T) {
	var buf bytes.Buffer
	original := Logger()
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { SetLogger(original) })

	child := With().Str("component", "cache").Logger()
	child.Info().Msg("hit")

	if !strings.Contains(buf.String(), `"component":"cache"`) {
		t.Errorf("expected component field, got: %s", buf.String())
	}
}

func TestInit_ServiceAndEnvironmentFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Environment: "staging", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Warn().Msg("queue backlog")

	output := buf.String()
	if !strings.Contains(output, `"service":"mangashelf"`) {
		t.Errorf("expected service field, got: %s", output)
	}
	if !strings.Contains(output, `"env":"staging"`) {
		t.Errorf("expected env field, got: %s", output)
	}
}

func TestInit_FormatFollowsEnvironment(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Environment: "development", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Msg("dev line")

	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("expected console output in development, got: %s", buf.String())
	}
}
