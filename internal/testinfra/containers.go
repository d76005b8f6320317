// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
)

var (
	dockerOnce sync.Once
	dockerErr  error
)

// SkipIfNoDocker skips the test when no Docker daemon answers. The probe
// runs once per test binary.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()

	if err := dockerHealth(); err != nil {
		t.Skipf("Skipping test: Docker not available: %v", err)
	}
}

// IsDockerAvailable reports whether the testcontainers Docker provider is healthy.
func IsDockerAvailable() bool {
	return dockerHealth() == nil
}

func dockerHealth() error {
	dockerOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		provider, err := testcontainers.NewDockerProvider()
		if err != nil {
			dockerErr = err
			return
		}
		defer provider.Close()
		dockerErr = provider.Health(ctx)
	})
	return dockerErr
}

// CleanupContainer terminates container and logs (not fails) on error.
func CleanupContainer(t *testing.T, ctx context.Context, container testcontainers.Container) {
	t.Helper()

	if container == nil {
		return
	}
	if err := container.Terminate(ctx); err != nil {
		t.Logf("Warning: failed to terminate %s: %v", container.GetContainerID(), err)
	}
}

// startContainer starts req and returns the container with its host name.
// The container is terminated again if the host cannot be resolved.
func startContainer(ctx context.Context, req testcontainers.ContainerRequest) (testcontainers.Container, string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("start %s: %w", req.Image, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", fmt.Errorf("resolve host of %s: %w", req.Image, err)
	}
	return container, host, nil
}
