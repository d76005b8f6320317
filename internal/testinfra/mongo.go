// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultMongoImage is the MongoDB image used by integration tests.
	DefaultMongoImage = "mongo:7"

	mongoPort = "27017/tcp"
)

// MongoContainer is a running standalone MongoDB instance.
type MongoContainer struct {
	testcontainers.Container
	// URI is a mongodb:// connection string.
	URI string
}

// NewMongoContainer starts MongoDB and waits for it to accept connections.
func NewMongoContainer(ctx context.Context) (*MongoContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        DefaultMongoImage,
		ExposedPorts: []string{mongoPort},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(mongoPort),
			wait.ForLog("Waiting for connections"),
		).WithStartupTimeout(90 * time.Second),
	}

	container, host, err := startContainer(ctx, req)
	if err != nil {
		return nil, err
	}

	port, err := container.MappedPort(ctx, mongoPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}

	return &MongoContainer{Container: container, URI: "mongodb://" + host + ":" + port.Port()}, nil
}
