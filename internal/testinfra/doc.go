// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

// Package testinfra provides shared test infrastructure.
//
// FakeMangaDex is an httptest server that stands in for api.mangadex.org and
// records every request it receives. It is always compiled so unit tests in
// any package can use it.
//
// The container helpers (Redis, MongoDB, Mailpit) are built only with the
// integration tag and use testcontainers-go:
//
//	//go:build integration
//
//	func TestMongoStore(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    mongo, err := testinfra.NewMongoContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, mongo)
//
//	    store, err := users.NewMongoStore(ctx, mongo.URI, "mangashelf_test")
//	    // ...
//	}
//
// Run them with:
//
//	go test -tags integration ./...
//
// Tests are skipped gracefully if Docker is unavailable. The first run pulls
// images; later runs use the local cache.
package testinfra
