// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

/*
Package supervisor runs the long-lived parts of Mangashelf under a suture v4
supervisor tree.

# Layout

	RootSupervisor ("mangashelf")
	├── UpstreamSupervisor ("upstream-layer")
	│   ├── limiter.Queue        (the single MangaDex request worker)
	│   └── cache.Cache          (expiry sweep, memory backend only)
	├── MaintenanceSupervisor ("maintenance-layer")
	│   └── auth.SessionSweeper  (expired refresh sessions)
	└── APISupervisor ("api-layer")
	    └── services.HTTPServerService

A crashed service is restarted by its own layer. The HTTP server keeps
answering cached responses while the queue worker restarts, and a failing
sweeper never takes the API down.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddUpstreamService(queue)
	tree.AddMaintenanceService(auth.NewSessionSweeper(sessions, 0))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	errCh := tree.ServeBackground(ctx)

Supervisor events (start, failure, backoff) are logged through sutureslog,
which writes into the zerolog stream via logging.SlogHandler.
*/
package supervisor
