// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

/*
Package supervisor runs Placegate's long-lived services under suture v4.

The tree has three layers so that each can restart on its own:

	RootSupervisor ("placegate")
	├── DataSupervisor ("data-layer")
	│   ├── kvstore.GCService ("kv-gc")
	│   └── cache.Cache ("place-finder-cache")
	├── MessagingSupervisor ("messaging-layer")
	│   ├── jobs.Router ("job-router")
	│   └── jobs.Scheduler ("sync-scheduler", when SYNC_SCHEDULE is set)
	└── APISupervisor ("api-layer")
	    └── services.HTTPServerService ("http-server")

Supervisor events (start, failure, backoff) are logged through sutureslog on
the zerolog-backed slog handler from the logging package.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddDataService(kvstore.NewGCService(kv, cfg.KV.GCInterval))
	tree.AddMessagingService(jobRouter)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)
*/
package supervisor
