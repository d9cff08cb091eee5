// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

// Package main is the entry point for the Eden farm controller.
//
// Eden periodically samples soil, climate, water, energy and livestock
// sensors, decides on farm actions, records everything in a repository,
// and serves a login-protected dashboard of the latest state.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, optional YAML file, environment (Koanf v2)
//  2. Logging: global zerolog logger
//  3. Repository: memory, SQLite, DuckDB or PostgreSQL; an unreachable
//     database is the only fatal startup error
//  4. Sensors: simulated or HTTP gateway (rate limited, circuit breaker)
//  5. Control loop: one goroutine, publishes a snapshot per cycle
//  6. Sessions and accounts: memory or BadgerDB sessions, bcrypt passwords
//  7. HTTP server: chi router with dashboard, JSON API, metrics, websocket
//  8. Supervisor tree: control, messaging and api layers (suture)
//
// # Flags
//
//	--once     run a single control cycle, log the resulting actions, exit
//	--version  print the version and exit
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (DB_DRIVER, CONTROL_INTERVAL, HTTP_PORT, ...)
//   - Config file (EDEN_CONFIG, ./config.yaml or /etc/eden/config.yaml)
//   - Built-in defaults
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The control loop finishes
// its in-flight cycle, the HTTP server drains requests within
// server.shutdown_timeout, and the repository is closed last.
//
// # Example Usage
//
// Simulated sensors with SQLite:
//
//	export ADMIN_USERNAME=admin
//	export ADMIN_PASSWORD=change-me-please
//	./eden
//
// HTTP sensor gateway with PostgreSQL:
//
//	export SENSORS_MODE=http
//	export SENSORS_URL=http://gateway.local:9000
//	export DB_DRIVER=postgres
//	export DB_HOST=db.local
//	export DB_PASSWORD=secret
//	./eden
//
// Single cycle from cron:
//
//	./eden --once
package main
