// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

// Package database provides Eden's repository: durable, append-only
// storage for sensor readings, actions, livestock observations and user
// accounts, plus the windowed aggregate queries the dashboard needs.
//
// Two implementations share the Repository contract:
//
//   - MemoryStore keeps everything in process (tests, demos, DB_DRIVER=memory)
//   - SQLStore runs on database/sql against SQLite (modernc.org/sqlite),
//     DuckDB (duckdb-go) or PostgreSQL (pgx stdlib)
//
// Open selects the implementation from configuration and refuses to return
// a repository it cannot reach.
package database

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/eden/internal/models"
)

// DefaultActionLimit is used by LatestActions when limit <= 0.
const DefaultActionLimit = 10

var (
	// ErrPersistence wraps every failed write.
	ErrPersistence = errors.New("persistence error")

	// ErrUnreachable is returned by Open when the store cannot be reached.
	// The process must not start serving in that case.
	ErrUnreachable = errors.New("repository unreachable")

	// ErrUserExists is returned by CreateUser for a taken username.
	ErrUserExists = errors.New("username already exists")

	// ErrUserNotFound is returned by FindUser.
	ErrUserNotFound = errors.New("user not found")
)

// Repository is safe for concurrent use by the control loop and any
// number of HTTP handlers.
type Repository interface {
	SaveReading(ctx context.Context, r *models.SensorReading) error
	SaveAction(ctx context.Context, ts time.Time, text string) error
	SaveLivestock(ctx context.Context, entry models.LivestockEntry, ts time.Time) error

	// Average returns the mean of metric over the trailing window, or 0
	// when there are no readings in it.
	Average(ctx context.Context, metric models.Metric, windowHours int) (float64, error)

	// Trend returns the metric's samples in the trailing window, oldest first.
	Trend(ctx context.Context, metric models.Metric, windowHours int) ([]models.TrendPoint, error)

	// LatestReading returns nil, nil when no reading has been stored.
	LatestReading(ctx context.Context) (*models.SensorReading, error)

	// LatestLivestock returns the newest observation per animal, ordered by id.
	LatestLivestock(ctx context.Context) ([]models.LivestockEntry, error)

	// LatestActions returns up to limit actions, newest first.
	LatestActions(ctx context.Context, limit int) ([]models.ActionRecord, error)

	FindUser(ctx context.Context, username string) (*models.UserAccount, error)
	CreateUser(ctx context.Context, username, passwordHash string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// windowStart returns the lower bound of a trailing window ending at now.
func windowStart(now time.Time, windowHours int) time.Time {
	return now.Add(-time.Duration(windowHours) * time.Hour)
}
