// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb as a database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"github.com/tomtom215/eden/internal/config"
	"github.com/tomtom215/eden/internal/logging"
)

// sqlitePragmas keep the single-file store usable while the loop writes
// and dashboard handlers read.
const sqlitePragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_time_format=sqlite"

// Open builds the repository selected by cfg.Driver. Any failure to reach
// the backend is wrapped in ErrUnreachable.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (Repository, error) {
	switch cfg.Driver {
	case "memory":
		logging.Warn().Msg("Using in-memory repository, history is lost on restart")
		return NewMemoryStore(), nil
	case "sqlite":
		if err := ensureParentDir(cfg.Path); err != nil {
			return nil, err
		}
		return openSQL(ctx, sqliteDialect, cfg.Path+sqlitePragmas, 1)
	case "duckdb":
		if err := ensureParentDir(cfg.Path); err != nil {
			return nil, err
		}
		return openSQL(ctx, duckdbDialect, cfg.Path+"?access_mode=read_write", cfg.MaxOpenConns)
	case "postgres":
		return openSQL(ctx, postgresDialect, cfg.PostgresDSN(), cfg.MaxOpenConns)
	default:
		return nil, fmt.Errorf("%w: unsupported driver %q", ErrUnreachable, cfg.Driver)
	}
}

// OpenSQLite opens a SQLite-backed store at path. Used by tests and tools.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if err := ensureParentDir(path); err != nil {
		return nil, err
	}
	return openSQL(ctx, sqliteDialect, path+sqlitePragmas, 1)
}

func openSQL(ctx context.Context, d dialect, dsn string, maxOpen int) (*SQLStore, error) {
	conn, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrUnreachable, d.name, err)
	}
	if maxOpen > 0 {
		conn.SetMaxOpenConns(maxOpen)
	}

	store, err := newSQLStore(ctx, conn, d)
	if err != nil {
		return nil, err
	}
	logging.Info().Str("driver", d.name).Msg("Repository ready")
	return store, nil
}

// ensureParentDir creates the directory holding a database file.
func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: failed to create database directory %s: %w", ErrUnreachable, dir, err)
	}
	return nil
}
