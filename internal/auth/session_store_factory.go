// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/eden/internal/logging"
)

// SessionStoreType selects the session backend.
type SessionStoreType string

const (
	// SessionStoreMemory keeps sessions in memory (default).
	SessionStoreMemory SessionStoreType = "memory"

	// SessionStoreBadger persists sessions in BadgerDB.
	SessionStoreBadger SessionStoreType = "badger"
)

// SessionStoreFactory owns the backing database of the configured store.
type SessionStoreFactory struct {
	db *badger.DB
}

// NewSessionStoreFactory opens BadgerDB at path for the badger type.
// Other types open nothing.
func NewSessionStoreFactory(storeType SessionStoreType, path string) (*SessionStoreFactory, error) {
	factory := &SessionStoreFactory{}

	if storeType == SessionStoreBadger {
		opts := badger.DefaultOptions(path)
		opts.Logger = nil

		db, err := badger.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("open badger db for sessions: %w", err)
		}
		factory.db = db
		logging.Info().Str("path", path).Msg("Session store opened")
	}
	return factory, nil
}

// CreateStore returns the configured SessionStore.
func (f *SessionStoreFactory) CreateStore() SessionStore {
	if f.db != nil {
		return NewBadgerSessionStore(f.db)
	}
	return NewMemorySessionStore()
}

// Close closes the BadgerDB if one was opened.
func (f *SessionStoreFactory) Close() error {
	if f.db != nil {
		return f.db.Close()
	}
	return nil
}

// SessionJanitor periodically removes expired sessions. It implements
// suture.Service.
type SessionJanitor struct {
	store    SessionStore
	interval time.Duration
}

// NewSessionJanitor creates a janitor running every interval.
func NewSessionJanitor(store SessionStore, interval time.Duration) *SessionJanitor {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &SessionJanitor{store: store, interval: interval}
}

// Serve implements suture.Service.
func (j *SessionJanitor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := j.store.CleanupExpired(ctx)
			if err != nil {
				logging.Warn().Err(err).Msg("Session cleanup failed")
				continue
			}
			if n > 0 {
				logging.Debug().Int("removed", n).Msg("Expired sessions removed")
			}
		}
	}
}

func (j *SessionJanitor) String() string {
	return "session-janitor"
}
