// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

// Package api serves the farm dashboard: rendered HTML pages behind a
// session cookie, a small JSON API under /api/v1, Prometheus metrics, and
// a websocket stream of published snapshots.
//
// Handlers only read. The control loop is the single writer of the shared
// snapshot, and the repository is the single source for history.
package api

import (
	"errors"
	"time"

	"github.com/tomtom215/eden/internal/auth"
	"github.com/tomtom215/eden/internal/control"
	"github.com/tomtom215/eden/internal/database"
	"github.com/tomtom215/eden/internal/state"
	"github.com/tomtom215/eden/internal/websocket"
)

// LoopStatus reports the control loop lifecycle state for health checks.
type LoopStatus interface {
	State() control.State
}

// Dependencies are the collaborators a Handler reads from.
type Dependencies struct {
	Repository database.Repository
	Handle     *state.Handle
	Loop       LoopStatus // optional
	Auth       *auth.Service
	Sessions   *auth.SessionMiddleware
	Hub        *websocket.Hub // optional; /ws answers 503 without it
	Trends     *TrendCache    // optional; trend queries hit the repository without it

	// TrendWindowHours is the control loop's aggregate window, used for
	// cold-start snapshots and as the default trend range. <= 0 means
	// control.DefaultTrendWindowHours.
	TrendWindowHours int

	// AllowedOrigins for websocket upgrades. "*" allows any origin.
	AllowedOrigins []string
	Version        string
}

// Handler holds the dashboard's HTTP handlers.
type Handler struct {
	repo        database.Repository
	handle      *state.Handle
	loop        LoopStatus
	auth        *auth.Service
	sessions    *auth.SessionMiddleware
	hub         *websocket.Hub
	trends      *TrendCache
	trendWindow int
	origins     []string
	version     string
	pages       pageSet
	startTime   time.Time
	now         func() time.Time
}

// NewHandler validates deps and parses the page templates.
func NewHandler(deps Dependencies) (*Handler, error) {
	if deps.Repository == nil || deps.Handle == nil {
		return nil, errors.New("api: repository and state handle are required")
	}
	if deps.Auth == nil || deps.Sessions == nil {
		return nil, errors.New("api: auth service and session middleware are required")
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	version := deps.Version
	if version == "" {
		version = "dev"
	}
	trendWindow := deps.TrendWindowHours
	if trendWindow <= 0 {
		trendWindow = control.DefaultTrendWindowHours
	}

	return &Handler{
		repo:        deps.Repository,
		handle:      deps.Handle,
		loop:        deps.Loop,
		auth:        deps.Auth,
		sessions:    deps.Sessions,
		hub:         deps.Hub,
		trends:      deps.Trends,
		trendWindow: trendWindow,
		origins:     deps.AllowedOrigins,
		version:     version,
		pages:       pages,
		startTime:   time.Now(),
		now:         time.Now,
	}, nil
}
