// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

// Package sensors provides the environmental and livestock sources the
// control loop samples once per cycle.
//
// Two implementations exist. The simulated sources draw uniform random
// values in the ranges of the field prototype. HTTPSource polls a JSON
// sensor gateway behind a circuit breaker and a client-side rate limiter.
// Every error a source returns wraps ErrSourceUnavailable.
package sensors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/eden/internal/config"
	"github.com/tomtom215/eden/internal/models"
	"github.com/tomtom215/eden/internal/validation"
)

// ErrSourceUnavailable means a source could not produce a value this cycle.
var ErrSourceUnavailable = errors.New("sensor source unavailable")

// SensorSource produces one environmental reading per call.
type SensorSource interface {
	Read(ctx context.Context) (*models.SensorReading, error)
}

// LivestockSource produces the current livestock roster.
type LivestockSource interface {
	Roster(ctx context.Context) ([]models.LivestockEntry, error)
}

// New builds the sensor and livestock sources selected by cfg.Mode.
func New(cfg *config.SensorsConfig) (SensorSource, LivestockSource, error) {
	switch cfg.Mode {
	case "", "simulated":
		return NewSimulated(nil), NewSimulatedHerd(cfg.HerdSize, cfg.Species, nil), nil
	case "http":
		src, err := NewHTTPSource(cfg)
		if err != nil {
			return nil, nil, err
		}
		return src, src, nil
	default:
		return nil, nil, fmt.Errorf("unsupported sensors mode %q", cfg.Mode)
	}
}

// validateReading rejects out-of-range readings at the source boundary.
func validateReading(r *models.SensorReading) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	if verrs := validation.ValidateStruct(r); verrs != nil {
		return fmt.Errorf("%w: invalid reading: %w", ErrSourceUnavailable, verrs)
	}
	return nil
}

// validateRoster rejects livestock entries that break the roster invariants.
func validateRoster(roster []models.LivestockEntry) error {
	seen := make(map[int]struct{}, len(roster))
	for i := range roster {
		if verrs := validation.ValidateStruct(&roster[i]); verrs != nil {
			return fmt.Errorf("%w: invalid livestock entry %d: %w", ErrSourceUnavailable, i, verrs)
		}
		if _, dup := seen[roster[i].ID]; dup {
			return fmt.Errorf("%w: duplicate livestock id %d", ErrSourceUnavailable, roster[i].ID)
		}
		seen[roster[i].ID] = struct{}{}
	}
	return nil
}
