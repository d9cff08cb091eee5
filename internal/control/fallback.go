// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package control

import (
	"context"
	"fmt"

	"github.com/tomtom215/eden/internal/database"
	"github.com/tomtom215/eden/internal/models"
	"github.com/tomtom215/eden/internal/state"
)

// GetCurrentOrFallback returns the published snapshot, or rebuilds a
// best-effort one from the repository's latest rows when no cycle has
// completed yet. An empty repository yields an empty snapshot. Aggregates
// cover windowHours, which should match the loop's configured window;
// windowHours <= 0 means DefaultTrendWindowHours.
func GetCurrentOrFallback(ctx context.Context, handle *state.Handle, repo database.Repository, windowHours int) (*models.Snapshot, error) {
	if snap, ok := handle.Current(); ok {
		return snap, nil
	}

	reading, err := repo.LatestReading(ctx)
	if err != nil {
		return nil, fmt.Errorf("fallback snapshot: latest reading: %w", err)
	}
	livestock, err := repo.LatestLivestock(ctx)
	if err != nil {
		return nil, fmt.Errorf("fallback snapshot: latest livestock: %w", err)
	}
	records, err := repo.LatestActions(ctx, database.DefaultActionLimit)
	if err != nil {
		return nil, fmt.Errorf("fallback snapshot: latest actions: %w", err)
	}

	actions := make([]string, len(records))
	for i, rec := range records {
		actions[i] = rec.Description
	}
	if livestock == nil {
		livestock = []models.LivestockEntry{}
	}

	snap := &models.Snapshot{
		Reading:   reading,
		Livestock: livestock,
		Actions:   actions,
		Fallback:  true,
	}
	if windowHours <= 0 {
		windowHours = DefaultTrendWindowHours
	}
	fillAggregates(ctx, repo, snap, windowHours)
	return snap, nil
}
