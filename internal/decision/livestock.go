// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/eden/internal/logging"
	"github.com/tomtom215/eden/internal/metrics"
	"github.com/tomtom215/eden/internal/models"
)

// LivestockRecorder receives every roster entry the manager inspects.
// database.Repository satisfies it.
type LivestockRecorder interface {
	SaveLivestock(ctx context.Context, entry models.LivestockEntry, ts time.Time) error
}

// Manager applies the livestock feed and water rules.
type Manager struct {
	thresholds models.Thresholds
	recorder   LivestockRecorder
}

// NewManager creates a manager. recorder may be nil, in which case entries
// are not recorded.
func NewManager(th models.Thresholds, recorder LivestockRecorder) *Manager {
	return &Manager{thresholds: th, recorder: recorder}
}

// Manage scans the roster and returns the resulting actions together with
// the total water the herd still needs.
//
// The water demand is compared against availableWater and reported as a
// shortage warning or an allocation message. availableWater itself is
// never modified. Recorder failures are logged and counted but do not
// change the returned actions.
func (m *Manager) Manage(ctx context.Context, roster []models.LivestockEntry, availableWater int, ts time.Time) ([]string, float64) {
	var actions []string
	var totalWaterNeeded float64

	for _, entry := range roster {
		if entry.FeedLevel < m.thresholds.MinFeedLevel {
			actions = append(actions, FeedRefillAction(entry))
		}

		if entry.WaterConsumed < m.thresholds.MinWaterPerAnimal {
			need := m.thresholds.MinWaterPerAnimal - entry.WaterConsumed
			totalWaterNeeded += need
			actions = append(actions, WateringAction(entry, need))
		}

		m.record(ctx, entry, ts)
	}

	switch {
	case totalWaterNeeded > float64(availableWater):
		actions = append(actions, ShortageAction(totalWaterNeeded, availableWater))
	case totalWaterNeeded > 0:
		actions = append(actions, AllocationAction(totalWaterNeeded))
	}

	return actions, totalWaterNeeded
}

func (m *Manager) record(ctx context.Context, entry models.LivestockEntry, ts time.Time) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.SaveLivestock(ctx, entry, ts); err != nil {
		metrics.RecordPersistenceError("save_livestock")
		logging.Ctx(ctx).Error().Err(err).
			Int("animal_id", entry.ID).
			Str("species", entry.Species).
			Msg("Failed to record livestock entry")
	}
}

// FeedRefillAction formats the low-feed action for one animal.
func FeedRefillAction(e models.LivestockEntry) string {
	return fmt.Sprintf("Refill feed for %s ID %d: Feed level %.1fkg below minimum.", e.Species, e.ID, e.FeedLevel)
}

// WateringAction formats the per-animal watering action.
func WateringAction(e models.LivestockEntry, need float64) string {
	return fmt.Sprintf("Provide %.1fL water to %s ID %d: Consumed only %.1fL.", need, e.Species, e.ID, e.WaterConsumed)
}

// ShortageAction formats the herd-wide water shortage warning.
func ShortageAction(needed float64, available int) string {
	return fmt.Sprintf("Warning: Not enough water for livestock. Need %.1fL, available %dL.", needed, available)
}

// AllocationAction formats the herd-wide allocation confirmation.
func AllocationAction(needed float64) string {
	return fmt.Sprintf("Allocated %.1fL water to livestock.", needed)
}
