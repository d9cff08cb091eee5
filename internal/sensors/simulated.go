// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package sensors

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tomtom215/eden/internal/models"
)

// Simulated sensor ranges.
const (
	maxSoilMoisture = 100
	minTemperature  = 15.0
	maxTemperature  = 35.0
	maxWaterLevel   = 1000
	maxEnergyLevel  = 500.0
	maxFeedLevel    = 10.0
	maxWaterDrunk   = 15.0

	DefaultHerdSize = 5
	DefaultSpecies  = "Chicken"
)

// lockedRand serializes access to a *rand.Rand, which is not safe for
// concurrent use.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newLockedRand(r *rand.Rand) *lockedRand {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &lockedRand{r: r}
}

func (l *lockedRand) intN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

func (l *lockedRand) uniform(lo, hi float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return lo + l.r.Float64()*(hi-lo)
}

// Simulated is a SensorSource returning uniformly random readings.
type Simulated struct {
	rng *lockedRand
	now func() time.Time
}

// NewSimulated returns a simulated sensor. A nil r seeds from the runtime.
func NewSimulated(r *rand.Rand) *Simulated {
	return &Simulated{rng: newLockedRand(r), now: time.Now}
}

// Read implements SensorSource.
func (s *Simulated) Read(ctx context.Context) (*models.SensorReading, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return &models.SensorReading{
		Timestamp:    s.now().UTC(),
		SoilMoisture: s.rng.intN(maxSoilMoisture + 1),
		Temperature:  s.rng.uniform(minTemperature, maxTemperature),
		WaterLevel:   s.rng.intN(maxWaterLevel + 1),
		EnergyLevel:  s.rng.uniform(0, maxEnergyLevel),
	}, nil
}

// SimulatedHerd is a LivestockSource with a fixed herd of one species,
// ids 1..size, whose feed and water values are redrawn on every call.
type SimulatedHerd struct {
	rng     *lockedRand
	size    int
	species string
}

// NewSimulatedHerd returns a simulated herd. Non-positive size and empty
// species fall back to five chickens.
func NewSimulatedHerd(size int, species string, r *rand.Rand) *SimulatedHerd {
	if size <= 0 {
		size = DefaultHerdSize
	}
	if species == "" {
		species = DefaultSpecies
	}
	return &SimulatedHerd{rng: newLockedRand(r), size: size, species: species}
}

// Roster implements LivestockSource.
func (h *SimulatedHerd) Roster(ctx context.Context) ([]models.LivestockEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	roster := make([]models.LivestockEntry, h.size)
	for i := range roster {
		roster[i] = models.LivestockEntry{
			ID:            i + 1,
			Species:       h.species,
			FeedLevel:     h.rng.uniform(0, maxFeedLevel),
			WaterConsumed: h.rng.uniform(0, maxWaterDrunk),
		}
	}
	return roster, nil
}
