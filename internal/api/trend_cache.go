// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package api

import (
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/eden/internal/cache"
	"github.com/tomtom215/eden/internal/models"
)

// DefaultTrendCacheTTL bounds how long a trend response is reused when no
// snapshot is published in between.
const DefaultTrendCacheTTL = 30 * time.Second

// TrendCache memoizes /api/v1/trend responses. Registered as a control
// loop publisher, it is emptied whenever a new snapshot is published.
// Responses computed before a publish are refused by set.
type TrendCache struct {
	entries *cache.Cache[TrendResponse]

	mu         sync.Mutex
	generation uint64
}

// NewTrendCache creates a trend cache. ttl <= 0 uses DefaultTrendCacheTTL.
func NewTrendCache(ttl time.Duration) *TrendCache {
	if ttl <= 0 {
		ttl = DefaultTrendCacheTTL
	}
	return &TrendCache{entries: cache.New[TrendResponse](ttl, 256)}
}

// PublishSnapshot drops every cached response and starts a new
// generation.
func (t *TrendCache) PublishSnapshot(*models.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.generation++
	t.entries.Clear()
}

// currentGeneration is taken before reading the repository and handed
// back to set.
func (t *TrendCache) currentGeneration() uint64 {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation
}

// Stats exposes the underlying cache statistics.
func (t *TrendCache) Stats() cache.Stats {
	return t.entries.Stats()
}

func (t *TrendCache) get(metric models.Metric, hours int) (TrendResponse, bool) {
	if t == nil {
		return TrendResponse{}, false
	}
	return t.entries.Get(trendKey(metric, hours))
}

// set stores resp unless a snapshot was published since generation was
// read.
func (t *TrendCache) set(resp TrendResponse, generation uint64) bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if generation != t.generation {
		return false
	}
	t.entries.Set(trendKey(resp.Metric, resp.Hours), resp)
	return true
}

func trendKey(metric models.Metric, hours int) string {
	return fmt.Sprintf("%s:%d", metric, hours)
}
