// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package api

import (
	"testing"
	"time"

	"github.com/tomtom215/eden/internal/models"
)

func TestTrendCacheRefusesResponsesFromBeforePublish(t *testing.T) {
	t.Parallel()
	trends := NewTrendCache(time.Hour)
	stale := TrendResponse{Metric: models.MetricSoilMoisture, Hours: 24, Average: 20}

	generation := trends.currentGeneration()
	// The repository read finishes after a new snapshot was published.
	trends.PublishSnapshot(&models.Snapshot{Cycle: 2})
	if trends.set(stale, generation) {
		t.Error("set() accepted a response computed before the publish")
	}
	if _, ok := trends.get(models.MetricSoilMoisture, 24); ok {
		t.Error("stale response served after publish")
	}

	fresh := TrendResponse{Metric: models.MetricSoilMoisture, Hours: 24, Average: 30}
	if !trends.set(fresh, trends.currentGeneration()) {
		t.Fatal("set() refused a current response")
	}
	got, ok := trends.get(models.MetricSoilMoisture, 24)
	if !ok || got.Average != 30 {
		t.Errorf("get() = %+v, %v; want average 30", got, ok)
	}
}

func TestNilTrendCache(t *testing.T) {
	t.Parallel()
	var trends *TrendCache

	if trends.set(TrendResponse{}, trends.currentGeneration()) {
		t.Error("nil cache stored a response")
	}
	if _, ok := trends.get(models.MetricTemperature, 1); ok {
		t.Error("nil cache reported a hit")
	}
	if NewTrendCache(0).entries == nil {
		t.Error("NewTrendCache(0) has no backing cache")
	}
}
