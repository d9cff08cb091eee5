// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/eden/internal/control"
	"github.com/tomtom215/eden/internal/database"
	"github.com/tomtom215/eden/internal/models"
)

const (
	maxActionLimit = 500
	maxTrendHours  = 24 * 31

	healthPingTimeout = 2 * time.Second
)

// TrendResponse is the /api/v1/trend payload.
type TrendResponse struct {
	Metric  models.Metric       `json:"metric"`
	Hours   int                 `json:"hours"`
	Average float64             `json:"average"`
	Points  []models.TrendPoint `json:"points"`
}

// Snapshot returns the current snapshot, or the fallback before the first
// cycle completes.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := control.GetCurrentOrFallback(r.Context(), h.handle, h.repo, h.trendWindow)
	if err != nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeDatabaseError, "Snapshot unavailable", err)
		return
	}
	respondSuccess(w, r, snap)
}

// Actions returns the newest actions, newest first.
func (h *Handler) Actions(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(r, "limit", database.DefaultActionLimit, 1, maxActionLimit)
	if !ok {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "limit must be an integer between 1 and 500", nil)
		return
	}

	actions, err := h.repo.LatestActions(r.Context(), limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to load actions", err)
		return
	}
	if actions == nil {
		actions = []models.ActionRecord{}
	}
	respondSuccess(w, r, actions)
}

// Trend returns a metric's samples and mean over a trailing window.
func (h *Handler) Trend(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("metric")
	if name == "" {
		name = string(models.MetricSoilMoisture)
	}
	metric, err := models.ParseMetric(name)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	hours, ok := intParam(r, "hours", h.trendWindow, 1, maxTrendHours)
	if !ok {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "hours must be an integer between 1 and 744", nil)
		return
	}

	if cached, ok := h.trends.get(metric, hours); ok {
		respondSuccess(w, r, cached)
		return
	}
	generation := h.trends.currentGeneration()

	points, err := h.repo.Trend(r.Context(), metric, hours)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to load trend", err)
		return
	}
	avg, err := h.repo.Average(r.Context(), metric, hours)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to load average", err)
		return
	}
	if points == nil {
		points = []models.TrendPoint{}
	}

	resp := TrendResponse{Metric: metric, Hours: hours, Average: avg, Points: points}
	h.trends.set(resp, generation)
	respondSuccess(w, r, resp)
}

// Health reports liveness, repository reachability and snapshot age. It
// answers 200 while the repository is reachable and 503 otherwise.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	dbConnected := h.repo.Ping(ctx) == nil

	health := models.HealthStatus{
		Status:            "healthy",
		Version:           h.version,
		DatabaseConnected: dbConnected,
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	if snap, ok := h.handle.Current(); ok {
		health.SnapshotAvailable = true
		health.SnapshotAgeSeconds = snap.Age(h.now()).Seconds()
	}
	if h.loop != nil {
		health.ControlState = h.loop.State().String()
	}

	status := http.StatusOK
	if !dbConnected {
		health.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, r, status, &models.APIResponse{
		Status:   "success",
		Data:     health,
		Metadata: metadata(r),
	})
}

// intParam parses an optional integer query parameter within [lo, hi].
func intParam(r *http.Request, key string, def, lo, hi int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return 0, false
	}
	return v, true
}
