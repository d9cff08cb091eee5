// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package database

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/tomtom215/eden/internal/models"
)

type livestockRow struct {
	id    int64
	ts    time.Time
	entry models.LivestockEntry
}

// MemoryStore is an in-process Repository guarded by a RWMutex.
type MemoryStore struct {
	mu        sync.RWMutex
	readings  []models.SensorReading
	actions   []models.ActionRecord
	livestock []livestockRow
	users     map[string]*models.UserAccount
	nextID    int64
	now       func() time.Time

	// failWrites maps a write operation to an injected failure.
	failWrites map[string]error
}

var _ Repository = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]*models.UserAccount),
		now:        time.Now,
		failWrites: make(map[string]error),
	}
}

// SetClock overrides the clock used for window queries.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// FailWrites makes the named write operation (save_reading, save_action,
// save_livestock) fail with err until cleared with a nil err.
func (m *MemoryStore) FailWrites(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failWrites, op)
		return
	}
	m.failWrites[op] = err
}

// writeErr must be called with mu held.
func (m *MemoryStore) writeErr(op string) error {
	if err, ok := m.failWrites[op]; ok {
		return persistenceError(op, err)
	}
	return nil
}

func (m *MemoryStore) SaveReading(_ context.Context, r *models.SensorReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeErr("save_reading"); err != nil {
		return err
	}
	m.readings = append(m.readings, *r)
	return nil
}

func (m *MemoryStore) SaveAction(_ context.Context, ts time.Time, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeErr("save_action"); err != nil {
		return err
	}
	m.nextID++
	m.actions = append(m.actions, models.ActionRecord{ID: m.nextID, Timestamp: ts, Description: text})
	return nil
}

func (m *MemoryStore) SaveLivestock(_ context.Context, entry models.LivestockEntry, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeErr("save_livestock"); err != nil {
		return err
	}
	m.nextID++
	m.livestock = append(m.livestock, livestockRow{id: m.nextID, ts: ts, entry: entry})
	return nil
}

// inWindow must be called with mu held.
func (m *MemoryStore) inWindow(windowHours int) []models.SensorReading {
	start := windowStart(m.now(), windowHours)
	var out []models.SensorReading
	for _, r := range m.readings {
		if !r.Timestamp.Before(start) {
			out = append(out, r)
		}
	}
	return out
}

func (m *MemoryStore) Average(_ context.Context, metric models.Metric, windowHours int) (float64, error) {
	if _, err := models.ParseMetric(string(metric)); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.inWindow(windowHours)
	if len(rows) == 0 {
		return 0, nil
	}
	var sum float64
	for i := range rows {
		sum += metric.Value(&rows[i])
	}
	return sum / float64(len(rows)), nil
}

func (m *MemoryStore) Trend(_ context.Context, metric models.Metric, windowHours int) ([]models.TrendPoint, error) {
	if _, err := models.ParseMetric(string(metric)); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.inWindow(windowHours)
	points := make([]models.TrendPoint, 0, len(rows))
	for i := range rows {
		points = append(points, models.TrendPoint{Timestamp: rows[i].Timestamp, Value: metric.Value(&rows[i])})
	}
	slices.SortStableFunc(points, func(a, b models.TrendPoint) int { return a.Timestamp.Compare(b.Timestamp) })
	return points, nil
}

func (m *MemoryStore) LatestReading(_ context.Context) (*models.SensorReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.readings) == 0 {
		return nil, nil
	}
	latest := m.readings[0]
	for _, r := range m.readings[1:] {
		if !r.Timestamp.Before(latest.Timestamp) {
			latest = r
		}
	}
	return &latest, nil
}

func (m *MemoryStore) LatestLivestock(_ context.Context) ([]models.LivestockEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	newest := make(map[int]livestockRow)
	for _, row := range m.livestock {
		cur, ok := newest[row.entry.ID]
		if !ok || row.ts.After(cur.ts) || (row.ts.Equal(cur.ts) && row.id > cur.id) {
			newest[row.entry.ID] = row
		}
	}
	out := make([]models.LivestockEntry, 0, len(newest))
	for _, row := range newest {
		out = append(out, row.entry)
	}
	slices.SortFunc(out, func(a, b models.LivestockEntry) int { return a.ID - b.ID })
	return out, nil
}

func (m *MemoryStore) LatestActions(_ context.Context, limit int) ([]models.ActionRecord, error) {
	if limit <= 0 {
		limit = DefaultActionLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := slices.Clone(m.actions)
	slices.SortStableFunc(out, func(a, b models.ActionRecord) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) FindUser(_ context.Context, username string) (*models.UserAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	c := *u
	return &c, nil
}

func (m *MemoryStore) CreateUser(_ context.Context, username, passwordHash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; ok {
		return 0, fmt.Errorf("%w: %s", ErrUserExists, username)
	}
	m.nextID++
	m.users[username] = &models.UserAccount{
		ID:           m.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    m.now().UTC(),
	}
	return m.nextID, nil
}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
