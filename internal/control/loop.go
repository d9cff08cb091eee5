// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

// Package control runs the sense, decide, persist and publish cycle.
//
// A Loop owns the authoritative snapshot. Each cycle samples both sources,
// applies the decision rules, writes the results to the repository and
// swaps a fully built snapshot into the shared state.Handle. Errors inside
// a cycle never leave the loop: sensing failures skip publishing, write
// failures are logged and counted, and panics are recovered.
//
// Loop implements suture.Service so the supervisor tree can restart it
// independently of the HTTP server.
package control

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/tomtom215/eden/internal/database"
	"github.com/tomtom215/eden/internal/decision"
	"github.com/tomtom215/eden/internal/logging"
	"github.com/tomtom215/eden/internal/metrics"
	"github.com/tomtom215/eden/internal/models"
	"github.com/tomtom215/eden/internal/sensors"
	"github.com/tomtom215/eden/internal/state"
)

// Defaults applied by NewLoop to zero Config fields.
const (
	DefaultInterval         = 5 * time.Minute
	DefaultCycleTimeout     = 30 * time.Second
	DefaultTrendWindowHours = 24
)

// ErrCyclePanic is returned by RunCycle when a cycle panicked.
var ErrCyclePanic = errors.New("control cycle panicked")

// Cycle outcomes recorded in eden_cycles_total.
const (
	outcomePublished         = "published"
	outcomeSourceUnavailable = "source_unavailable"
	outcomePanic             = "panic"
)

// Publisher is notified after each snapshot swap.
type Publisher interface {
	PublishSnapshot(s *models.Snapshot)
}

// Config holds the loop settings.
type Config struct {
	Interval         time.Duration
	CycleTimeout     time.Duration
	TrendWindowHours int
	Thresholds       models.Thresholds
}

// Loop is the farm control loop.
type Loop struct {
	cfg        Config
	sensor     sensors.SensorSource
	herd       sensors.LivestockSource
	repo       database.Repository
	handle     *state.Handle
	manager    *decision.Manager
	publishers []Publisher

	state atomic.Int32
	cycle atomic.Uint64
	now   func() time.Time
}

// Option configures a Loop.
type Option func(*Loop)

// WithPublisher registers a publisher notified after every swap.
func WithPublisher(p Publisher) Option {
	return func(l *Loop) {
		if p != nil {
			l.publishers = append(l.publishers, p)
		}
	}
}

// WithClock overrides the clock used for cycle timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

// NewLoop wires a control loop. The repository doubles as the livestock
// recorder.
func NewLoop(cfg Config, sensor sensors.SensorSource, herd sensors.LivestockSource, repo database.Repository, handle *state.Handle, opts ...Option) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = DefaultCycleTimeout
	}
	if cfg.TrendWindowHours <= 0 {
		cfg.TrendWindowHours = DefaultTrendWindowHours
	}

	l := &Loop{
		cfg:     cfg,
		sensor:  sensor,
		herd:    herd,
		repo:    repo,
		handle:  handle,
		manager: decision.NewManager(cfg.Thresholds, repo),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.setState(StateIdle)
	return l
}

// State returns the current loop state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// TrendWindowHours returns the aggregate window used for snapshots.
func (l *Loop) TrendWindowHours() int {
	return l.cfg.TrendWindowHours
}

// Cycles returns how many snapshots the loop has published.
func (l *Loop) Cycles() uint64 {
	return l.cycle.Load()
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
	metrics.ControlState.Set(float64(s))
}

// String implements fmt.Stringer for suture logging.
func (l *Loop) String() string {
	return "control-loop"
}

// Serve implements suture.Service. It runs a cycle immediately, then one
// per interval, until ctx is cancelled.
func (l *Loop) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", l.cfg.Interval).Msg("Control loop started")

	for ctx.Err() == nil {
		if err := l.RunCycle(ctx); err != nil {
			logging.Warn().Err(err).Msg("Control cycle did not publish")
		}
		l.setState(StateSleeping)
		if !l.sleep(ctx) {
			break
		}
	}

	l.setState(StateStopped)
	logging.Info().Uint64("cycles", l.Cycles()).Msg("Control loop stopped")
	return ctx.Err()
}

// sleep waits one interval. It returns false when ctx was cancelled first.
func (l *Loop) sleep(ctx context.Context) bool {
	timer := time.NewTimer(l.cfg.Interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// RunCycle performs one Sensing..Publishing pass. It returns an error
// wrapping sensors.ErrSourceUnavailable when sensing failed and
// ErrCyclePanic when the cycle panicked; write failures are not returned.
//
// Cancelling ctx does not interrupt a cycle that is already running;
// the cycle is bounded by the configured cycle timeout instead.
func (l *Loop) RunCycle(ctx context.Context) (err error) {
	start := time.Now()
	outcome := outcomePublished

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.cfg.CycleTimeout)
	defer cancel()
	ctx = logging.ContextWithNewCorrelationID(ctx)
	logger := logging.Ctx(ctx)

	defer func() {
		if r := recover(); r != nil {
			outcome = outcomePanic
			err = fmt.Errorf("%w: %v", ErrCyclePanic, r)
			logger.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("Recovered from panic in control cycle")
		}
		metrics.RecordCycle(time.Since(start), outcome)
	}()

	l.setState(StateSensing)
	reading, roster, err := l.sense(ctx)
	if err != nil {
		outcome = outcomeSourceUnavailable
		logger.Warn().Err(err).Msg("Sensing failed, keeping previous snapshot")
		return err
	}

	l.setState(StateDeciding)
	ts := reading.Timestamp
	farmActions := decision.Decide(reading, l.cfg.Thresholds)
	livestockActions, waterNeeded := l.manager.Manage(ctx, roster, reading.WaterLevel, ts)
	metrics.RecordActions("farm", len(farmActions))
	metrics.RecordActions("livestock", len(livestockActions))

	actions := make([]string, 0, len(farmActions)+len(livestockActions))
	actions = append(actions, farmActions...)
	actions = append(actions, livestockActions...)

	l.setState(StatePersisting)
	l.persist(ctx, reading, actions)

	l.setState(StatePublishing)
	snap := l.buildSnapshot(ctx, reading, roster, actions)
	l.handle.Publish(snap)
	metrics.SnapshotPublishedTimestamp.Set(float64(snap.PublishedAt.Unix()))

	if published, ok := l.handle.Current(); ok {
		for _, p := range l.publishers {
			l.notify(ctx, p, published)
		}
	}

	logger.Info().
		Uint64("cycle", snap.Cycle).
		Int("soil_moisture", reading.SoilMoisture).
		Int("water_level", reading.WaterLevel).
		Float64("water_needed", waterNeeded).
		Strs("actions", actions).
		Dur("duration", time.Since(start)).
		Msg("Snapshot published")
	return nil
}

// sense samples both sources. Any failure is reported as
// sensors.ErrSourceUnavailable.
// notify calls one publisher. The snapshot is already visible, so a
// panicking hook is logged and does not fail the cycle.
func (l *Loop) notify(ctx context.Context, p Publisher, snap *models.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(ctx).Error().
				Interface("panic", r).
				Str("publisher", fmt.Sprintf("%T", p)).
				Str("stack", string(debug.Stack())).
				Msg("Recovered from panic in snapshot publisher")
		}
	}()
	p.PublishSnapshot(snap)
}

func (l *Loop) sense(ctx context.Context) (*models.SensorReading, []models.LivestockEntry, error) {
	reading, err := l.sensor.Read(ctx)
	if err == nil && reading == nil {
		err = errors.New("sensor returned no reading")
	}
	if err != nil {
		return nil, nil, wrapUnavailable("sensor", err)
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = l.now().UTC()
	}

	roster, err := l.herd.Roster(ctx)
	if err != nil {
		return nil, nil, wrapUnavailable("livestock", err)
	}
	return reading, roster, nil
}

func wrapUnavailable(source string, err error) error {
	if errors.Is(err, sensors.ErrSourceUnavailable) {
		return fmt.Errorf("%s: %w", source, err)
	}
	return fmt.Errorf("%s: %w: %w", source, sensors.ErrSourceUnavailable, err)
}

// persist writes the reading and every action independently. Failures
// are logged and counted only.
func (l *Loop) persist(ctx context.Context, reading *models.SensorReading, actions []string) {
	logger := logging.Ctx(ctx)

	if err := l.repo.SaveReading(ctx, reading); err != nil {
		metrics.RecordPersistenceError("save_reading")
		logger.Error().Err(err).Msg("Failed to save sensor reading")
	}
	for _, action := range actions {
		if err := l.repo.SaveAction(ctx, reading.Timestamp, action); err != nil {
			metrics.RecordPersistenceError("save_action")
			logger.Error().Err(err).Str("action", action).Msg("Failed to save action")
		}
	}
}

// buildSnapshot assembles the next snapshot. Aggregate failures yield
// zero values.
func (l *Loop) buildSnapshot(ctx context.Context, reading *models.SensorReading, roster []models.LivestockEntry, actions []string) *models.Snapshot {
	snap := &models.Snapshot{
		Cycle:       l.cycle.Add(1),
		PublishedAt: l.now().UTC(),
		Reading:     reading,
		Livestock:   roster,
		Actions:     actions,
	}
	fillAggregates(ctx, l.repo, snap, l.cfg.TrendWindowHours)
	return snap
}

// fillAggregates sets the windowed averages and the soil moisture trend.
func fillAggregates(ctx context.Context, repo database.Repository, snap *models.Snapshot, windowHours int) {
	logger := logging.Ctx(ctx)
	var err error

	if snap.AvgSoilMoisture24h, err = repo.Average(ctx, models.MetricSoilMoisture, windowHours); err != nil {
		logger.Warn().Err(err).Msg("Failed to compute average soil moisture")
	}
	if snap.AvgTemperature24h, err = repo.Average(ctx, models.MetricTemperature, windowHours); err != nil {
		logger.Warn().Err(err).Msg("Failed to compute average temperature")
	}
	if snap.SoilMoistureTrend, err = repo.Trend(ctx, models.MetricSoilMoisture, windowHours); err != nil {
		logger.Warn().Err(err).Msg("Failed to compute soil moisture trend")
	}
	if snap.SoilMoistureTrend == nil {
		snap.SoilMoistureTrend = []models.TrendPoint{}
	}
}
