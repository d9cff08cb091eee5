// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/eden/internal/metrics"
	"github.com/tomtom215/eden/internal/models"
)

// schemaTimeout bounds schema creation at startup.
const schemaTimeout = 30 * time.Second

// SQLStore is a Repository on database/sql. Concurrency is delegated to
// the connection pool.
type SQLStore struct {
	conn    *sql.DB
	dialect dialect
	now     func() time.Time
}

var _ Repository = (*SQLStore)(nil)

// newSQLStore pings conn and creates the schema. The connection is closed
// on failure.
func newSQLStore(ctx context.Context, conn *sql.DB, d dialect) (*SQLStore, error) {
	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("%w: ping %s: %w", ErrUnreachable, d.name, err)
	}

	s := &SQLStore{conn: conn, dialect: d, now: time.Now}
	if err := s.createSchema(ctx); err != nil {
		closeQuietly(conn)
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) createSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, schemaTimeout)
	defer cancel()

	queries := append(append([]string(nil), s.dialect.schema...), commonIndexes...)
	for _, query := range queries {
		if _, err := s.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema query: %s: %w", query, err)
		}
	}
	return nil
}

// Driver returns the dialect label (sqlite, duckdb, postgres).
func (s *SQLStore) Driver() string {
	return s.dialect.name
}

func (s *SQLStore) observe(op string, start time.Time) {
	metrics.RecordRepositoryQuery(s.dialect.name, op, time.Since(start))
}

func (s *SQLStore) exec(ctx context.Context, op, query string, args ...any) error {
	defer s.observe(op, time.Now())
	if _, err := s.conn.ExecContext(ctx, s.dialect.rebind(query), args...); err != nil {
		return persistenceError(op, err)
	}
	return nil
}

func (s *SQLStore) SaveReading(ctx context.Context, r *models.SensorReading) error {
	return s.exec(ctx, "save_reading",
		`INSERT INTO sensor_data (recorded_at, soil_moisture, temperature, water_level, energy_level)
		 VALUES (?, ?, ?, ?, ?)`,
		r.Timestamp.UTC(), r.SoilMoisture, r.Temperature, r.WaterLevel, r.EnergyLevel)
}

func (s *SQLStore) SaveAction(ctx context.Context, ts time.Time, text string) error {
	return s.exec(ctx, "save_action",
		`INSERT INTO actions (recorded_at, action) VALUES (?, ?)`,
		ts.UTC(), text)
}

func (s *SQLStore) SaveLivestock(ctx context.Context, entry models.LivestockEntry, ts time.Time) error {
	return s.exec(ctx, "save_livestock",
		`INSERT INTO livestock_data (recorded_at, animal_id, animal_type, feed_level, water_consumed)
		 VALUES (?, ?, ?, ?, ?)`,
		ts.UTC(), entry.ID, entry.Species, entry.FeedLevel, entry.WaterConsumed)
}

func (s *SQLStore) Average(ctx context.Context, metric models.Metric, windowHours int) (float64, error) {
	col, err := metricColumn(string(metric))
	if err != nil {
		return 0, err
	}
	defer s.observe("average", time.Now())

	query := fmt.Sprintf(`SELECT AVG(CAST(%s AS %s)) FROM sensor_data WHERE recorded_at >= ?`, col, s.dialect.floatType)
	var avg sql.NullFloat64
	if err := s.conn.QueryRowContext(ctx, s.dialect.rebind(query), windowStart(s.now(), windowHours).UTC()).Scan(&avg); err != nil {
		return 0, fmt.Errorf("average %s: %w", col, err)
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}

func (s *SQLStore) Trend(ctx context.Context, metric models.Metric, windowHours int) ([]models.TrendPoint, error) {
	col, err := metricColumn(string(metric))
	if err != nil {
		return nil, err
	}
	defer s.observe("trend", time.Now())

	query := fmt.Sprintf(`SELECT recorded_at, CAST(%s AS %s) FROM sensor_data WHERE recorded_at >= ? ORDER BY recorded_at ASC, id ASC`,
		col, s.dialect.floatType)
	rows, err := s.conn.QueryContext(ctx, s.dialect.rebind(query), windowStart(s.now(), windowHours).UTC())
	if err != nil {
		return nil, fmt.Errorf("trend %s: %w", col, err)
	}
	defer closeWithLog(rows, "rows")

	points := make([]models.TrendPoint, 0)
	for rows.Next() {
		var ts dbTime
		var p models.TrendPoint
		if err := rows.Scan(&ts, &p.Value); err != nil {
			return nil, fmt.Errorf("scan trend row: %w", err)
		}
		p.Timestamp = ts.Time
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *SQLStore) LatestReading(ctx context.Context) (*models.SensorReading, error) {
	defer s.observe("latest_reading", time.Now())

	var ts dbTime
	var r models.SensorReading
	err := s.conn.QueryRowContext(ctx,
		`SELECT recorded_at, soil_moisture, temperature, water_level, energy_level
		 FROM sensor_data ORDER BY recorded_at DESC, id DESC LIMIT 1`,
	).Scan(&ts, &r.SoilMoisture, &r.Temperature, &r.WaterLevel, &r.EnergyLevel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest reading: %w", err)
	}
	r.Timestamp = ts.Time
	return &r, nil
}

func (s *SQLStore) LatestLivestock(ctx context.Context) ([]models.LivestockEntry, error) {
	defer s.observe("latest_livestock", time.Now())

	rows, err := s.conn.QueryContext(ctx,
		`SELECT l.animal_id, l.animal_type, l.feed_level, l.water_consumed
		 FROM livestock_data l
		 JOIN (SELECT animal_id, MAX(id) AS max_id FROM livestock_data GROUP BY animal_id) newest
		   ON l.id = newest.max_id
		 ORDER BY l.animal_id`)
	if err != nil {
		return nil, fmt.Errorf("latest livestock: %w", err)
	}
	defer closeWithLog(rows, "rows")

	entries := make([]models.LivestockEntry, 0)
	for rows.Next() {
		var e models.LivestockEntry
		if err := rows.Scan(&e.ID, &e.Species, &e.FeedLevel, &e.WaterConsumed); err != nil {
			return nil, fmt.Errorf("scan livestock row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLStore) LatestActions(ctx context.Context, limit int) ([]models.ActionRecord, error) {
	if limit <= 0 {
		limit = DefaultActionLimit
	}
	defer s.observe("latest_actions", time.Now())

	query := fmt.Sprintf(`SELECT id, recorded_at, action FROM actions ORDER BY recorded_at DESC, id DESC LIMIT %d`, limit)
	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("latest actions: %w", err)
	}
	defer closeWithLog(rows, "rows")

	records := make([]models.ActionRecord, 0, limit)
	for rows.Next() {
		var ts dbTime
		var a models.ActionRecord
		if err := rows.Scan(&a.ID, &ts, &a.Description); err != nil {
			return nil, fmt.Errorf("scan action row: %w", err)
		}
		a.Timestamp = ts.Time
		records = append(records, a)
	}
	return records, rows.Err()
}

func (s *SQLStore) FindUser(ctx context.Context, username string) (*models.UserAccount, error) {
	defer s.observe("find_user", time.Now())

	var created dbTime
	u := models.UserAccount{}
	err := s.conn.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`),
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.CreatedAt = created.Time
	return &u, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, username, passwordHash string) (int64, error) {
	defer s.observe("create_user", time.Now())

	var id int64
	err := s.conn.QueryRowContext(ctx,
		s.dialect.rebind(`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?) RETURNING id`),
		username, passwordHash, s.now().UTC(),
	).Scan(&id)
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, username)
		}
		return 0, persistenceError("create_user", err)
	}
	return id, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.conn.Close()
}

// dbTime scans timestamps from drivers that return time.Time as well as
// from drivers that hand back text.
type dbTime struct {
	time.Time
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// Scan implements sql.Scanner.
func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *dbTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}
