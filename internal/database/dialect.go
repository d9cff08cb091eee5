// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package database

import (
	"fmt"
	"strconv"
	"strings"
)

// dialect captures the differences between the SQL backends.
type dialect struct {
	name       string // driver label for logs and metrics
	driverName string // database/sql driver
	floatType  string
	dollarArgs bool // $1, $2 instead of ?
	schema     []string
}

var (
	sqliteDialect = dialect{
		name:       "sqlite",
		driverName: "sqlite",
		floatType:  "REAL",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS sensor_data (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				recorded_at TIMESTAMP NOT NULL,
				soil_moisture INTEGER NOT NULL,
				temperature REAL NOT NULL,
				water_level INTEGER NOT NULL,
				energy_level REAL NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS actions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				recorded_at TIMESTAMP NOT NULL,
				action TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS livestock_data (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				recorded_at TIMESTAMP NOT NULL,
				animal_id INTEGER NOT NULL,
				animal_type TEXT NOT NULL,
				feed_level REAL NOT NULL,
				water_consumed REAL NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				username TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL
			)`,
		},
	}

	duckdbDialect = dialect{
		name:       "duckdb",
		driverName: "duckdb",
		floatType:  "DOUBLE",
		schema: []string{
			`CREATE SEQUENCE IF NOT EXISTS sensor_data_id_seq`,
			`CREATE TABLE IF NOT EXISTS sensor_data (
				id BIGINT PRIMARY KEY DEFAULT nextval('sensor_data_id_seq'),
				recorded_at TIMESTAMP NOT NULL,
				soil_moisture INTEGER NOT NULL,
				temperature DOUBLE NOT NULL,
				water_level INTEGER NOT NULL,
				energy_level DOUBLE NOT NULL
			)`,
			`CREATE SEQUENCE IF NOT EXISTS actions_id_seq`,
			`CREATE TABLE IF NOT EXISTS actions (
				id BIGINT PRIMARY KEY DEFAULT nextval('actions_id_seq'),
				recorded_at TIMESTAMP NOT NULL,
				action TEXT NOT NULL
			)`,
			`CREATE SEQUENCE IF NOT EXISTS livestock_data_id_seq`,
			`CREATE TABLE IF NOT EXISTS livestock_data (
				id BIGINT PRIMARY KEY DEFAULT nextval('livestock_data_id_seq'),
				recorded_at TIMESTAMP NOT NULL,
				animal_id INTEGER NOT NULL,
				animal_type TEXT NOT NULL,
				feed_level DOUBLE NOT NULL,
				water_consumed DOUBLE NOT NULL
			)`,
			`CREATE SEQUENCE IF NOT EXISTS users_id_seq`,
			`CREATE TABLE IF NOT EXISTS users (
				id BIGINT PRIMARY KEY DEFAULT nextval('users_id_seq'),
				username TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL
			)`,
		},
	}

	postgresDialect = dialect{
		name:       "postgres",
		driverName: "pgx",
		floatType:  "DOUBLE PRECISION",
		dollarArgs: true,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS sensor_data (
				id BIGSERIAL PRIMARY KEY,
				recorded_at TIMESTAMPTZ NOT NULL,
				soil_moisture INTEGER NOT NULL,
				temperature DOUBLE PRECISION NOT NULL,
				water_level INTEGER NOT NULL,
				energy_level DOUBLE PRECISION NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS actions (
				id BIGSERIAL PRIMARY KEY,
				recorded_at TIMESTAMPTZ NOT NULL,
				action TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS livestock_data (
				id BIGSERIAL PRIMARY KEY,
				recorded_at TIMESTAMPTZ NOT NULL,
				animal_id INTEGER NOT NULL,
				animal_type TEXT NOT NULL,
				feed_level DOUBLE PRECISION NOT NULL,
				water_consumed DOUBLE PRECISION NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS users (
				id BIGSERIAL PRIMARY KEY,
				username TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL
			)`,
		},
	}
)

// commonIndexes are valid in every dialect.
var commonIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_sensor_data_recorded_at ON sensor_data (recorded_at)`,
	`CREATE INDEX IF NOT EXISTS idx_actions_recorded_at ON actions (recorded_at)`,
	`CREATE INDEX IF NOT EXISTS idx_livestock_data_animal_id ON livestock_data (animal_id)`,
}

// rebind rewrites ? placeholders for dialects that need $n.
func (d dialect) rebind(query string) string {
	if !d.dollarArgs {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// metricColumn maps a validated metric to its sensor_data column.
func metricColumn(metric string) (string, error) {
	switch metric {
	case "soil_moisture", "temperature", "water_level", "energy_level":
		return metric, nil
	default:
		return "", fmt.Errorf("unknown metric %q", metric)
	}
}
