// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

// Package models defines the data types shared by the control loop,
// the repository and the dashboard.
package models

import (
	"fmt"
	"time"
)

// SensorReading is one timestamped sample of the environmental sensors.
// Readings are immutable once produced.
type SensorReading struct {
	Timestamp    time.Time `json:"timestamp"`
	SoilMoisture int       `json:"soil_moisture" validate:"min=0,max=100"` // percent
	Temperature  float64   `json:"temperature"`                            // °C
	WaterLevel   int       `json:"water_level" validate:"min=0"`           // liters
	EnergyLevel  float64   `json:"energy_level" validate:"min=0"`          // watts
}

// LivestockEntry is the feed and water state of one animal for one cycle.
type LivestockEntry struct {
	ID            int     `json:"id" validate:"gt=0"`
	Species       string  `json:"species" validate:"required"`
	FeedLevel     float64 `json:"feed_level" validate:"min=0"`     // kg
	WaterConsumed float64 `json:"water_consumed" validate:"min=0"` // liters
}

// ActionRecord is an append-only log line produced by a decision.
type ActionRecord struct {
	ID          int64     `json:"id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
}

// TrendPoint is one (timestamp, value) sample of a windowed series.
type TrendPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// UserAccount is a dashboard login. Accounts are never updated or deleted.
type UserAccount struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Metric names a sensor_data column that supports windowed aggregates.
type Metric string

const (
	MetricSoilMoisture Metric = "soil_moisture"
	MetricTemperature  Metric = "temperature"
	MetricWaterLevel   Metric = "water_level"
	MetricEnergyLevel  Metric = "energy_level"
)

// ParseMetric validates a metric name coming from a query string.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(s); m {
	case MetricSoilMoisture, MetricTemperature, MetricWaterLevel, MetricEnergyLevel:
		return m, nil
	default:
		return "", fmt.Errorf("unknown metric %q", s)
	}
}

// Value extracts the metric from a reading.
func (m Metric) Value(r *SensorReading) float64 {
	switch m {
	case MetricSoilMoisture:
		return float64(r.SoilMoisture)
	case MetricTemperature:
		return r.Temperature
	case MetricWaterLevel:
		return float64(r.WaterLevel)
	case MetricEnergyLevel:
		return r.EnergyLevel
	default:
		return 0
	}
}
