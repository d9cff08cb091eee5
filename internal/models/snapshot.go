// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package models

import "time"

// Snapshot is the latest fully formed view of the farm: one cycle's
// reading, livestock and actions together with the windowed aggregates
// computed right after that cycle was persisted.
type Snapshot struct {
	Cycle              uint64           `json:"cycle"`
	PublishedAt        time.Time        `json:"published_at"`
	Reading            *SensorReading   `json:"reading,omitempty"`
	Livestock          []LivestockEntry `json:"livestock"`
	Actions            []string         `json:"actions"`
	AvgSoilMoisture24h float64          `json:"avg_soil_moisture_24h"`
	AvgTemperature24h  float64          `json:"avg_temperature_24h"`
	SoilMoistureTrend  []TrendPoint     `json:"soil_moisture_trend"`

	// Fallback is set when the snapshot was rebuilt from the repository
	// because no cycle has completed since startup.
	Fallback bool `json:"fallback"`
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	if s.Reading != nil {
		r := *s.Reading
		c.Reading = &r
	}
	c.Livestock = append([]LivestockEntry(nil), s.Livestock...)
	c.Actions = append([]string(nil), s.Actions...)
	c.SoilMoistureTrend = append([]TrendPoint(nil), s.SoilMoistureTrend...)
	return &c
}

// Age reports how long ago the snapshot was published.
func (s *Snapshot) Age(now time.Time) time.Duration {
	if s == nil || s.PublishedAt.IsZero() {
		return 0
	}
	return now.Sub(s.PublishedAt)
}
