// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package models

// Thresholds are the fixed decision limits. They come from configuration
// and are never derived from sensor data.
type Thresholds struct {
	MinSoilMoisture   int     `json:"min_soil_moisture"`    // percent
	MinWaterLevel     int     `json:"min_water_level"`      // liters
	MinEnergyLevel    float64 `json:"min_energy_level"`     // watts
	MinFeedLevel      float64 `json:"min_feed_level"`       // kg per animal
	MinWaterPerAnimal float64 `json:"min_water_per_animal"` // liters per animal
	HighTemperature   float64 `json:"high_temperature"`     // °C
}

// DefaultThresholds returns the stock farm limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSoilMoisture:   30,
		MinWaterLevel:     100,
		MinEnergyLevel:    100,
		MinFeedLevel:      5,
		MinWaterPerAnimal: 10,
		HighTemperature:   30,
	}
}
