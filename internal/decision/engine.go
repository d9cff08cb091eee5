// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

// Package decision turns sensor readings and livestock rosters into farm
// actions.
//
// Decide is a pure function of a reading and the configured thresholds.
// Manager applies the per-animal feed and water rules and records every
// roster entry as an audit trail.
package decision

import "github.com/tomtom215/eden/internal/models"

// Farm-level actions, in the order Decide evaluates them.
const (
	ActionIrrigate        = "irrigate"
	ActionCannotIrrigate  = "cannot irrigate, low water"
	ActionRefillWaterTank = "refill water tank"
	ActionBackupPower     = "switch to backup power"
	ActionHighTemperature = "high temperature alert"
)

// Decide maps one reading to the farm-level actions it triggers. All
// applicable rules fire and the output order is fixed.
func Decide(r *models.SensorReading, th models.Thresholds) []string {
	actions := make([]string, 0, 4)

	if r.SoilMoisture < th.MinSoilMoisture {
		if r.WaterLevel > th.MinWaterLevel {
			actions = append(actions, ActionIrrigate)
		} else {
			actions = append(actions, ActionCannotIrrigate)
		}
	}

	if r.WaterLevel < th.MinWaterLevel {
		actions = append(actions, ActionRefillWaterTank)
	}

	if r.EnergyLevel < th.MinEnergyLevel {
		actions = append(actions, ActionBackupPower)
	}

	if r.Temperature > th.HighTemperature {
		actions = append(actions, ActionHighTemperature)
	}

	return actions
}
