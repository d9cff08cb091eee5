// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package control

// State is a control loop state. Values are exported as the
// eden_control_state gauge and must stay stable.
type State int32

const (
	StateIdle State = iota
	StateSensing
	StateDeciding
	StatePersisting
	StatePublishing
	StateSleeping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSensing:
		return "sensing"
	case StateDeciding:
		return "deciding"
	case StatePersisting:
		return "persisting"
	case StatePublishing:
		return "publishing"
	case StateSleeping:
		return "sleeping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
