// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package models

// APIResponse is the JSON envelope for every /api/v1 response.
type APIResponse struct {
	Status   string    `json:"status"`
	Data     any       `json:"data,omitempty"`
	Error    *APIError `json:"error,omitempty"`
	Metadata Metadata  `json:"metadata"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Metadata carries per-response bookkeeping.
type Metadata struct {
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthStatus is the /api/v1/health payload.
type HealthStatus struct {
	Status             string  `json:"status"`
	Version            string  `json:"version"`
	DatabaseConnected  bool    `json:"database_connected"`
	SnapshotAvailable  bool    `json:"snapshot_available"`
	SnapshotAgeSeconds float64 `json:"snapshot_age_seconds"`
	ControlState       string  `json:"control_state"`
	Uptime             float64 `json:"uptime"`
}
