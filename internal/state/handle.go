// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

// Package state holds the single published snapshot shared between the
// control loop and the dashboard handlers.
package state

import (
	"sync/atomic"

	"github.com/tomtom215/eden/internal/models"
)

// Handle is a lock-free cell holding at most one snapshot. One writer
// publishes, any number of readers call Current concurrently. Readers
// always see either nothing or a complete snapshot.
type Handle struct {
	current atomic.Pointer[models.Snapshot]
}

// NewHandle returns an empty handle.
func NewHandle() *Handle {
	return &Handle{}
}

// Publish replaces the current snapshot. A deep copy is stored so the
// caller cannot mutate a value readers may already hold.
func (h *Handle) Publish(s *models.Snapshot) {
	if s == nil {
		return
	}
	h.current.Store(s.Clone())
}

// Current returns the most recently published snapshot. The returned value
// is shared with other readers and must be treated as read-only.
func (h *Handle) Current() (*models.Snapshot, bool) {
	s := h.current.Load()
	return s, s != nil
}
