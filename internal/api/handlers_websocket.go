// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package api

import (
	"net/http"
	"strings"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/eden/internal/auth"
	"github.com/tomtom215/eden/internal/control"
	"github.com/tomtom215/eden/internal/logging"
	"github.com/tomtom215/eden/internal/websocket"
)

// WebSocket upgrades the connection and streams snapshot_published
// messages. The first message carries the current (or fallback) snapshot.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Live updates are disabled", nil)
		return
	}

	upgrader := gorillaws.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	var initial *websocket.Message
	if snap, err := control.GetCurrentOrFallback(r.Context(), h.handle, h.repo, h.trendWindow); err == nil {
		initial = &websocket.Message{Type: websocket.MessageTypeSnapshot, Data: snap}
	} else {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("No initial snapshot for websocket client")
	}

	username := ""
	if session := auth.SessionFromContext(r.Context()); session != nil {
		username = session.Username
	}

	client := websocket.NewClient(h.hub, conn, username)
	if !client.Start(initial) {
		logging.Ctx(r.Context()).Debug().Msg("WebSocket hub stopped before client registration")
	}
}

// checkWebSocketOrigin rejects connections without an Origin header and
// origins outside the configured list. Same-host origins are always
// accepted.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if strings.EqualFold(strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://"), r.Host) {
		return true
	}
	for _, allowed := range h.origins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// sanitizeLogValue strips control characters and truncates untrusted
// header values before logging.
func sanitizeLogValue(s string) string {
	const maxLen = 200
	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	if len(cleaned) > maxLen {
		cleaned = cleaned[:maxLen]
	}
	return cleaned
}
