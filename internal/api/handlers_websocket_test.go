// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/eden/internal/models"
	"github.com/tomtom215/eden/internal/websocket"
)

type snapshotMessage struct {
	Type string          `json:"type"`
	Data models.Snapshot `json:"data"`
}

func readSnapshot(t *testing.T, conn *gorillaws.Conn) snapshotMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var msg snapshotMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return msg
}

func TestWebSocketStreamsSnapshots(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	cookie := f.login(t)
	f.handle.Publish(&models.Snapshot{Cycle: 1, PublishedAt: time.Now(), Actions: []string{"irrigate"}})

	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	header := http.Header{}
	header.Set("Cookie", cookie.String())
	header.Set("Origin", srv.URL)
	conn, resp, err := gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", header)
	if err != nil {
		t.Fatalf("Dial() error = %v (response %v)", err, resp)
	}
	t.Cleanup(func() { _ = conn.Close() })

	first := readSnapshot(t, conn)
	if first.Type != websocket.MessageTypeSnapshot || first.Data.Cycle != 1 {
		t.Fatalf("initial message = %+v", first)
	}

	deadline := time.Now().Add(5 * time.Second)
	for f.hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	f.hub.PublishSnapshot(&models.Snapshot{Cycle: 2, Actions: []string{"switch to backup power"}})

	next := readSnapshot(t, conn)
	if next.Data.Cycle != 2 || len(next.Data.Actions) != 1 || next.Data.Actions[0] != "switch to backup power" {
		t.Errorf("broadcast message = %+v", next)
	}
}

func TestWebSocketOrigin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	cookie := f.login(t)
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	tests := []struct {
		name   string
		origin string
		wantOK bool
	}{
		{name: "configured origin", origin: "http://farm.example", wantOK: true},
		{name: "same host", origin: srv.URL, wantOK: true},
		{name: "foreign origin", origin: "http://evil.example", wantOK: false},
		{name: "missing origin", origin: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			header := http.Header{}
			header.Set("Cookie", cookie.String())
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := gorillaws.DefaultDialer.Dial(wsURL, header)
			if tt.wantOK {
				if err != nil {
					t.Fatalf("Dial() error = %v", err)
				}
				_ = conn.Close()
				return
			}
			if err == nil {
				_ = conn.Close()
				t.Fatal("Dial() succeeded, want rejection")
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("response = %v, want 403", resp)
			}
		})
	}
}

func TestSanitizeLogValue(t *testing.T) {
	t.Parallel()

	if got := sanitizeLogValue("http://a\r\nInjected: yes"); got != "http://aInjected: yes" {
		t.Errorf("sanitizeLogValue() = %q", got)
	}
	if got := sanitizeLogValue(strings.Repeat("x", 500)); len(got) != 200 {
		t.Errorf("len = %d, want 200", len(got))
	}
}
