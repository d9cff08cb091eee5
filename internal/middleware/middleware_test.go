// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/eden/internal/logging"
	"github.com/tomtom215/eden/internal/metrics"
)

func newRouter(status int) http.Handler {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/fields/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func TestPrometheusMetrics(t *testing.T) {
	t.Parallel()

	t.Run("labels by route pattern", func(t *testing.T) {
		t.Parallel()
		counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/fields/{id}", "418")
		before := testutil.ToFloat64(counter)

		h := newRouter(http.StatusTeapot)
		for _, id := range []string{"1", "2", "3"} {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fields/"+id, nil))
			if rec.Code != http.StatusTeapot {
				t.Fatalf("status = %d, want 418", rec.Code)
			}
		}

		if got := testutil.ToFloat64(counter) - before; got != 3 {
			t.Errorf("counter delta = %v, want 3", got)
		}
	})

	t.Run("unmatched routes share one label", func(t *testing.T) {
		t.Parallel()
		counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404")
		before := testutil.ToFloat64(counter)

		rec := httptest.NewRecorder()
		newRouter(http.StatusOK).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere?x=1", nil))

		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		if got := testutil.ToFloat64(counter) - before; got != 1 {
			t.Errorf("counter delta = %v, want 1", got)
		}
	})

	t.Run("without a router", func(t *testing.T) {
		t.Parallel()
		h := PrometheusMetrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("plain"))
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "plain" {
			t.Errorf("got %d %q", rec.Code, rec.Body.String())
		}
	})
}

func TestStatusRecorderFirstHeaderWins(t *testing.T) {
	t.Parallel()

	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	rec.WriteHeader(http.StatusCreated)
	rec.WriteHeader(http.StatusInternalServerError)
	n, err := rec.Write([]byte("abc"))
	if err != nil || n != 3 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if rec.statusCode != http.StatusCreated {
		t.Errorf("statusCode = %d, want 201", rec.statusCode)
	}
	if rec.bytes != 3 {
		t.Errorf("bytes = %d, want 3", rec.bytes)
	}
	if _, _, err := rec.Hijack(); err == nil {
		t.Error("Hijack on a recorder should fail")
	}
}

// Not parallel: swaps the global logger.
func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	previous := logging.Logger()
	logging.SetLogger(logging.NewTestLogger(&buf))
	t.Cleanup(func() { logging.SetLogger(previous) })

	r := chi.NewRouter()
	r.Use(AccessLog)
	r.Get("/api/v1/snapshot", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil)
	req = req.WithContext(logging.ContextWithRequestID(req.Context(), "req-123"))
	r.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	for _, want := range []string{
		`"request_id":"req-123"`,
		`"status":401`,
		`"route":"/api/v1/snapshot"`,
		`"message":"HTTP request"`,
	} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %s missing %s", line, want)
		}
	}
}
