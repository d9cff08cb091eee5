// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/eden/internal/database"
	"github.com/tomtom215/eden/internal/models"
)

type envelope[T any] struct {
	Status string           `json:"status"`
	Data   T                `json:"data"`
	Error  *models.APIError `json:"error"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return env
}

func TestSnapshotEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("published snapshot", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		cookie := f.login(t)
		f.handle.Publish(&models.Snapshot{
			Cycle:       3,
			PublishedAt: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC),
			Reading:     &models.SensorReading{SoilMoisture: 25, Temperature: 31, WaterLevel: 50, EnergyLevel: 80},
			Actions:     []string{"irrigate", "high temperature alert"},
		})

		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil), cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		env := decode[models.Snapshot](t, rec)
		if env.Status != "success" || env.Data.Cycle != 3 || env.Data.Fallback {
			t.Errorf("envelope = %+v", env)
		}
		if len(env.Data.Actions) != 2 || env.Data.Reading.SoilMoisture != 25 {
			t.Errorf("snapshot data = %+v", env.Data)
		}
	})

	t.Run("fallback before first cycle", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		cookie := f.login(t)
		ctx := context.Background()
		ts := time.Now().UTC().Add(-time.Hour)
		if err := f.repo.SaveReading(ctx, &models.SensorReading{Timestamp: ts, SoilMoisture: 44, Temperature: 20}); err != nil {
			t.Fatal(err)
		}
		if err := f.repo.SaveAction(ctx, ts, "refill water tank"); err != nil {
			t.Fatal(err)
		}

		env := decode[models.Snapshot](t, f.do(httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil), cookie))
		if !env.Data.Fallback {
			t.Error("Fallback = false, want true")
		}
		if env.Data.Reading == nil || env.Data.Reading.SoilMoisture != 44 {
			t.Errorf("Reading = %+v", env.Data.Reading)
		}
		if env.Data.AvgSoilMoisture24h != 44 {
			t.Errorf("AvgSoilMoisture24h = %v, want 44", env.Data.AvgSoilMoisture24h)
		}
		if len(env.Data.Actions) != 1 || env.Data.Actions[0] != "refill water tank" {
			t.Errorf("Actions = %v", env.Data.Actions)
		}
	})
}

func TestDashboardRendersSnapshot(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	cookie := f.login(t)
	f.handle.Publish(&models.Snapshot{
		Cycle:              1,
		PublishedAt:        time.Now(),
		Reading:            &models.SensorReading{Timestamp: time.Now(), SoilMoisture: 12, Temperature: 33.3, WaterLevel: 80, EnergyLevel: 90},
		Livestock:          []models.LivestockEntry{{ID: 7, Species: "Chicken", FeedLevel: 2.5, WaterConsumed: 4}},
		Actions:            []string{"irrigate", "<script>alert(1)</script>"},
		AvgSoilMoisture24h: 30.5,
		AvgTemperature24h:  25,
		SoilMoistureTrend:  []models.TrendPoint{{Timestamp: time.Now(), Value: 12}},
	})

	rec := f.do(httptest.NewRequest(http.MethodGet, "/", nil), cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"12%", "33.3 °C", "30.50%", "irrigate", "Chicken", "&lt;script&gt;"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
	if strings.Contains(body, "<script>alert") {
		t.Error("action text was not escaped")
	}
}

func TestActionsEndpoint(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	cookie := f.login(t)

	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		if err := f.repo.SaveAction(context.Background(), base.Add(time.Duration(i)*time.Minute), fmt.Sprintf("action-%02d", i)); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		query      string
		wantStatus int
		wantLen    int
		wantFirst  string
	}{
		{query: "", wantStatus: http.StatusOK, wantLen: 10, wantFirst: "action-11"},
		{query: "?limit=3", wantStatus: http.StatusOK, wantLen: 3, wantFirst: "action-11"},
		{query: "?limit=50", wantStatus: http.StatusOK, wantLen: 12, wantFirst: "action-11"},
		{query: "?limit=0", wantStatus: http.StatusBadRequest},
		{query: "?limit=abc", wantStatus: http.StatusBadRequest},
		{query: "?limit=501", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			t.Parallel()
			rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/actions"+tt.query, nil), cookie)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			env := decode[[]models.ActionRecord](t, rec)
			if tt.wantStatus != http.StatusOK {
				if env.Error == nil || env.Error.Code != ErrCodeBadRequest {
					t.Errorf("error = %+v", env.Error)
				}
				return
			}
			if len(env.Data) != tt.wantLen || env.Data[0].Description != tt.wantFirst {
				t.Errorf("got %d actions, first %q", len(env.Data), env.Data[0].Description)
			}
		})
	}
}

func TestTrendEndpoint(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	cookie := f.login(t)

	now := time.Now().UTC()
	for i, soil := range []int{20, 40} {
		r := &models.SensorReading{Timestamp: now.Add(time.Duration(i-2) * time.Hour), SoilMoisture: soil, Temperature: 10}
		if err := f.repo.SaveReading(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("defaults to soil moisture", func(t *testing.T) {
		t.Parallel()
		env := decode[TrendResponse](t, f.do(httptest.NewRequest(http.MethodGet, "/api/v1/trend", nil), cookie))
		if env.Data.Metric != models.MetricSoilMoisture || env.Data.Hours != 24 {
			t.Errorf("metric/hours = %s/%d", env.Data.Metric, env.Data.Hours)
		}
		if env.Data.Average != 30 || len(env.Data.Points) != 2 || env.Data.Points[0].Value != 20 {
			t.Errorf("trend = %+v", env.Data)
		}
	})

	t.Run("temperature", func(t *testing.T) {
		t.Parallel()
		env := decode[TrendResponse](t, f.do(httptest.NewRequest(http.MethodGet, "/api/v1/trend?metric=temperature&hours=48", nil), cookie))
		if env.Data.Average != 10 || env.Data.Hours != 48 {
			t.Errorf("trend = %+v", env.Data)
		}
	})

	t.Run("window excludes old readings", func(t *testing.T) {
		t.Parallel()
		env := decode[TrendResponse](t, f.do(httptest.NewRequest(http.MethodGet, "/api/v1/trend?hours=1", nil), cookie))
		if len(env.Data.Points) != 0 || env.Data.Average != 0 {
			t.Errorf("trend = %+v", env.Data)
		}
	})

	for _, query := range []string{"?metric=humidity", "?hours=0", "?hours=nope", "?hours=10000"} {
		t.Run(query, func(t *testing.T) {
			t.Parallel()
			rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/trend"+query, nil), cookie)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestTrendEndpointCache(t *testing.T) {
	t.Parallel()
	trends := NewTrendCache(time.Hour)
	f := newFixture(t, func(d *Dependencies, _ *ChiMiddlewareConfig) { d.Trends = trends })
	cookie := f.login(t)

	save := func(soil int) {
		t.Helper()
		r := &models.SensorReading{Timestamp: time.Now().UTC().Add(-time.Minute), SoilMoisture: soil}
		if err := f.repo.SaveReading(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}
	average := func() float64 {
		t.Helper()
		env := decode[TrendResponse](t, f.do(httptest.NewRequest(http.MethodGet, "/api/v1/trend?hours=2", nil), cookie))
		return env.Data.Average
	}

	save(20)
	if got := average(); got != 20 {
		t.Fatalf("first average = %v, want 20", got)
	}
	save(40)
	if got := average(); got != 20 {
		t.Errorf("cached average = %v, want 20 until the next snapshot", got)
	}

	trends.PublishSnapshot(&models.Snapshot{Cycle: 1})
	if got := average(); got != 30 {
		t.Errorf("average after publish = %v, want 30", got)
	}
	if s := trends.Stats(); s.Hits != 1 || s.Keys != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestTrendDefaultsToLoopWindow(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(d *Dependencies, _ *ChiMiddlewareConfig) { d.TrendWindowHours = 6 })
	cookie := f.login(t)

	env := decode[TrendResponse](t, f.do(httptest.NewRequest(http.MethodGet, "/api/v1/trend", nil), cookie))
	if env.Data.Hours != 6 {
		t.Errorf("Hours = %d, want the configured window 6", env.Data.Hours)
	}
}

type unreachableRepo struct {
	database.Repository
}

func (unreachableRepo) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("healthy without snapshot", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		env := decode[models.HealthStatus](t, rec)
		h := env.Data
		if h.Status != "healthy" || !h.DatabaseConnected || h.SnapshotAvailable || h.Version != "test" || h.ControlState != "sleeping" {
			t.Errorf("health = %+v", h)
		}
	})

	t.Run("reports snapshot age", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		published := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
		f.handler.now = func() time.Time { return published.Add(90 * time.Second) }
		f.handle.Publish(&models.Snapshot{Cycle: 1, PublishedAt: published})

		env := decode[models.HealthStatus](t, f.do(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)))
		if !env.Data.SnapshotAvailable || env.Data.SnapshotAgeSeconds != 90 {
			t.Errorf("health = %+v", env.Data)
		}
	})

	t.Run("degraded when repository unreachable", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, func(d *Dependencies, _ *ChiMiddlewareConfig) {
			d.Repository = unreachableRepo{Repository: d.Repository}
		})
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
		env := decode[models.HealthStatus](t, rec)
		if env.Data.Status != "degraded" || env.Data.DatabaseConnected {
			t.Errorf("health = %+v", env.Data)
		}
	})
}

func TestIntParam(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw    string
		want   int
		wantOK bool
	}{
		{raw: "", want: 10, wantOK: true},
		{raw: "1", want: 1, wantOK: true},
		{raw: "500", want: 500, wantOK: true},
		{raw: "-1", wantOK: false},
		{raw: "501", wantOK: false},
		{raw: "1.5", wantOK: false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/?limit="+tt.raw, nil)
		got, ok := intParam(req, "limit", 10, 1, 500)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("intParam(%q) = %d, %v; want %d, %v", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}
