// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

// Package metrics declares Eden's Prometheus instruments.
//
// Instruments are registered on the default registry through promauto and
// exposed by the HTTP server at /metrics. Helpers keep label values
// consistent between call sites.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Control loop
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eden_cycle_duration_seconds",
			Help:    "Duration of one sense-decide-persist-publish pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eden_cycles_total",
			Help: "Completed control cycles by outcome",
		},
		[]string{"outcome"}, // published, source_unavailable, panic
	)

	ControlState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eden_control_state",
			Help: "Current control loop state (0=idle 1=sensing 2=deciding 3=persisting 4=publishing 5=sleeping 6=stopped)",
		},
	)

	ActionsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eden_actions_emitted_total",
			Help: "Decision actions emitted by source",
		},
		[]string{"source"}, // farm, livestock
	)

	PersistenceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eden_persistence_errors_total",
			Help: "Failed repository writes by operation",
		},
		[]string{"operation"},
	)

	SnapshotPublishedTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eden_snapshot_published_timestamp_seconds",
			Help: "Unix time of the most recently published snapshot",
		},
	)

	// Repository
	RepositoryQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eden_repository_query_duration_seconds",
			Help:    "Duration of repository calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"driver", "operation"},
	)

	// Sensor gateway circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eden_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed 1=half-open 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eden_circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker by result",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eden_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eden_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eden_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eden_http_active_requests",
			Help: "In-flight HTTP requests",
		},
	)

	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eden_auth_attempts_total",
			Help: "Login and registration attempts by result",
		},
		[]string{"kind", "result"}, // login|register, success|rejected
	)

	// WebSocket
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eden_websocket_connections",
			Help: "Connected dashboard websocket clients",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eden_websocket_messages_sent_total",
			Help: "Snapshot messages queued to websocket clients",
		},
	)
)

// RecordCycle records the duration and outcome of one control cycle.
func RecordCycle(duration time.Duration, outcome string) {
	CycleDuration.Observe(duration.Seconds())
	CyclesTotal.WithLabelValues(outcome).Inc()
}

// RecordPersistenceError counts a failed repository write.
func RecordPersistenceError(operation string) {
	PersistenceErrors.WithLabelValues(operation).Inc()
}

// RecordActions counts emitted actions.
func RecordActions(source string, n int) {
	if n > 0 {
		ActionsEmitted.WithLabelValues(source).Add(float64(n))
	}
}

// RecordRepositoryQuery observes one repository call.
func RecordRepositoryQuery(driver, operation string, duration time.Duration) {
	RepositoryQueryDuration.WithLabelValues(driver, operation).Observe(duration.Seconds())
}

// RecordAPIRequest observes one HTTP request.
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordAuthAttempt counts a login or registration attempt.
func RecordAuthAttempt(kind string, success bool) {
	result := "rejected"
	if success {
		result = "success"
	}
	AuthAttempts.WithLabelValues(kind, result).Inc()
}
