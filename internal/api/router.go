// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/eden/internal/middleware"
)

// NewRouter builds the dashboard routes.
//
//	GET  /                  dashboard (session)
//	GET  /login, /register  forms
//	POST /login, /register  form submissions (rate limited per IP)
//	GET  /logout
//	GET  /api/v1/snapshot   (session)
//	GET  /api/v1/actions    (session)
//	GET  /api/v1/trend      (session)
//	GET  /api/v1/health
//	GET  /metrics
//	GET  /ws                (session)
func NewRouter(h *Handler, mw *ChiMiddleware) http.Handler {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}

	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(h.sessions.Authenticate)

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(PageSecurityHeaders())
		r.Use(chimiddleware.Compress(5, "text/html"))

		r.Get("/login", h.LoginPage)
		r.Get("/register", h.RegisterPage)
		r.Get("/logout", h.Logout)
		r.With(mw.RateLimitAuth()).Post("/login", h.Login)
		r.With(mw.RateLimitAuth()).Post("/register", h.Register)

		r.With(h.sessions.RequireAuth).Get("/", h.Dashboard)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.CORS())
		r.Use(APISecurityHeaders())

		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(h.sessions.RequireAuth)
			r.Get("/snapshot", h.Snapshot)
			r.Get("/actions", h.Actions)
			r.Get("/trend", h.Trend)
		})
	})

	r.With(h.sessions.RequireAuth).Get("/ws", h.WebSocket)

	return r
}
