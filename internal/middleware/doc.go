// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

/*
Package middleware provides HTTP instrumentation shared by every dashboard
route.

Key Components:

  - PrometheusMetrics: request count, duration and in-flight gauge, labelled
    with the chi route pattern rather than the raw path so that query
    strings and path parameters do not explode label cardinality
  - AccessLog: one structured zerolog line per request carrying the request
    and correlation IDs placed in the context by api.RequestIDWithLogging

Middleware Stack:

Both are plain chi middleware:

	r := chi.NewRouter()
	r.Use(api.RequestIDWithLogging())
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)

Thread Safety:

All middleware is stateless apart from Prometheus collectors, which are
safe for concurrent use.

See Also:

  - internal/api: routes wrapped by this middleware
  - internal/metrics: collector definitions
*/
package middleware
