// Package middleware provides observability middleware for nextgo servers.
//
// This package includes:
//   - Prometheus request metrics labelled by render outcome
//   - OpenTelemetry server spans carrying the render outcome
//   - Annotate, which the dispatch middleware uses to report outcomes
//
// Both middlewares are plain func(http.Handler) http.Handler values and are
// mounted outside the dispatch middleware so they observe the final status:
//
//	r := chi.NewRouter()
//	r.Use(middleware.OpenTelemetry(), middleware.Prometheus())
//	r.Use(app.Middleware)
//
//	// Expose metrics
//	r.Handle("/metrics", promhttp.Handler())
//
// # Outcomes
//
// Every dispatched render operation reports one outcome (document, snapshot,
// redirect, not_found, error, static, pass_through). Outcomes reach the
// Prometheus labels through a per-request slot and the current span as the
// nextgo.outcome attribute. Requests no operation handled report "none".
package middleware
