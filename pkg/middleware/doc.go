// Package middleware provides production-grade observers for live sessions.
//
// This package includes:
//   - Prometheus metrics for sessions, renders and events
//   - OpenTelemetry tracing with one span per session, render and event
//
// Both implement server.Observer and can be combined with
// server.MultiObserver:
//
//	obs := server.MultiObserver{
//	    middleware.Prometheus(middleware.WithNamespace("myapp")),
//	    middleware.OpenTelemetry(),
//	}
//	http.Handle("/ws", &server.Handler{Root: root, Observer: obs})
//	http.Handle("/metrics", promhttp.Handler())
//
// # Prometheus Metrics
//
// Metrics are registered on prometheus.DefaultRegisterer unless WithRegistry
// is given. Creating several observers on one registry shares the metrics.
//
// # OpenTelemetry
//
// Spans use the global tracer provider unless WithTracerProvider is given.
// Render and event spans are children of their session's span.
package middleware
