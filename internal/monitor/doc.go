// ABOUTME: Monitor package documentation
// ABOUTME: Describes the diagnostic HTTP surface
// Package monitor runs the optional diagnostic HTTP server.
//
// Routes:
//
//	GET /healthz    liveness
//	GET /readyz     readiness (stream freshness)
//	GET /metrics    Prometheus exposition of the OpenTelemetry instruments
//	GET /stats      one JSON stats snapshot
//	GET /ws/stats   websocket pushing a JSON snapshot every Interval
package monitor
