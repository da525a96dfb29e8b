/*
Package monitoring provides Prometheus metrics for livepen.

Each Metrics value owns its registry, so several servers can live in one
process (tests do this) without duplicate registration panics.

# Metrics

  - HTTP requests by route template (latency, size, status)
  - Session operations (import, export, headless run)
  - Renders, relayed messages by kind and source, rejected messages by reason
  - Probe diagnostics, headless runs and their duration
  - Live sessions and WebSocket connections

Metrics implements session.Recorder.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	sessions := session.NewManager(cfg, pool, logger).WithRecorder(metrics)

	timer := monitoring.NewTimer(metrics, "import")
	// ... perform operation ...
	timer.Stop("success")
*/
package monitoring
